// Package resource exposes the resource controller shared by indexes.
//
// A single Controller may be passed to several indexes to bound their
// combined handle index memory, parallel dump workers and dump or backup
// throughput.
package resource

import "github.com/hupe1980/termdex/internal/resource"

// Config holds resource limits.
type Config = resource.Config

// Controller manages shared resources of one or more indexes.
type Controller = resource.Controller

// Usage is a point-in-time view of a controller.
type Usage = resource.Usage

// ErrMemoryLimitExceeded is returned when a memory reservation does not fit.
var ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	return resource.NewController(cfg)
}
