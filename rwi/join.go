package rwi

import (
	"slices"

	"github.com/hupe1980/termdex/model"
)

// JoinConstructive returns joined accumulators for the documents present in
// every container, ordered by document handle. The smallest container
// drives the probes. Nil or empty input yields nil.
func JoinConstructive(containers ...*Container) []*Vars {
	if len(containers) == 0 {
		return nil
	}
	for _, c := range containers {
		if c == nil || c.Size() == 0 {
			return nil
		}
	}

	order := slices.Clone(containers)
	slices.SortStableFunc(order, func(a, b *Container) int { return a.Size() - b.Size() })
	driver, rest := order[0], order[1:]

	out := make([]*Vars, 0, driver.Size())
next:
	for _, r := range driver.Sorted() {
		doc := r.Doc()
		v := FromReference(r.Reference())
		for _, c := range rest {
			o, ok := c.Row(doc)
			if !ok {
				continue next
			}
			v.Join(FromReference(o.Reference()))
		}
		out = append(out, v)
	}
	return out
}

// Exclude returns a copy of c without the documents present in any of excl.
func Exclude(c *Container, excl ...*Container) *Container {
	out := NewContainer(c.Term(), c.Size())
	for r := range c.All() {
		if !containsDoc(r.Doc(), excl) {
			out.Add(r)
		}
	}
	return out
}

// ExcludeVars filters joined accumulators the same way as Exclude.
func ExcludeVars(vs []*Vars, excl ...*Container) []*Vars {
	if len(excl) == 0 {
		return vs
	}
	return slices.DeleteFunc(vs, func(v *Vars) bool { return containsDoc(v.Doc(), excl) })
}

func containsDoc(doc model.Handle, cs []*Container) bool {
	for _, c := range cs {
		if c != nil && c.Has(doc) {
			return true
		}
	}
	return false
}
