// Package mmap maps index dump files read-only into memory.
//
// Dumps are read once, front to back, when an index reloads. Mapping the
// file avoids a copy through a read buffer and lets the kernel prefetch
// with MADV_SEQUENTIAL.
//
//	m, err := mmap.Open("terms.cnt.prt")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// On Unix the package uses mmap(2) and madvise(2) through golang.org/x/sys.
// Other platforms read the whole file into a heap buffer and Advise is a
// no-op. Bytes must not be used after Close returns.
package mmap
