// Package mmap maps dataset and result files read-only into memory.
//
//	m, err := mmap.Open("points.ckm")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes() // valid until Close
//
// On unix platforms the file is mapped with mmap(2) and advised for
// sequential access. Elsewhere the file is read into a heap buffer behind
// the same API.
package mmap
