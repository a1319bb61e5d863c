// Package mmap provides anonymous memory mappings with page protection
// control.
//
// # Overview
//
// The query engine keeps finalized programs in an off-heap mapping that is
// writable only while a program is being installed:
//
//	m, err := mmap.MapAnon(64 * 1024)
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Protect(mmap.ProtReadWrite)
//	copy(m.Bytes(), code)
//	_ = m.Protect(mmap.ProtRead)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) and mprotect(2) via golang.org/x/sys/unix
//   - Windows: VirtualAlloc and VirtualProtect via golang.org/x/sys/windows
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must not
// touch Bytes() after Close returns, and must not write while the mapping
// is read-only (the process faults).
package mmap
