// Package fs abstracts the file operations LocalStore uses to write blobs,
// so tests can inject I/O failures.
//
//   - [LocalFS] uses the os package and is the default.
//   - [FaultyFS] wraps another FileSystem and fails writes, syncs, closes or
//     renames of files whose name contains a configured pattern.
//
// Operations take no context: local syscalls are not interruptible.
package fs
