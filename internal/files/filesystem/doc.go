// Package filesystem abstracts access to source files so the extractor can
// read from the OS or from an in-memory tree in tests.
//
// Implementations:
//   - OSFileSystem: Production implementation using the OS filesystem
//   - MemoryFileSystem: In-memory implementation for testing
package filesystem
