// Package loader writes a transformed Dataset into an existing table in
// fixed-size batches, inside the caller's transaction.
//
// The loader never commits or rolls back. On failure the caller owns the
// rollback, which removes every batch written so far.
package loader
