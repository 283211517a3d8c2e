// Package pgstore implements csvetl.Store on a pgx connection pool.
//
// Appends stream rows with COPY. Upserts queue one
// INSERT ... ON CONFLICT statement per row in a pgx.Batch so a batch costs
// a single round trip. All identifiers are quoted with pgx.Identifier.
package pgstore
