// Package schema infers a destination table shape from a transformed Dataset
// and creates the table when it does not exist yet.
//
// Existing tables are never altered. A Dataset that does not fit an existing
// table fails later, when its rows are written.
package schema
