// Package extract reads a delimited text source into a csvetl.Dataset.
//
// Every cell of an extracted Dataset is text. Null tokens are recorded on the
// Dataset but not applied; the transformer turns them into nulls.
package extract
