// Package transform normalizes column names, converts cells per column and
// applies the null policy of a load.
package transform
