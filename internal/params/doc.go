// Package params parses the small key=value grammars accepted on the
// command line and in env files.
//
//	--transform amount=numeric
//	--transform sold_at=datetime:%Y-%m-%d
//	--conn-param application_name=nightly
//	--env-file prod.env
//
// All functions are safe for concurrent use.
package params
