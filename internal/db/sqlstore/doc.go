// Package sqlstore implements csvetl.Store over database/sql for SQLite
// (modernc.org/sqlite) and MySQL (go-sql-driver/mysql) through sqlx.
//
// Dialect differences live behind the Dialect interface: quoting, DDL
// types, existence checks and upsert syntax. MySQL commits implicitly on
// DDL, so its CREATE TABLE runs outside the run transaction and the table
// is dropped again if the run rolls back.
package sqlstore
