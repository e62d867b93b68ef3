package repositories

import "database/sql"

// DB is the subset of database/sql the repositories use. Both *sql.DB
// and *sql.Tx satisfy it, so callers can scope a set of writes to one
// transaction.
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}
