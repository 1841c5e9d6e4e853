// Package store persists users, notes and revoked tokens in SQLite.
package store

import (
	"database/sql/driver"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	// SQLite's lower() only folds ASCII; fold() lowercases any Unicode text.
	sqlite.MustRegisterDeterministicScalarFunction("fold", 1, foldFunc)
}

func foldFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return foldCase(v), nil
	case []byte:
		return foldCase(string(v)), nil
	default:
		return v, nil
	}
}

// foldCase is the case folding applied to both searched columns and search terms.
func foldCase(s string) string {
	return strings.ToLower(s)
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint
// failure, and if so which "table.column" collided.
func isUniqueViolation(err error) (string, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
	default:
		return "", false
	}
	// e.g. "constraint failed: UNIQUE constraint failed: users.email (2067)"
	msg := sqliteErr.Error()
	i := strings.LastIndex(msg, "failed: ")
	if i < 0 {
		return "", true
	}
	column := msg[i+len("failed: "):]
	if j := strings.Index(column, " ("); j >= 0 {
		column = column[:j]
	}
	return strings.TrimSpace(column), true
}

// likePattern turns a user search term into a LIKE pattern matching it as a
// literal substring of a fold()ed column. Use with ESCAPE '\'.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(foldCase(term)) + "%"
}
