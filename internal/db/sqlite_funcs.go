package db

import (
	"database/sql/driver" // UDF argument and result values
	"strings"             // Unicode case folding

	gosqlite "github.com/glebarez/go-sqlite" // Pure Go SQLite driver, UDF registry
	"gorm.io/gorm"                           // GORM ORM library
)

// UnicodeLower is a SQLite function that lowercases text with Unicode rules.
// The built-in LOWER only folds ASCII letters.
const UnicodeLower = "unicode_lower"

// Registered once per process; applies to every SQLite connection opened afterwards
func init() {
	gosqlite.MustRegisterDeterministicScalarFunction(UnicodeLower, 1, unicodeLower)
}

func unicodeLower(_ *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil // NULL and numbers pass through
	}
}

// LowerFunc names the SQL function that lowercases text on the connection's dialect
func LowerFunc(tx *gorm.DB) string {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return UnicodeLower
	}
	return "LOWER" // MySQL and PostgreSQL fold Unicode under utf8 collations
}
