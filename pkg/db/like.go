package db

import (
	"database/sql/driver"
	"strings"

	"github.com/angelmondragon/auditmagic/pkg/config"
	"golang.org/x/text/cases"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	moderncsqlite "modernc.org/sqlite"
)

// FoldFunction is the SQL function registered on the modernc sqlite driver
// that case-folds Unicode text. sqlite's own LOWER() folds ASCII only.
const FoldFunction = "unicode_fold"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func init() {
	if err := moderncsqlite.RegisterDeterministicScalarFunction(FoldFunction, 1, foldValue); err != nil {
		panic(err)
	}
}

func foldValue(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return Fold(v), nil
	case []byte:
		return Fold(string(v)), nil
	default:
		return v, nil
	}
}

// Fold is the Go side of FoldFunction.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Matcher builds case-insensitive LIKE conditions whose SQL function and Go
// term folding agree for the connection's driver:
//   - modernc sqlite: FoldFunction on both sides, full Unicode
//   - postgres: LOWER() on both sides, full Unicode
//   - mattn sqlite3: LOWER() on both sides, ASCII only
type Matcher struct {
	function string
	fold     func(string) string
}

// MatcherFor picks the matcher for the driver behind conn.
func MatcherFor(conn *gorm.DB) Matcher {
	if conn == nil || conn.Dialector == nil {
		return Matcher{function: "LOWER", fold: strings.ToLower}
	}
	if d, ok := conn.Dialector.(*sqlite.Dialector); ok {
		return matcherForSQLite(d.DriverName)
	}
	return Matcher{function: "LOWER", fold: strings.ToLower}
}

func matcherForSQLite(driverName string) Matcher {
	if driverName == config.DriverSQLite3 || driverName == "" {
		return Matcher{function: "LOWER", fold: lowerASCII}
	}
	return Matcher{function: FoldFunction, fold: Fold}
}

// Clause matches column against a pattern built by Prefix or Contains.
func (m Matcher) Clause(column string) string {
	return m.function + "(" + column + ") LIKE ? ESCAPE '\\'"
}

// Prefix escapes wildcards in prefix and matches anything starting with it.
func (m Matcher) Prefix(prefix string) string {
	return likeEscaper.Replace(m.fold(prefix)) + "%"
}

// Contains escapes wildcards in term and matches anything containing it.
func (m Matcher) Contains(term string) string {
	return "%" + likeEscaper.Replace(m.fold(term)) + "%"
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
