package sqlstore

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/flashdeck/internal/clock"
)

// dialect captures the handful of differences between the two backends.
type dialect struct {
	name         string
	gooseDialect string
	dollarArgs   bool // $1, $2 ... instead of ?
	textTimes    bool // store times as sortable text
	fold         string
}

var (
	sqliteDialect   = dialect{name: DriverSQLite, gooseDialect: "sqlite3", textTimes: true, fold: foldFunc}
	postgresDialect = dialect{name: DriverPostgres, gooseDialect: "postgres", dollarArgs: true, fold: "LOWER"}
)

const (
	storedDateTime = "2006-01-02 15:04:05"
	storedDate     = "2006-01-02"
)

// rebind rewrites "?" placeholders for backends that number their arguments.
// Queries in this package never contain a literal "?".
func (d dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg converts a timestamp into a query argument. SQLite compares the
// fixed-width text form lexically, which matches chronological order.
func (d dialect) timeArg(t time.Time) any {
	t = clock.Normalize(t)
	if d.textTimes {
		return t.Format(storedDateTime)
	}
	return t
}

// dateArg converts a date into a query argument.
func (d dialect) dateArg(t time.Time) any {
	t = clock.Date(t)
	if d.textTimes {
		return t.Format(storedDate)
	}
	return t
}

func (d dialect) nullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.timeArg(*t)
}

func (d dialect) nullDateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.dateArg(*t)
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either backend.
func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// contains returns a case-insensitive substring condition on col. Its single
// argument is likePattern(q).
func (d dialect) contains(col string) string {
	return d.fold + `(` + col + `) LIKE ? ESCAPE '\'`
}

// likePattern builds the pattern for contains. The query is folded with
// strings.ToLower, the same function foldFunc applies to the column.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

// foldFunc is a Unicode-aware lower() for SQLite, whose built-in LOWER only
// folds ASCII letters.
const foldFunc = "flashdeck_fold"

var registerFold = sync.OnceValue(func() error {
	return sqlite.RegisterDeterministicScalarFunction(foldFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
})

// nullTime scans a nullable time column from either backend. pgx hands back
// time.Time; modernc may hand back time.Time or the stored text depending on
// the declared column type.
type nullTime struct {
	Time  time.Time
	Valid bool
}

var storedLayouts = []string{
	storedDateTime,
	storedDate,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05",
}

func (n *nullTime) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = clock.Normalize(v), true
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into time", value)
	}

	for _, layout := range storedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = clock.Normalize(t), true
			return nil
		}
	}
	return fmt.Errorf("sqlstore: unrecognised stored time %q", s)
}

// Ptr returns nil for NULL, otherwise a pointer to the value.
func (n nullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
