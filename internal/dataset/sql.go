package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrUnknownDriver is returned for SQL drivers that are not linked in.
var ErrUnknownDriver = errors.New("unknown sql driver")

// driverNames maps user-facing names to registered database/sql drivers.
var driverNames = map[string]string{
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"postgres":   "pgx",
	"postgresql": "pgx",
	"pgx":        "pgx",
	"mysql":      "mysql",
}

// ReadSQL runs query and returns its columns and rows as text. NULL becomes an
// empty cell, which the loader treats as an invalid score.
func ReadSQL(ctx context.Context, driver, dsn, query string) (header []string, rows [][]string, err error) {
	name, ok := driverNames[driver]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q (use sqlite|postgres|mysql)", ErrUnknownDriver, driver)
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	rs, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rs.Close()

	header, err = rs.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns: %w", err)
	}
	vals := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rs.Next() {
		if err := rs.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row %d: %w", len(rows)+1, err)
		}
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = sqlText(v)
		}
		rows = append(rows, rec)
	}
	if err := rs.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return header, rows, nil
}

func sqlText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
