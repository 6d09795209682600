package feed

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sw33tLie/itemstate/internal/utils"
	"github.com/sw33tLie/itemstate/pkg/items"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads items from a table in an existing SQLite database. The
// table must have id, title, expires, in_source and date_first_seen columns.
type SQLiteSource struct {
	Path  string
	Table string
}

func NewSQLiteSource(path, table string) (*SQLiteSource, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite source needs a database path")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQLiteSource{Path: path, Table: table}, nil
}

func (s *SQLiteSource) Items(ctx context.Context) ([]items.Item, error) {
	dsn := "file:" + s.Path + "?mode=ro&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}

	q := "SELECT id, title, expires, in_source, date_first_seen FROM " + s.Table + " ORDER BY rowid"
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []items.Item
	for rows.Next() {
		var (
			id, title                 sql.NullString
			expires, inSource, seenAt interface{}
		)
		if err := rows.Scan(&id, &title, &expires, &inSource, &seenAt); err != nil {
			return nil, err
		}

		it := items.Item{ID: id.String, Title: title.String}
		if it.Expires, err = dateColumn(expires); err != nil {
			return nil, fmt.Errorf("item %s: expires: %w", it.ID, err)
		}
		if it.DateFirstSeen, err = dateColumn(seenAt); err != nil {
			return nil, fmt.Errorf("item %s: date_first_seen: %w", it.ID, err)
		}
		if it.InSource, err = presenceColumn(inSource); err != nil {
			return nil, fmt.Errorf("item %s: in_source: %w", it.ID, err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	utils.Log.Debugf("[feed] read %d items from %s (%s)", len(out), s.Path, s.Table)
	return out, nil
}

func dateColumn(v interface{}) (*items.Date, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return items.DateOf(x), nil
	case string:
		return items.DateString(x), nil
	case []byte:
		return items.DateString(string(x)), nil
	case int64:
		return items.DateUnix(float64(x)), nil
	case float64:
		return items.DateUnix(x), nil
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

func presenceColumn(v interface{}) (items.SourcePresence, error) {
	var flag bool
	switch x := v.(type) {
	case nil:
		return items.SourceUnreported, nil
	case bool:
		flag = x
	case int64:
		flag = x != 0
	case float64:
		flag = x != 0
	case string, []byte:
		s := strings.TrimSpace(fmt.Sprintf("%s", x))
		if s == "" {
			return items.SourceUnreported, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return items.SourceUnreported, fmt.Errorf("not a boolean: %q", s)
		}
		flag = b
	default:
		return items.SourceUnreported, fmt.Errorf("unsupported value %T", v)
	}
	return items.PresenceOf(&flag), nil
}
