// Package feed loads item records from the places upstream jobs leave them:
// JSON files, HTTP endpoints and SQLite databases. Sources are read-only.
package feed

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sw33tLie/itemstate/pkg/items"
)

const DefaultTable = "items"

type Source interface {
	Items(ctx context.Context) ([]items.Item, error)
}

// Options carries settings shared by every source kind. Fields that do not
// apply to the chosen source are ignored.
type Options struct {
	Table   string
	Retries int
	Timeout time.Duration
	Proxy   string
	Headers map[string]string
	Stdin   io.Reader
}

// Open picks a source for location: http(s) URLs, sqlite://path[#table] or a
// *.sqlite/*.sqlite3/*.db path, otherwise a JSON file ("-" for stdin).
func Open(location string, opts Options) (Source, error) {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return NewHTTPSource(location, opts)
	case strings.HasPrefix(lower, "sqlite://"):
		path := location[len("sqlite://"):]
		table := opts.Table
		if i := strings.LastIndex(path, "#"); i >= 0 {
			path, table = path[:i], path[i+1:]
		}
		return NewSQLiteSource(path, table)
	}

	switch strings.ToLower(filepath.Ext(location)) {
	case ".sqlite", ".sqlite3", ".db":
		return NewSQLiteSource(location, opts.Table)
	}
	return &FileSource{Path: location, Stdin: opts.Stdin}, nil
}
