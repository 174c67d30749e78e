package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/lib/pq"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLReader reads rows from a PostgreSQL database. Attribute expressions are selected
// verbatim, so the contract decides what SQL runs.
type SQLReader struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLReader(db *sql.DB, logger *slog.Logger) *SQLReader {
	return &SQLReader{db: db, logger: logger.With("module", "sql_reader")}
}

// OpenSQLReader connects to a postgres DSN.
func OpenSQLReader(ctx context.Context, logger *slog.Logger, dsn string) (*SQLReader, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open backend database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping backend database: %w", err)
	}

	return NewSQLReader(db, logger), nil
}

func (r *SQLReader) Close() error {
	return r.db.Close()
}

// Statement builds the select for query and its arguments.
func Statement(query Query) (string, []any, error) {
	table := query.Table
	if table == "" {
		table = query.Entity
	}

	if !identifierPattern.MatchString(table) {
		return "", nil, fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table)
	}

	if len(query.Attributes) == 0 {
		return "", nil, fmt.Errorf("%w: no attributes selected for %s", ErrInvalidIdentifier, table)
	}

	columns := make([]string, 0, len(query.Attributes))
	for _, attr := range query.Attributes {
		columns = append(columns, fmt.Sprintf("%s AS %s", attr.Expression, pq.QuoteIdentifier(attr.Property)))
	}

	statement := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)

	names := make([]string, 0, len(query.Filters))
	for name := range query.Filters {
		names = append(names, name)
	}

	slices.Sort(names)

	args := make([]any, 0, len(names))
	conditions := make([]string, 0, len(names))

	for _, name := range names {
		if !identifierPattern.MatchString(name) {
			return "", nil, fmt.Errorf("%w: filter %q", ErrInvalidIdentifier, name)
		}

		args = append(args, query.Filters[name])
		conditions = append(conditions, fmt.Sprintf("%s = $%d", name, len(args)))
	}

	if len(conditions) > 0 {
		statement += " WHERE " + strings.Join(conditions, " AND ")
	}

	return statement, args, nil
}

func (r *SQLReader) Read(ctx context.Context, query Query) ([]map[string]any, error) {
	statement, args, err := Statement(query)
	if err != nil {
		return nil, err
	}

	query.Progress.Report("reading " + query.Entity)

	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", query.Entity, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", query.Entity, err)
	}

	result := []map[string]any{}

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", query.Entity, err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", query.Entity, err)
	}

	query.Progress.Report(fmt.Sprintf("read %d %s rows", len(result), query.Entity))

	r.logger.DebugContext(ctx, "entity read", "entity", query.Entity, "rows", len(result))

	return result, nil
}
