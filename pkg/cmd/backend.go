package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/restflow/pkg/backend"
)

// NewReader opens the tabular backend. An empty URL gives an empty in-memory reader, a
// file:// URL loads rows from a JSON file, and a postgres URL reads through SQL.
func NewReader(ctx context.Context, logger *slog.Logger, backendURL string) (backend.Reader, func() error, error) {
	noop := func() error { return nil }

	switch {
	case backendURL == "":
		return backend.NewMemoryReader(), noop, nil
	case strings.HasPrefix(backendURL, "file://"):
		reader, err := backend.LoadMemoryReader(strings.TrimPrefix(backendURL, "file://"))
		if err != nil {
			return nil, nil, err
		}

		return reader, noop, nil
	case strings.HasPrefix(backendURL, "postgres://"), strings.HasPrefix(backendURL, "postgresql://"):
		reader, err := backend.OpenSQLReader(ctx, logger, backendURL)
		if err != nil {
			return nil, nil, err
		}

		return reader, reader.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend url %q", backendURL)
	}
}
