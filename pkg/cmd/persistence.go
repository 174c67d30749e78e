package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/restflow/pkg/persistence"
	"github.com/dukex/restflow/pkg/persistence/file"
	"github.com/dukex/restflow/pkg/persistence/postgresql"
	"github.com/dukex/restflow/pkg/persistence/redis"
)

// NewPersistence selects the store from the URL scheme: postgres, redis or file. A URL
// without a scheme is a file directory.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	case "redis", "rediss":
		p, err := redis.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	case "file":
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider in %q", databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
