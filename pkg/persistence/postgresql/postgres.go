// Package postgresql provides PostgreSQL persistence for routes, flows and request logs.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/dukex/restflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	routeRepo   *RouteRepository
	requestRepo *RequestRepository
	flowRepo    *FlowRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return newPersistence(database, logger), nil
}

// NewPersistenceFromDB wraps an already open and migrated database handle.
func NewPersistenceFromDB(database *sql.DB, logger *slog.Logger) *Persistence {
	return newPersistence(database, logger)
}

func newPersistence(database *sql.DB, logger *slog.Logger) *Persistence {
	return &Persistence{
		db:          database,
		logger:      logger,
		routeRepo:   NewRouteRepository(database, logger),
		requestRepo: NewRequestRepository(database),
		flowRepo:    NewFlowRepository(database, logger),
	}
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) RouteRepository() persistence.RouteRepository {
	return p.routeRepo
}

func (p *Persistence) RequestRepository() persistence.RequestRepository {
	return p.requestRepo
}

func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

// nullableJSON converts a raw JSON document to a driver value, mapping empty and null to NULL.
func nullableJSON(raw []byte) any {
	if models.IsNullJSON(raw) {
		return nil
	}

	return string(raw)
}
