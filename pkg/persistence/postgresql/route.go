package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
)

const routeColumns = `
			id
		  , name
		  , flow_id
		  , prefix
		  , openapi
		  , type_schema
		  , position
		  , created_at
		  , updated_at`

var routeFieldColumns = map[string]string{
	models.RouteFieldName:       "name",
	models.RouteFieldFlowID:     "flow_id",
	models.RouteFieldPrefix:     "prefix",
	models.RouteFieldOpenAPI:    "openapi",
	models.RouteFieldTypeSchema: "type_schema",
}

// RouteRepository handles route-related database operations.
type RouteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRouteRepository creates a new route repository.
func NewRouteRepository(db *sql.DB, logger *slog.Logger) *RouteRepository {
	return &RouteRepository{db: db, logger: logger}
}

// GetAll returns every route in storage order.
func (r *RouteRepository) GetAll(ctx context.Context) ([]*models.Route, error) {
	query := `SELECT` + routeColumns + `
		FROM routes
		ORDER BY position ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	routes := make([]*models.Route, 0)

	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}

		routes = append(routes, route)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating routes: %w", err)
	}

	return routes, nil
}

func (r *RouteRepository) GetByID(ctx context.Context, id string) (*models.Route, error) {
	query := `SELECT` + routeColumns + `
		FROM routes
		WHERE id = $1
	`

	route, err := scanRoute(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRouteError("GetByID", id, persistence.ErrRouteNotFound)
		}

		return nil, persistence.NewRouteError("GetByID", id, err)
	}

	return route, nil
}

// Save upserts the route. A zero position on insert appends the route after the last stored one;
// on update the stored position is kept unless a new one is given.
func (r *RouteRepository) Save(ctx context.Context, route *models.Route) error {
	now := time.Now().UTC()
	if route.CreatedAt.IsZero() {
		route.CreatedAt = now
	}

	route.UpdatedAt = now

	query := `
		INSERT INTO routes (id, name, flow_id, prefix, openapi, type_schema, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6,
			COALESCE(NULLIF($7, 0), (SELECT COALESCE(MAX(position), 0) + 1 FROM routes)), $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			flow_id = EXCLUDED.flow_id,
			prefix = EXCLUDED.prefix,
			openapi = EXCLUDED.openapi,
			type_schema = EXCLUDED.type_schema,
			position = CASE WHEN $7 = 0 THEN routes.position ELSE EXCLUDED.position END,
			updated_at = EXCLUDED.updated_at
		RETURNING position
	`

	err := r.db.QueryRowContext(ctx, query,
		route.ID,
		route.Name,
		route.FlowID,
		route.Prefix,
		nullableJSON(route.OpenAPI),
		nullableJSON(route.TypeSchema),
		route.Position,
		route.CreatedAt,
		route.UpdatedAt,
	).Scan(&route.Position)
	if err != nil {
		return persistence.NewRouteError("Save", route.ID, err)
	}

	return nil
}

// UpdateField persists a single route field.
func (r *RouteRepository) UpdateField(ctx context.Context, id string, field string, value any) error {
	column, ok := routeFieldColumns[field]
	if !ok {
		return persistence.NewRouteError("UpdateField", id, &models.FieldError{Field: field, Err: models.ErrUnknownField})
	}

	// validate the value the same way the in-memory model does
	var probe models.Route

	err := probe.SetField(field, value)
	if err != nil {
		return persistence.NewRouteError("UpdateField", id, err)
	}

	var arg any

	switch field {
	case models.RouteFieldOpenAPI:
		arg = nullableJSON(probe.OpenAPI)
	case models.RouteFieldTypeSchema:
		arg = nullableJSON(probe.TypeSchema)
	default:
		arg = value
	}

	query := `UPDATE routes SET ` + column + ` = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, arg, time.Now().UTC(), id)
	if err != nil {
		return persistence.NewRouteError("UpdateField", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRouteError("UpdateField", id, err)
	}

	if affected == 0 {
		return persistence.NewRouteError("UpdateField", id, persistence.ErrRouteNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*models.Route, error) {
	var (
		route      models.Route
		openapi    sql.NullString
		typeSchema sql.NullString
	)

	err := row.Scan(
		&route.ID,
		&route.Name,
		&route.FlowID,
		&route.Prefix,
		&openapi,
		&typeSchema,
		&route.Position,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if openapi.Valid {
		route.OpenAPI = []byte(openapi.String)
	}

	if typeSchema.Valid {
		route.TypeSchema = []byte(typeSchema.String)
	}

	return &route, nil
}
