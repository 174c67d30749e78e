// Package routing maps request paths to stored route configurations.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukex/restflow/pkg/faults"
	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
)

// Resolver caches the route table for its lifetime. The table is loaded on first use and
// changes only through UpdateField or after Invalidate.
type Resolver struct {
	routes persistence.RouteRepository
	logger *slog.Logger

	mu     sync.Mutex
	table  []*models.Route
	loaded bool
}

func NewResolver(routes persistence.RouteRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		routes: routes,
		logger: logger.With("module", "routing"),
	}
}

// Resolve returns a copy of the first stored route whose prefix starts path.
func (r *Resolver) Resolve(ctx context.Context, path string) (*models.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, err := r.find(ctx, path)
	if err != nil {
		return nil, err
	}

	clone := *route

	return &clone, nil
}

// UpdateField persists one field of the route serving path and applies it to the cached entry.
func (r *Resolver) UpdateField(ctx context.Context, path, field string, value any) (*models.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, err := r.find(ctx, path)
	if err != nil {
		return nil, err
	}

	err = r.routes.UpdateField(ctx, route.ID, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to update route %s: %w", route.ID, err)
	}

	err = route.SetField(field, value)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Route updated", "route_id", route.ID, "field", field)

	clone := *route

	return &clone, nil
}

// Invalidate drops the cached table so the next call reloads it from storage.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.table = nil
	r.loaded = false
}

func (r *Resolver) find(ctx context.Context, path string) (*models.Route, error) {
	if !r.loaded {
		routes, err := r.routes.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}

		r.table = routes
		r.loaded = true

		r.logger.DebugContext(ctx, "Route table loaded", "routes", len(routes))
	}

	route, ok := Match(r.table, path)
	if !ok {
		return nil, faults.New("Resolve", faults.ErrRouteNotFound, path)
	}

	return route, nil
}

// Match returns the first route, in table order, whose prefix is a string prefix of path.
// Leading slashes are ignored on both sides.
func Match(routes []*models.Route, path string) (*models.Route, bool) {
	path = strings.TrimLeft(path, "/")

	for _, route := range routes {
		if strings.HasPrefix(path, strings.TrimLeft(route.Prefix, "/")) {
			return route, true
		}
	}

	return nil, false
}
