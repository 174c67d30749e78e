package file

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
)

const routesDir = "routes"

// RouteRepository handles route-related file operations.
type RouteRepository struct {
	root string
	mu   sync.Mutex
}

// NewRouteRepository creates a new route repository.
func NewRouteRepository(root string) *RouteRepository {
	return &RouteRepository{root: root}
}

// GetAll returns every stored route ordered by position, then by file name.
func (rr *RouteRepository) GetAll(ctx context.Context) ([]*models.Route, error) {
	ids, err := listDocuments(rr.root, routesDir)
	if err != nil {
		return nil, err
	}

	routes := make([]*models.Route, 0, len(ids))

	for _, id := range ids {
		route, err := rr.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		routes = append(routes, route)
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Position < routes[j].Position
	})

	return routes, nil
}

func (rr *RouteRepository) GetByID(_ context.Context, id string) (*models.Route, error) {
	var route models.Route

	err := readDocument(rr.root, routesDir, id, &route)
	if err != nil {
		if isNotExist(err) {
			return nil, persistence.NewRouteError("GetByID", id, persistence.ErrRouteNotFound)
		}

		return nil, persistence.NewRouteError("GetByID", id, err)
	}

	return &route, nil
}

// Save stores the route. New routes without a position are appended after the last stored one.
func (rr *RouteRepository) Save(ctx context.Context, route *models.Route) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	now := time.Now().UTC()
	if route.CreatedAt.IsZero() {
		route.CreatedAt = now
	}

	route.UpdatedAt = now

	if route.Position == 0 {
		existing, err := rr.GetByID(ctx, route.ID)

		switch {
		case err == nil:
			route.Position = existing.Position
		case persistence.IsRouteNotFound(err):
			position, err := rr.nextPosition(ctx)
			if err != nil {
				return persistence.NewRouteError("Save", route.ID, err)
			}

			route.Position = position
		default:
			return err
		}
	}

	err := writeDocument(rr.root, routesDir, route.ID, route)
	if err != nil {
		return persistence.NewRouteError("Save", route.ID, err)
	}

	return nil
}

func (rr *RouteRepository) UpdateField(ctx context.Context, id string, field string, value any) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	route, err := rr.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = route.SetField(field, value)
	if err != nil {
		return persistence.NewRouteError("UpdateField", id, err)
	}

	route.UpdatedAt = time.Now().UTC()

	err = writeDocument(rr.root, routesDir, id, route)
	if err != nil {
		return persistence.NewRouteError("UpdateField", id, err)
	}

	return nil
}

func (rr *RouteRepository) nextPosition(ctx context.Context) (int, error) {
	routes, err := rr.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	position := 1
	for _, route := range routes {
		if route.Position >= position {
			position = route.Position + 1
		}
	}

	return position, nil
}
