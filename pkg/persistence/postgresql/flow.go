package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
)

// FlowRepository handles flow definition database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

func (r *FlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, input, steps, created_at, updated_at
		FROM flows
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return flows, nil
}

func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, input, steps, created_at, updated_at
		FROM flows
		WHERE id = $1
	`, id)

	flow, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("GetByID", id, err)
	}

	return flow, nil
}

func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	steps, err := json.Marshal(flow.Steps)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to marshal steps: %w", err))
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO flows (id, name, input, steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			input = EXCLUDED.input,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at
	`, flow.ID, flow.Name, flow.Input, steps, flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow  models.Flow
		steps []byte
	)

	err := row.Scan(&flow.ID, &flow.Name, &flow.Input, &steps, &flow.CreatedAt, &flow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(steps, &flow.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	return &flow, nil
}
