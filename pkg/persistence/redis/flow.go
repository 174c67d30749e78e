package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const flowIndexKey = keyPrefix + "flows"

func flowKey(id string) string {
	return keyPrefix + "flow:" + id
}

type FlowRepository struct {
	client goredis.UniversalClient
}

func (r *FlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	ids, err := r.client.LRange(ctx, flowIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	flows := make([]*models.Flow, 0, len(ids))

	for _, id := range ids {
		flow, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	data, err := r.client.Get(ctx, flowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("GetByID", id, err)
	}

	var flow models.Flow

	err = json.Unmarshal(data, &flow)
	if err != nil {
		return nil, persistence.NewFlowError("GetByID", id, fmt.Errorf("failed to unmarshal flow: %w", err))
	}

	return &flow, nil
}

func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	data, err := json.Marshal(flow)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, fmt.Errorf("failed to marshal flow: %w", err))
	}

	created, err := r.client.SetNX(ctx, flowKey(flow.ID), data, 0).Result()
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	if created {
		err = r.client.RPush(ctx, flowIndexKey, flow.ID).Err()
	} else {
		err = r.client.Set(ctx, flowKey(flow.ID), data, 0).Err()
	}

	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}
