package file

import (
	"context"
	"time"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
)

const flowsDir = "flows"

// FlowRepository handles flow definition file operations.
type FlowRepository struct {
	root string
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

func (fr *FlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	ids, err := listDocuments(fr.root, flowsDir)
	if err != nil {
		return nil, err
	}

	flows := make([]*models.Flow, 0, len(ids))

	for _, id := range ids {
		flow, err := fr.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

func (fr *FlowRepository) GetByID(_ context.Context, id string) (*models.Flow, error) {
	var flow models.Flow

	err := readDocument(fr.root, flowsDir, id, &flow)
	if err != nil {
		if isNotExist(err) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("GetByID", id, err)
	}

	return &flow, nil
}

func (fr *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	err := writeDocument(fr.root, flowsDir, flow.ID, flow)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}
