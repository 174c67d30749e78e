package file

import (
	"context"
	"sync"
	"time"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
)

const requestsDir = "requests"

// RequestRepository handles request log file operations.
type RequestRepository struct {
	root string
	mu   sync.Mutex
}

// NewRequestRepository creates a new request log repository.
func NewRequestRepository(root string) *RequestRepository {
	return &RequestRepository{root: root}
}

func (rr *RequestRepository) Create(ctx context.Context, record *models.RequestRecord) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if _, err := rr.GetByID(ctx, record.ID); err == nil {
		return persistence.NewRequestError("Create", record.ID, persistence.ErrRequestExists)
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	err := writeDocument(rr.root, requestsDir, record.ID, record)
	if err != nil {
		return persistence.NewRequestError("Create", record.ID, err)
	}

	return nil
}

func (rr *RequestRepository) GetByID(_ context.Context, id string) (*models.RequestRecord, error) {
	var record models.RequestRecord

	err := readDocument(rr.root, requestsDir, id, &record)
	if err != nil {
		if isNotExist(err) {
			return nil, persistence.NewRequestError("GetByID", id, persistence.ErrRequestNotFound)
		}

		return nil, persistence.NewRequestError("GetByID", id, err)
	}

	return &record, nil
}

// Update applies a partial update to the stored record.
func (rr *RequestRepository) Update(ctx context.Context, id string, fields models.RequestFields) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	record, err := rr.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = record.Apply(fields)
	if err != nil {
		return persistence.NewRequestError("Update", id, err)
	}

	record.UpdatedAt = time.Now().UTC()

	err = writeDocument(rr.root, requestsDir, id, record)
	if err != nil {
		return persistence.NewRequestError("Update", id, err)
	}

	return nil
}
