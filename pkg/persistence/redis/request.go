package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const (
	hashID        = "id"
	hashCreatedAt = "created_at"
	hashUpdatedAt = "updated_at"
)

var recordFields = []string{
	models.RequestFieldStatus,
	models.RequestFieldURL,
	models.RequestFieldURLPath,
	models.RequestFieldMethod,
	models.RequestFieldHeaders,
	models.RequestFieldBody,
	models.RequestFieldContentType,
	models.RequestFieldRoute,
	models.RequestFieldFlowRun,
	models.RequestFieldErrorMessage,
	models.RequestFieldErrorLogID,
	models.RequestFieldResponseCode,
	models.RequestFieldResponseHeaders,
	models.RequestFieldResponseBody,
	models.RequestFieldResultText,
}

func requestKey(id string) string {
	return keyPrefix + "request:" + id
}

// RequestRepository stores each request record as a hash keyed by persisted field name.
type RequestRepository struct {
	client goredis.UniversalClient
}

func (r *RequestRepository) Create(ctx context.Context, record *models.RequestRecord) error {
	created, err := r.client.HSetNX(ctx, requestKey(record.ID), hashID, record.ID).Result()
	if err != nil {
		return persistence.NewRequestError("Create", record.ID, err)
	}

	if !created {
		return persistence.NewRequestError("Create", record.ID, persistence.ErrRequestExists)
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	values, err := encodeFields(record, recordFields)
	if err != nil {
		return persistence.NewRequestError("Create", record.ID, err)
	}

	values[hashCreatedAt] = now.Format(time.RFC3339Nano)
	values[hashUpdatedAt] = now.Format(time.RFC3339Nano)

	err = r.client.HSet(ctx, requestKey(record.ID), values).Err()
	if err != nil {
		return persistence.NewRequestError("Create", record.ID, err)
	}

	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.RequestRecord, error) {
	hash, err := r.client.HGetAll(ctx, requestKey(id)).Result()
	if err != nil {
		return nil, persistence.NewRequestError("GetByID", id, err)
	}

	if len(hash) == 0 {
		return nil, persistence.NewRequestError("GetByID", id, persistence.ErrRequestNotFound)
	}

	record := &models.RequestRecord{ID: hash[hashID]}
	fields := models.RequestFields{}

	for _, name := range recordFields {
		raw, ok := hash[name]
		if !ok {
			continue
		}

		value, err := decodeField(name, raw)
		if err != nil {
			return nil, persistence.NewRequestError("GetByID", id, err)
		}

		fields[name] = value
	}

	err = record.Apply(fields)
	if err != nil {
		return nil, persistence.NewRequestError("GetByID", id, err)
	}

	record.CreatedAt, _ = time.Parse(time.RFC3339Nano, hash[hashCreatedAt])
	record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, hash[hashUpdatedAt])

	return record, nil
}

func (r *RequestRepository) Update(ctx context.Context, id string, fields models.RequestFields) error {
	var probe models.RequestRecord

	err := probe.Apply(fields)
	if err != nil {
		return persistence.NewRequestError("Update", id, err)
	}

	exists, err := r.client.Exists(ctx, requestKey(id)).Result()
	if err != nil {
		return persistence.NewRequestError("Update", id, err)
	}

	if exists == 0 {
		return persistence.NewRequestError("Update", id, persistence.ErrRequestNotFound)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}

	values, err := encodeFields(&probe, names)
	if err != nil {
		return persistence.NewRequestError("Update", id, err)
	}

	values[hashUpdatedAt] = time.Now().UTC().Format(time.RFC3339Nano)

	err = r.client.HSet(ctx, requestKey(id), values).Err()
	if err != nil {
		return persistence.NewRequestError("Update", id, err)
	}

	return nil
}

func encodeFields(record *models.RequestRecord, names []string) (map[string]any, error) {
	values := make(map[string]any, len(names)+2)

	for _, name := range names {
		value, err := record.Field(name)
		if err != nil {
			return nil, err
		}

		switch v := value.(type) {
		case models.RequestStatus:
			values[name] = string(v)
		case int:
			values[name] = strconv.Itoa(v)
		case json.RawMessage:
			values[name] = string(v)
		case map[string]string:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
			}

			values[name] = string(data)
		default:
			values[name] = v
		}
	}

	return values, nil
}

func decodeField(name, raw string) (any, error) {
	switch name {
	case models.RequestFieldResponseCode:
		code, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}

		return code, nil
	case models.RequestFieldHeaders, models.RequestFieldResponseHeaders:
		var headers map[string]string

		err := json.Unmarshal([]byte(raw), &headers)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}

		return headers, nil
	case models.RequestFieldResponseBody:
		if raw == "" {
			return json.RawMessage(nil), nil
		}

		return json.RawMessage(raw), nil
	default:
		return raw, nil
	}
}
