package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// RequestRepository handles request log database operations.
type RequestRepository struct {
	db *sql.DB
}

// NewRequestRepository creates a new request log repository.
func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, record *models.RequestRecord) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return persistence.NewRequestError("Create", record.ID, fmt.Errorf("failed to marshal headers: %w", err))
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO request_logs (
			id, status, url, url_path, http_method, http_headers, http_body, http_content_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		record.ID,
		string(record.Status),
		record.URL,
		record.URLPath,
		record.Method,
		string(headers),
		record.Body,
		record.ContentType,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewRequestError("Create", record.ID, persistence.ErrRequestExists)
		}

		return persistence.NewRequestError("Create", record.ID, err)
	}

	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.RequestRecord, error) {
	var (
		record          models.RequestRecord
		status          string
		headers         sql.NullString
		responseHeaders sql.NullString
		responseBody    sql.NullString
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT
			id
		  , status
		  , url
		  , url_path
		  , http_method
		  , http_headers
		  , http_body
		  , http_content_type
		  , route
		  , flow_run
		  , error_message
		  , error_logid
		  , http_response_code
		  , response_header
		  , response_body
		  , result_text
		  , created_at
		  , updated_at
		FROM request_logs
		WHERE id = $1
	`, id).Scan(
		&record.ID,
		&status,
		&record.URL,
		&record.URLPath,
		&record.Method,
		&headers,
		&record.Body,
		&record.ContentType,
		&record.RouteID,
		&record.FlowRun,
		&record.ErrorMessage,
		&record.ErrorLogID,
		&record.ResponseCode,
		&responseHeaders,
		&responseBody,
		&record.ResultText,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRequestError("GetByID", id, persistence.ErrRequestNotFound)
		}

		return nil, persistence.NewRequestError("GetByID", id, err)
	}

	record.Status = models.RequestStatus(status)

	for _, target := range []struct {
		raw  sql.NullString
		dest *map[string]string
	}{{headers, &record.Headers}, {responseHeaders, &record.ResponseHeaders}} {
		if !target.raw.Valid {
			continue
		}

		err = json.Unmarshal([]byte(target.raw.String), target.dest)
		if err != nil {
			return nil, persistence.NewRequestError("GetByID", id, fmt.Errorf("failed to unmarshal headers: %w", err))
		}
	}

	if responseBody.Valid {
		record.ResponseBody = json.RawMessage(responseBody.String)
	}

	return &record, nil
}

// Update persists only the given fields. Field names double as column names.
func (r *RequestRepository) Update(ctx context.Context, id string, fields models.RequestFields) error {
	// validate names and value types against the model before touching the database
	var probe models.RequestRecord

	err := probe.Apply(fields)
	if err != nil {
		return persistence.NewRequestError("Update", id, err)
	}

	names := slices.Sorted(maps.Keys(fields))
	assignments := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)

	for _, name := range names {
		value, err := columnValue(&probe, name)
		if err != nil {
			return persistence.NewRequestError("Update", id, err)
		}

		args = append(args, value)
		assignments = append(assignments, name+" = $"+strconv.Itoa(len(args)))
	}

	args = append(args, time.Now().UTC())
	assignments = append(assignments, "updated_at = $"+strconv.Itoa(len(args)))

	args = append(args, id)
	query := "UPDATE request_logs SET " + strings.Join(assignments, ", ") + " WHERE id = $" + strconv.Itoa(len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistence.NewRequestError("Update", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRequestError("Update", id, err)
	}

	if affected == 0 {
		return persistence.NewRequestError("Update", id, persistence.ErrRequestNotFound)
	}

	return nil
}

// columnValue reads the already validated field back from the probe record as a driver value.
func columnValue(probe *models.RequestRecord, name string) (any, error) {
	value, err := probe.Field(name)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case models.RequestStatus:
		return string(v), nil
	case json.RawMessage:
		return nullableJSON(v), nil
	case map[string]string:
		if v == nil {
			return nil, nil
		}

		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
		}

		return string(data), nil
	default:
		return v, nil
	}
}
