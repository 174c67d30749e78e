// Package file provides file-based persistence for routes, flows and request logs.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dukex/restflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Every entity is stored as one JSON document under a directory per entity kind.
type Persistence struct {
	root        string
	routeRepo   *RouteRepository
	requestRepo *RequestRepository
	flowRepo    *FlowRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		routeRepo:   NewRouteRepository(cleanRoot),
		requestRepo: NewRequestRepository(cleanRoot),
		flowRepo:    NewFlowRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) RouteRepository() persistence.RouteRepository {
	return fp.routeRepo
}

func (fp *Persistence) RequestRepository() persistence.RequestRepository {
	return fp.requestRepo
}

func (fp *Persistence) FlowRepository() persistence.FlowRepository {
	return fp.flowRepo
}

func documentPath(root, dir, id string) string {
	return filepath.Clean(path.Join(root, dir, id+".json"))
}

// readDocument loads root/dir/id.json into target. A missing file yields fs.ErrNotExist.
func readDocument(root, dir, id string, target any) error {
	body, err := os.ReadFile(documentPath(root, dir, id))
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", dir, id, err)
	}

	return nil
}

func writeDocument(root, dir, id string, value any) error {
	err := os.MkdirAll(path.Join(root, dir), 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", dir, id, err)
	}

	err = os.WriteFile(documentPath(root, dir, id), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", dir, id, err)
	}

	return nil
}

// listDocuments returns the ids of every document stored under root/dir, in file name order.
func listDocuments(root, dir string) ([]string, error) {
	files, err := fs.Glob(os.DirFS(path.Join(root, dir)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", dir, err)
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
