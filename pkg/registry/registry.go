// Package registry holds the action factories flows are built from.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"slices"
	"strings"

	"github.com/dukex/restflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrActionNotRegistered = errors.New("action type not registered")
	ErrInvalidConfig       = errors.New("invalid action configuration")
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log,
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) LoadActionPlugins(pluginsPath string) ([]protocol.ActionFactory, error) {
	return loadPlugin[protocol.ActionFactory](r.logger, pluginsPath, "Action")
}

func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.actionFactories[actionFactory.ID()] = actionFactory
}

func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrActionNotRegistered, actionType)
	}

	return factory.Create(config)
}

// IsActionRegistered checks if an action type is registered.
func (r *Registry) IsActionRegistered(actionType string) bool {
	_, exists := r.actionFactories[actionType]

	return exists
}

// ValidateConfig checks a step configuration against the schema of its action type.
func (r *Registry) ValidateConfig(actionType string, config map[string]any) error {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrActionNotRegistered, actionType)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(factory.Schema()), gojsonschema.NewGoLoader(config))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// GetAvailableActions returns all available action types, sorted.
func (r *Registry) GetAvailableActions() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	slices.Sort(types)

	return types
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"
	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("failed to lookup %s in plugin %s: %w", symbolName, p, err)
		}

		castV, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s: %s has type %T", p, symbolName, v)
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
