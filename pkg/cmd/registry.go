// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	logaction "github.com/dukex/restflow/pkg/actions/log"
	"github.com/dukex/restflow/pkg/actions/read"
	"github.com/dukex/restflow/pkg/actions/respond"
	"github.com/dukex/restflow/pkg/backend"
	"github.com/dukex/restflow/pkg/protocol"
	"github.com/dukex/restflow/pkg/registry"
)

func registerActionPlugins(reg *registry.Registry, pluginsPath string) error {
	actionPlugins, err := reg.LoadActionPlugins(pluginsPath)
	if err != nil {
		return err
	}

	for _, plugin := range actionPlugins {
		reg.RegisterAction(plugin)
	}

	return nil
}

func registerNativeActions(reg *registry.Registry, reader backend.Reader, writer protocol.ResponseWriter) {
	reg.RegisterAction(read.NewActionFactory(reader, writer))
	reg.RegisterAction(respond.NewActionFactory(writer))
	reg.RegisterAction(logaction.NewActionFactory())
}

// NewRegistry registers plugin actions first, so native actions win on id clashes.
func NewRegistry(log *slog.Logger, pluginsPath string, reader backend.Reader, writer protocol.ResponseWriter) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	if pluginsPath != "" {
		err := registerActionPlugins(reg, pluginsPath)
		if err != nil {
			return nil, err
		}
	}

	registerNativeActions(reg, reader, writer)

	return reg, nil
}
