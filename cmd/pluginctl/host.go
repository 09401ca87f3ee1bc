// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/boltdb/bolt"

	"github.com/envstudio/envstudio/internal/config"
	"github.com/envstudio/envstudio/internal/plugin"
	"github.com/envstudio/envstudio/internal/plugin/binary"
	_ "github.com/envstudio/envstudio/internal/plugin/builtin/eventlog" // registers the builtin factory
	"github.com/envstudio/envstudio/internal/plugin/hostfunc"
	pluginlua "github.com/envstudio/envstudio/internal/plugin/lua"
	"github.com/envstudio/envstudio/internal/plugin/state"
	"github.com/envstudio/envstudio/internal/xdg"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// host bundles a wired manager with the bolt handle behind it for one
// command invocation.
type host struct {
	mgr *plugin.Manager
	db  *bolt.DB
}

// openHost wires a manager from config. withKV opens the bolt database
// backing the plugin key/value service even when enabled state lives in
// a file; commands that only read or flip state leave it closed, so a
// plain list never creates the database.
func openHost(cfg config.Config, withKV bool) (*host, error) {
	var db *bolt.DB
	if withKV || cfg.Plugins.StateBackend == config.BackendBolt {
		boltPath := xdg.BoltPath()
		if cfg.Plugins.StateBackend == config.BackendBolt {
			boltPath = cfg.Plugins.StatePath
		}
		var err error
		db, err = state.OpenBolt(boltPath)
		if err != nil {
			return nil, err
		}
	}

	var st state.Store
	if cfg.Plugins.StateBackend == config.BackendBolt {
		st = state.NewBoltStore(db)
	} else {
		st = state.NewFileStore(cfg.Plugins.StatePath)
	}

	var kv hostfunc.KVStore
	if db != nil {
		kv = state.NewBoltKV(db)
	}

	info := pluginsdk.NewAppInfo(cfg.App.Name, cfg.App.Version)
	mgr := plugin.NewManager(cfg.Plugins.Dir,
		plugin.WithRuntime(pluginlua.NewRuntime(hostfunc.New(info, kv))),
		plugin.WithRuntime(binary.NewRuntime()),
		plugin.WithStateStore(st),
		plugin.WithHostVersion(cfg.App.Version),
		plugin.WithAppContext(pluginsdk.NewAppContext(slog.Default(), info)),
		plugin.WithIgnorePatterns(cfg.Plugins.Ignore),
	)

	return &host{mgr: mgr, db: db}, nil
}

// Close unloads plugins and runtimes, then releases the database.
func (h *host) Close(ctx context.Context) error {
	err := h.mgr.Close(ctx)
	if h.db != nil {
		if dbErr := h.db.Close(); dbErr != nil && err == nil {
			err = dbErr
		}
	}
	return err
}

// findDiscovered returns the discovered plugin named name.
func findDiscovered(mgr *plugin.Manager, name string) (*plugin.DiscoveredPlugin, bool) {
	for _, dp := range mgr.Discovered() {
		if dp.Manifest.Name == name {
			return dp, true
		}
	}
	return nil, false
}
