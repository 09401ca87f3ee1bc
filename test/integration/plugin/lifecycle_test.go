// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

//go:build integration

package plugin_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/envstudio/envstudio/internal/plugin"
	"github.com/envstudio/envstudio/internal/plugin/builtin/eventlog"
	"github.com/envstudio/envstudio/internal/plugin/hostfunc"
	pluginlua "github.com/envstudio/envstudio/internal/plugin/lua"
	"github.com/envstudio/envstudio/internal/plugin/state"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// locateShippedPlugins walks up from the working directory to the
// repository's plugins directory.
func locateShippedPlugins() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, "plugins")
		if _, err := os.Stat(filepath.Join(candidate, "envwatch", "plugin.yaml")); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("plugins directory not found above working directory")
		}
		dir = parent
	}
}

// copyTree copies the fixture tree into dst so runtime artifacts stay
// out of the repository.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o600)
	})
}

var _ = Describe("Shipped plugins", func() {
	var (
		ctx        context.Context
		mgr        *plugin.Manager
		kv         *state.BoltKV
		store      *state.BoltStore
		pluginsDir string
	)

	newManager := func() *plugin.Manager {
		hf := hostfunc.New(pluginsdk.NewAppInfo("EnvStudio", "2.1.0"), kv)
		m := plugin.NewManager(pluginsDir,
			plugin.WithRuntime(pluginlua.NewRuntime(hf)),
			plugin.WithStateStore(store),
			plugin.WithHostVersion("2.1.0"),
		)
		DeferCleanup(func() { _ = m.Close(ctx) })
		return m
	}

	BeforeEach(func() {
		ctx = context.Background()

		src, err := locateShippedPlugins()
		Expect(err).NotTo(HaveOccurred(), "repository plugins directory should exist")

		scratch, err := os.MkdirTemp("", "envstudio-plugins-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(scratch) })

		pluginsDir = filepath.Join(scratch, "plugins")
		Expect(copyTree(src, pluginsDir)).To(Succeed())

		db, err := state.OpenBolt(filepath.Join(scratch, "plugins.db"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = db.Close() })
		kv = state.NewBoltKV(db)
		store = state.NewBoltStore(db)

		mgr = newManager()
		_, err = mgr.Discover(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	It("discovers the bundled manifests without warnings", func() {
		var names []string
		for _, dp := range mgr.Discovered() {
			names = append(names, dp.Manifest.Name)
		}
		Expect(names).To(ContainElements("envwatch", "eventlog", "verscan"))
		Expect(mgr.Warnings()).To(BeEmpty())
	})

	It("loads envwatch and normalizes rename targets", func() {
		inst, err := mgr.Load(ctx, "envwatch")
		Expect(err).NotTo(HaveOccurred())
		Expect(inst.Status).To(Equal(plugin.StatusActive))

		results, err := mgr.ExecuteHook(ctx, pluginsdk.HookBeforeRenameEnv, &pluginsdk.EnvRename{
			EnvName: "mlwork",
			NewName: "MLWork-V2",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Err).NotTo(HaveOccurred())

		renamed, ok := results[0].Payload.(*pluginsdk.EnvRename)
		Expect(ok).To(BeTrue(), "payload should keep its typed shape")
		Expect(renamed.NewName).To(Equal("mlwork-v2"))
		Expect(renamed.EnvName).To(Equal("mlwork"))
	})

	It("persists envwatch counters in the KV store", func() {
		_, err := mgr.Load(ctx, "envwatch")
		Expect(err).NotTo(HaveOccurred())

		for _, name := range []string{"one", "two"} {
			_, err := mgr.ExecuteHook(ctx, pluginsdk.HookAfterCreateEnv, &pluginsdk.EnvCreate{EnvName: name})
			Expect(err).NotTo(HaveOccurred())
		}

		value, err := kv.Get(ctx, "envwatch", "created")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(value)).To(Equal("2"))
	})

	It("writes the event log through the builtin runtime", func() {
		_, err := mgr.Load(ctx, "eventlog")
		Expect(err).NotTo(HaveOccurred())

		_, err = mgr.ExecuteHook(ctx, pluginsdk.HookOnAppStart, &pluginsdk.AppLifecycle{Version: "2.1.0"})
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.Unload(ctx, "eventlog")).To(Succeed())

		data, err := os.ReadFile(filepath.Join(pluginsDir, "eventlog", eventlog.FileName))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"hook":"on_app_start"`))
		Expect(string(data)).To(ContainSubstring(`"summary":true`))
	})

	It("keeps a disabled plugin off across a restart", func() {
		Expect(mgr.SetEnabled(ctx, "envwatch", false)).To(Succeed())
		Expect(mgr.Close(ctx)).To(Succeed())

		second := newManager()
		// verscan ships as source only, so its load fails and is skipped.
		Expect(second.LoadEnabled(ctx)).To(Succeed())

		_, loaded := second.Plugin("envwatch")
		Expect(loaded).To(BeFalse(), "disabled state survived the restart")
		_, loaded = second.Plugin("eventlog")
		Expect(loaded).To(BeTrue(), "default-enabled plugin came back")
	})
})
