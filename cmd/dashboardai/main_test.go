package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/dashboardai/dashboardai/components/dashboard"
	"github.com/dashboardai/dashboardai/internal/config"
)

func TestAppGraphIsComplete(t *testing.T) {
	require.NoError(t, fx.ValidateApp(appOptions(&globals{})...))
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.StorageConfig{Driver: "etcd"})
	assert.EqualError(t, err, `dashboardai: unsupported storage driver "etcd"`)
}

func TestOpenStoreCreatesSQLiteDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dash.db")
	store, err := openStore(context.Background(), config.StorageConfig{Driver: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestLayoutImportExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "storage:\n  driver: sqlite\n  sqlite_path: " + filepath.Join(dir, "dash.db") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	g := &globals{Config: cfgPath}

	in := dashboard.Document{Widgets: []dashboard.Widget{{
		ID:        "spend",
		Kind:      dashboard.KindMetric,
		Title:     "Spend",
		Placement: dashboard.Placement{X: 0, Y: 0, W: 3, H: 2},
	}}}
	docPath := filepath.Join(dir, "in.yaml")
	f, err := os.Create(docPath)
	require.NoError(t, err)
	require.NoError(t, writeYAML(f, in))
	require.NoError(t, f.Close())

	ctx := context.Background()
	imp := &layoutImportCmd{viewerFlag: viewerFlag{User: "ana"}, File: docPath}
	require.NoError(t, imp.Run(ctx, g))

	outPath := filepath.Join(dir, "out.yaml")
	exp := &layoutExportCmd{viewerFlag: viewerFlag{User: "ana"}, Out: outPath}
	require.NoError(t, exp.Run(ctx, g))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var out dashboard.Document
	require.NoError(t, yaml.Unmarshal(data, &out))
	require.Len(t, out.Widgets, 1)
	assert.Equal(t, "spend", out.Widgets[0].ID)
	assert.Equal(t, "Spend", out.Widgets[0].Title)

	other := &layoutExportCmd{viewerFlag: viewerFlag{User: "bruno"}, Out: filepath.Join(dir, "other.yaml")}
	require.NoError(t, other.Run(ctx, g))
	data, err = os.ReadFile(other.Out)
	require.NoError(t, err)
	var empty dashboard.Document
	require.NoError(t, yaml.Unmarshal(data, &empty))
	assert.Empty(t, empty.Widgets)

	reset := &layoutResetCmd{viewerFlag: viewerFlag{User: "ana"}}
	require.NoError(t, reset.Run(ctx, g))
	require.NoError(t, exp.Run(ctx, g))
	data, err = os.ReadFile(outPath)
	require.NoError(t, err)
	out = dashboard.Document{}
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Empty(t, out.Widgets)
}
