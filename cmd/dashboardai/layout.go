package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dashboardai/dashboardai/components/dashboard"
	"github.com/dashboardai/dashboardai/components/dashboard/commands"
	"github.com/dashboardai/dashboardai/internal/config"
	"github.com/dashboardai/dashboardai/internal/logging"
	"github.com/dashboardai/dashboardai/pkg/kvstore"
)

type layoutCmd struct {
	Show   layoutShowCmd   `cmd:"" help:"Print the resolved layout of a user."`
	Reset  layoutResetCmd  `cmd:"" help:"Remove every widget and layout of a user."`
	Export layoutExportCmd `cmd:"" help:"Write a user's dashboard document as YAML."`
	Import layoutImportCmd `cmd:"" help:"Replace a user's dashboard with a YAML document."`
}

type viewerFlag struct {
	User string `short:"u" help:"User whose dashboard to use (empty for the shared dashboard)."`
}

func (f viewerFlag) viewer() dashboard.ViewerContext {
	return dashboard.ViewerContext{UserID: f.User}
}

type layoutShowCmd struct {
	viewerFlag
}

type layoutResetCmd struct {
	viewerFlag
}

type layoutExportCmd struct {
	viewerFlag
	Out string `short:"o" type:"path" help:"Output file (defaults to stdout)."`
}

type layoutImportCmd struct {
	viewerFlag
	File string `arg:"" type:"existingfile" help:"YAML document produced by layout export."`
}

// layoutEnv is a dashboard service over the configured store, without the
// HTTP stack.
type layoutEnv struct {
	store   kvstore.Store
	service *dashboard.Service
	restore *commands.RestoreDashboardCommand
}

func openLayoutEnv(ctx context.Context, g *globals) (*layoutEnv, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	telemetry := logging.NewTelemetry(logger)
	svc := dashboard.NewService(dashboard.Options{
		Store:     dashboard.NewKVSnapshotStore(store, cfg.Storage.LayoutKey),
		Telemetry: telemetry,
		Logger:    logger,
	})
	return &layoutEnv{
		store:   store,
		service: svc,
		restore: commands.NewRestoreDashboardCommand(svc, telemetry),
	}, nil
}

func (e *layoutEnv) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.store.Close(ctx)
}

func (cmd *layoutShowCmd) Run(ctx context.Context, g *globals) error {
	env, err := openLayoutEnv(ctx, g)
	if err != nil {
		return err
	}
	defer env.close()
	layout, err := env.service.Layout(ctx, cmd.viewer())
	if err != nil {
		return err
	}
	return writeYAML(os.Stdout, layout)
}

func (cmd *layoutResetCmd) Run(ctx context.Context, g *globals) error {
	env, err := openLayoutEnv(ctx, g)
	if err != nil {
		return err
	}
	defer env.close()
	if err := env.restore.Execute(ctx, commands.RestoreDashboardInput{Viewer: cmd.viewer()}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Reset dashboard of %q\n", cmd.User)
	return nil
}

func (cmd *layoutExportCmd) Run(ctx context.Context, g *globals) error {
	env, err := openLayoutEnv(ctx, g)
	if err != nil {
		return err
	}
	defer env.close()
	doc, err := env.service.Document(ctx, cmd.viewer())
	if err != nil {
		return err
	}
	if cmd.Out == "" {
		return writeYAML(os.Stdout, doc)
	}
	f, err := os.Create(cmd.Out)
	if err != nil {
		return fmt.Errorf("dashboardai: create %s: %w", cmd.Out, err)
	}
	defer f.Close()
	if err := writeYAML(f, doc); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Exported %d widgets to %s\n", len(doc.Widgets), cmd.Out)
	return nil
}

func (cmd *layoutImportCmd) Run(ctx context.Context, g *globals) error {
	data, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("dashboardai: read %s: %w", cmd.File, err)
	}
	var doc dashboard.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("dashboardai: parse %s: %w", cmd.File, err)
	}
	env, err := openLayoutEnv(ctx, g)
	if err != nil {
		return err
	}
	defer env.close()
	if err := env.restore.Execute(ctx, commands.RestoreDashboardInput{Viewer: cmd.viewer(), Document: doc}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Imported %d widgets from %s\n", len(doc.Widgets), cmd.File)
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("dashboardai: encode yaml: %w", err)
	}
	return enc.Close()
}
