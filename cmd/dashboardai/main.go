package main

import (
	"context"

	"github.com/alecthomas/kong"
)

type globals struct {
	Config string `short:"c" type:"path" env:"DASHBOARDAI_CONFIG" help:"Path to a YAML configuration file."`
}

type cli struct {
	globals

	Serve  serveCmd  `cmd:"" default:"1" help:"Run the HTTP API, WebSocket streams and OAuth callback."`
	Layout layoutCmd `cmd:"" help:"Inspect or edit a stored dashboard."`
}

func main() {
	var app cli
	ctx := kong.Parse(&app,
		kong.Name("dashboardai"),
		kong.Description("DashboardAI service: ad account connections, dashboards, metrics and funnels."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background(), &app.globals)
	ctx.FatalIfErrorf(err)
}
