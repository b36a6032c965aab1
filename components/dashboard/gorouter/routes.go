// Package gorouter mounts the dashboard API on a go-router router.
package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/dashboardai/dashboardai/components/dashboard"
	"github.com/dashboardai/dashboardai/components/dashboard/commands"
	"github.com/dashboardai/dashboardai/components/dashboard/httpapi"
	"github.com/dashboardai/dashboardai/components/dashboard/queries"
	"github.com/dashboardai/dashboardai/pkg/backend"
)

// ViewerResolver converts a router.Context into a dashboard.ViewerContext.
type ViewerResolver func(router.Context) dashboard.ViewerContext

// Config wires go-router with the dashboard executor and event hook.
type Config[T any] struct {
	Router         router.Router[T]
	API            httpapi.Executor
	Broadcast      *dashboard.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	Layout    string
	Widgets   string
	WidgetID  string
	Layouts   string
	Move      string
	Chart     string
	Generate  string
	Ask       string
	Preview   string
	WebSocket string
}

// Register mounts dashboard routes (JSON, chart HTML, WebSocket).
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: executor is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	resolver := cfg.ViewerResolver
	if resolver == nil {
		resolver = DefaultViewerResolver
	}

	group := cfg.Router.Group(base)
	registerAPI(group, cfg.API, resolver, routes)
	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, resolver, routes.WebSocket)
	}
	return nil
}

type movePayload struct {
	Placement dashboard.Placement `json:"placement"`
}

func registerAPI[T any](r router.Router[T], api httpapi.Executor, resolver ViewerResolver, routes RouteConfig) {
	r.Get(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
		layout, err := api.Layout(ctx.Context(), resolver(ctx))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, layout)
	}))

	r.Post(routes.Widgets, router.WrapHandler(func(ctx router.Context) error {
		var spec dashboard.WidgetSpec
		if err := json.Unmarshal(ctx.Body(), &spec); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		widget, err := api.AddWidget(ctx.Context(), commands.AddWidgetInput{Viewer: resolver(ctx), Spec: spec})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, widget)
	}))

	r.Delete(routes.WidgetID, router.WrapHandler(func(ctx router.Context) error {
		id := ctx.Param("id")
		if id == "" {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("widget id is required"))
		}
		if err := api.RemoveWidget(ctx.Context(), commands.RemoveWidgetInput{Viewer: resolver(ctx), WidgetID: id}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "removed"})
	}))

	r.Post(routes.Layouts, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.UpdateLayoutsInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		payload.Viewer = resolver(ctx)
		layout, err := api.UpdateLayouts(ctx.Context(), payload)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, layout)
	}))

	r.Post(routes.Move, router.WrapHandler(func(ctx router.Context) error {
		var payload movePayload
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		widget, err := api.MoveWidget(ctx.Context(), commands.MoveWidgetInput{
			Viewer:    resolver(ctx),
			WidgetID:  ctx.Param("id"),
			Placement: payload.Placement,
		})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, widget)
	}))

	r.Get(routes.Chart, router.WrapHandler(func(ctx router.Context) error {
		html, err := api.ChartHTML(ctx.Context(), queries.ChartHTMLInput{Viewer: resolver(ctx), WidgetID: ctx.Param("id")})
		if err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send([]byte(html))
	}))

	r.Post(routes.Generate, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.ImportGeneratedChartInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		payload.Viewer = resolver(ctx)
		widget, err := api.GenerateChart(ctx.Context(), payload)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, widget)
	}))

	r.Post(routes.Ask, router.WrapHandler(func(ctx router.Context) error {
		var payload queries.AskInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		payload.Viewer = resolver(ctx)
		reply, err := api.Ask(ctx.Context(), payload)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, reply)
	}))

	r.Post(routes.Preview, router.WrapHandler(func(ctx router.Context) error {
		var sheet backend.Spreadsheet
		if err := json.Unmarshal(ctx.Body(), &sheet); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		preview, err := api.Preview(ctx.Context(), sheet)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, preview)
	}))
}

// registerWebSocket streams the viewer's own widget events.
func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, resolver ViewerResolver, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		viewer := resolver(ws)
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if !event.Visible(viewer) {
					continue
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

// DefaultViewerResolver reads the user id from request locals (set by auth
// middleware), the X-User-ID header or the user_id query parameter.
func DefaultViewerResolver(ctx router.Context) dashboard.ViewerContext {
	if v, ok := ctx.Locals("user_id").(string); ok && v != "" {
		return dashboard.ViewerContext{UserID: v}
	}
	if v := strings.TrimSpace(ctx.Header("X-User-ID")); v != "" {
		return dashboard.ViewerContext{UserID: v}
	}
	return dashboard.ViewerContext{UserID: strings.TrimSpace(ctx.Query("user_id"))}
}

func respondError(ctx router.Context, err error) error {
	return respondStatus(ctx, httpapi.StatusFor(err), err)
}

func respondStatus(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Layout == "" {
		routes.Layout = "/dashboard/layout"
	}
	if routes.Widgets == "" {
		routes.Widgets = "/dashboard/widgets"
	}
	if routes.WidgetID == "" {
		routes.WidgetID = "/dashboard/widgets/:id"
	}
	if routes.Layouts == "" {
		routes.Layouts = "/dashboard/layouts"
	}
	if routes.Move == "" {
		routes.Move = "/dashboard/widgets/:id/move"
	}
	if routes.Chart == "" {
		routes.Chart = "/dashboard/widgets/:id/chart"
	}
	if routes.Generate == "" {
		routes.Generate = "/dashboard/charts/generate"
	}
	if routes.Ask == "" {
		routes.Ask = "/dashboard/assistant/ask"
	}
	if routes.Preview == "" {
		routes.Preview = "/dashboard/assistant/preview"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/dashboard/ws"
	}
	return routes
}
