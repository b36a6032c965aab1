// Package gorouter mounts the funnel-flow endpoints on a go-router router.
package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"

	router "github.com/goliatone/go-router"

	"github.com/dashboardai/dashboardai/components/funnel"
)

// ViewerResolver returns the user whose flow a request edits.
type ViewerResolver func(router.Context) string

// Config wires the funnel service to a router.
type Config[T any] struct {
	Router         router.Router[T]
	Service        *funnel.Service
	ViewerResolver ViewerResolver
	// BasePath defaults to "/api".
	BasePath string
}

type edgePayload struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Register mounts the routes.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Service == nil {
		return errors.New("gorouter: funnel service is required")
	}
	viewer := cfg.ViewerResolver
	if viewer == nil {
		viewer = func(ctx router.Context) string { return ctx.Header("X-User-ID") }
	}
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	svc := cfg.Service
	r := cfg.Router.Group(base)

	r.Get("/funnel", router.WrapHandler(func(ctx router.Context) error {
		doc, err := svc.Load(ctx.Context(), viewer(ctx))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, doc)
	}))

	r.Put("/funnel", router.WrapHandler(func(ctx router.Context) error {
		var g funnel.Graph
		if err := json.Unmarshal(ctx.Body(), &g); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		doc, err := svc.Save(ctx.Context(), viewer(ctx), g)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, doc)
	}))

	r.Get("/funnel/templates", router.WrapHandler(func(ctx router.Context) error {
		return ctx.JSON(http.StatusOK, funnel.Templates())
	}))

	r.Post("/funnel/nodes", router.WrapHandler(func(ctx router.Context) error {
		var in funnel.NodeInput
		if err := json.Unmarshal(ctx.Body(), &in); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		node, err := svc.AddNode(ctx.Context(), viewer(ctx), in)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, node)
	}))

	r.Delete("/funnel/nodes/:id", router.WrapHandler(func(ctx router.Context) error {
		if err := svc.RemoveNode(ctx.Context(), viewer(ctx), ctx.Param("id")); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "removed"})
	}))

	r.Post("/funnel/edges", router.WrapHandler(func(ctx router.Context) error {
		var payload edgePayload
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		edge, err := svc.Connect(ctx.Context(), viewer(ctx), payload.Source, payload.Target)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, edge)
	}))
	return nil
}

// StatusFor maps funnel errors to HTTP statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, funnel.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, funnel.ErrDuplicateEdge):
		return http.StatusConflict
	case errors.Is(err, funnel.ErrUnknownTemplate), errors.Is(err, funnel.ErrSelfLoop), errors.Is(err, funnel.ErrInvalidNode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx router.Context, err error) error {
	return respondStatus(ctx, StatusFor(err), err)
}

func respondStatus(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}
