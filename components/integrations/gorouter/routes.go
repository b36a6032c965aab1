// Package gorouter mounts the integrations and metrics endpoints on a
// go-router router.
package gorouter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	router "github.com/goliatone/go-router"

	"github.com/dashboardai/dashboardai/components/integrations"
	"github.com/dashboardai/dashboardai/components/metrics"
	"github.com/dashboardai/dashboardai/pkg/backend"
)

// Config wires the services to a router.
type Config[T any] struct {
	Router       router.Router[T]
	Integrations *integrations.Service
	Metrics      *metrics.Service
	// BasePath defaults to "/api".
	BasePath string
}

type activePayload struct {
	Active bool `json:"is_active"`
}

// MetricsQuery is the body of POST /metrics/query.
type MetricsQuery struct {
	FacebookID string   `json:"facebook_id"`
	AccountID  string   `json:"account_id"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Fields     []string `json:"fields"`
	metrics.Query
}

// Request converts the wire dates.
func (q MetricsQuery) Request() (metrics.Request, error) {
	req := metrics.Request{FacebookID: q.FacebookID, AccountID: q.AccountID, Fields: q.Fields}
	var err error
	if req.Start, err = parseDate(q.StartDate); err != nil {
		return metrics.Request{}, fmt.Errorf("%w: start_date: %v", metrics.ErrInvalidRequest, err)
	}
	if req.End, err = parseDate(q.EndDate); err != nil {
		return metrics.Request{}, fmt.Errorf("%w: end_date: %v", metrics.ErrInvalidRequest, err)
	}
	return req, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(metrics.DateLayout, raw)
}

// Register mounts the routes. Either service may be nil to skip its routes.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Integrations == nil && cfg.Metrics == nil {
		return errors.New("gorouter: no service to mount")
	}
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	group := cfg.Router.Group(base)
	if cfg.Integrations != nil {
		registerIntegrations(group, cfg.Integrations)
	}
	if cfg.Metrics != nil {
		registerMetrics(group, cfg.Metrics)
	}
	return nil
}

func registerIntegrations[T any](r router.Router[T], svc *integrations.Service) {
	r.Get("/integrations", router.WrapHandler(func(ctx router.Context) error {
		accounts, err := svc.List(ctx.Context())
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, accounts)
	}))

	r.Post("/integrations", router.WrapHandler(func(ctx router.Context) error {
		var in integrations.ConnectInput
		if err := json.Unmarshal(ctx.Body(), &in); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		accounts, err := svc.Create(ctx.Context(), in)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, accounts)
	}))

	r.Post("/integrations/:id/active", router.WrapHandler(func(ctx router.Context) error {
		id, err := strconv.Atoi(ctx.Param("id"))
		if err != nil {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("invalid account id"))
		}
		var payload activePayload
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := svc.SetActive(ctx.Context(), id, payload.Active); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]any{"id": id, "is_active": payload.Active})
	}))

	r.Delete("/integrations/:id", router.WrapHandler(func(ctx router.Context) error {
		id, err := strconv.Atoi(ctx.Param("id"))
		if err != nil {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("invalid account id"))
		}
		if err := svc.Delete(ctx.Context(), id); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "removed"})
	}))

	r.Get("/integrations/users", router.WrapHandler(func(ctx router.Context) error {
		users, err := svc.Users(ctx.Context())
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, users)
	}))

	r.Get("/integrations/users/:facebook_id/accounts", router.WrapHandler(func(ctx router.Context) error {
		accounts, err := svc.AccountsForUser(ctx.Context(), ctx.Param("facebook_id"))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, accounts)
	}))
}

func registerMetrics[T any](r router.Router[T], svc *metrics.Service) {
	r.Post("/metrics/query", router.WrapHandler(func(ctx router.Context) error {
		var q MetricsQuery
		if err := json.Unmarshal(ctx.Body(), &q); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		req, err := q.Request()
		if err != nil {
			return respondError(ctx, err)
		}
		rows, err := svc.Fetch(ctx.Context(), req)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, metrics.Apply(rows, q.Query))
	}))
}

// StatusFor maps service and backend errors to HTTP statuses.
func StatusFor(err error) int {
	var remote *backend.RemoteError
	switch {
	case errors.Is(err, integrations.ErrInvalidAccount), errors.Is(err, metrics.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, integrations.ErrAccountNotFound):
		return http.StatusNotFound
	case backend.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &remote):
		if remote.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
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
