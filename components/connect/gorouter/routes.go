// Package gorouter mounts the OAuth connection endpoints on a go-router
// router: attempt lifecycle calls from the opener page, the provider
// callback page and a notification stream.
package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	router "github.com/goliatone/go-router"
	"go.uber.org/zap"

	"github.com/dashboardai/dashboardai/components/connect"
)

// Config wires the coordinator and its collaborators to a router.
type Config[T any] struct {
	Router      router.Router[T]
	Coordinator *connect.Coordinator
	// Providers maps the :provider path segment to its flow.
	Providers map[string]connect.ProviderConfig
	Callback  *connect.CallbackHandler
	Notifier  *connect.HubNotifier
	Logger    *zap.Logger
	// BasePath prefixes the attempt and stream routes. Defaults to "/api".
	BasePath string
	// CallbackPath is the provider redirect path. Defaults to "/oauth/callback".
	CallbackPath string
}

type startPayload struct {
	PopupOpened bool `json:"popup_opened"`
}

type startResponse struct {
	AttemptID string    `json:"attempt_id"`
	AuthURL   string    `json:"auth_url"`
	Deadline  time.Time `json:"deadline"`
}

// Register mounts the routes.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Coordinator == nil {
		return errors.New("gorouter: coordinator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	callbackPath := cfg.CallbackPath
	if callbackPath == "" {
		callbackPath = "/oauth/callback"
	}

	group := cfg.Router.Group(base)
	registerAttempts(group, cfg)
	if cfg.Notifier != nil {
		registerStream(group, cfg.Notifier)
	}
	if cfg.Callback != nil {
		registerCallback(cfg.Router, callbackPath, cfg.Callback, cfg.Logger)
	}
	return nil
}

func registerAttempts[T any](r router.Router[T], cfg Config[T]) {
	coord := cfg.Coordinator
	var notifier connect.Notifier
	if cfg.Notifier != nil {
		notifier = cfg.Notifier
	}

	r.Post("/connect/:provider/start", router.WrapHandler(func(ctx router.Context) error {
		provider, ok := cfg.Providers[ctx.Param("provider")]
		if !ok {
			return respondStatus(ctx, http.StatusNotFound, errors.New("unknown provider"))
		}
		var payload startPayload
		if body := ctx.Body(); len(body) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				return respondStatus(ctx, http.StatusBadRequest, err)
			}
		}
		attempt, err := coord.Begin(ctx.Context(), provider, connect.RemoteLauncher{Notifier: notifier, Opened: payload.PopupOpened})
		if err != nil {
			return respondError(ctx, err)
		}
		snap := attempt.Snapshot()
		return ctx.JSON(http.StatusCreated, startResponse{
			AttemptID: snap.ID,
			AuthURL:   snap.AuthURL,
			Deadline:  snap.Deadline,
		})
	}))

	r.Get("/connect/attempts/:id", router.WrapHandler(func(ctx router.Context) error {
		snap, ok := coord.Attempt(ctx.Param("id"))
		if !ok {
			return respondError(ctx, connect.ErrUnknownAttempt)
		}
		return ctx.JSON(http.StatusOK, snap)
	}))

	r.Delete("/connect/attempts/:id", router.WrapHandler(func(ctx router.Context) error {
		if err := coord.Cancel(ctx.Param("id")); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "cancelling"})
	}))

	r.Post("/connect/attempts/:id/focus", router.WrapHandler(func(ctx router.Context) error {
		if err := coord.NotifyFocus(ctx.Param("id")); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "ok"})
	}))

	r.Post("/connect/attempts/:id/popup-closed", router.WrapHandler(func(ctx router.Context) error {
		if err := coord.ReportPopupClosed(ctx.Param("id")); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "ok"})
	}))
}

func registerStream[T any](r router.Router[T], notifier *connect.HubNotifier) {
	r.WebSocket("/connect/ws", router.DefaultWebSocketConfig(), func(ws router.WebSocketContext) error {
		events, cancel := notifier.Subscribe()
		defer cancel()
		for {
			select {
			case n, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(n); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Connecting…</title></head>
<body>
<p>{{if eq .Message.Type "OAUTH_SUCCESS"}}Accounts connected. You can close this window.{{else}}Connection failed. You can close this window.{{end}}</p>
<script>
(function () {
  var message = {{.Message}};
  if (window.opener) {
    window.opener.postMessage(message, {{.Origin}});
  }
  window.close();
})();
</script>
</body>
</html>
`))

type callbackView struct {
	Message connect.Message
	Origin  string
}

func registerCallback[T any](r router.Router[T], path string, handler *connect.CallbackHandler, logger *zap.Logger) {
	r.Get(path, router.WrapHandler(func(ctx router.Context) error {
		msg, err := handler.Handle(ctx.Context(), connect.CallbackInput{
			Code:             ctx.Query("code"),
			State:            ctx.Query("state"),
			Error:            ctx.Query("error"),
			ErrorDescription: ctx.Query("error_description"),
		})
		if err != nil {
			logger.Warn("oauth callback rejected", zap.Error(err))
		}
		page, err := RenderCallbackPage(msg)
		if err != nil {
			return respondStatus(ctx, http.StatusInternalServerError, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(page)
	}))
}

// RenderCallbackPage renders the page that posts msg to its opener at
// msg.Origin and closes itself.
func RenderCallbackPage(msg connect.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := callbackPage.Execute(&buf, callbackView{Message: msg, Origin: msg.Origin}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StatusFor maps coordinator errors to HTTP statuses.
func StatusFor(err error) int {
	var blocked *connect.PopupBlockedError
	switch {
	case errors.As(err, &blocked):
		return http.StatusConflict
	case errors.Is(err, connect.ErrUnknownAttempt):
		return http.StatusNotFound
	case errors.Is(err, connect.ErrForeignOrigin):
		return http.StatusForbidden
	case errors.Is(err, connect.ErrStaleMessage):
		return http.StatusConflict
	case errors.Is(err, connect.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, connect.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx router.Context, err error) error {
	body := map[string]string{"error": err.Error()}
	var blocked *connect.PopupBlockedError
	if errors.As(err, &blocked) {
		body["code"] = "popup_blocked"
	}
	return ctx.JSON(StatusFor(err), body)
}

func respondStatus(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}
