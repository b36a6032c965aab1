package gorouter

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashboardai/dashboardai/components/connect"
	"github.com/dashboardai/dashboardai/pkg/backend"
)

func TestRegisterValidatesConfig(t *testing.T) {
	err := Register(Config[any]{})
	assert.EqualError(t, err, "gorouter: router is required")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&connect.PopupBlockedError{Provider: "facebook"}, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", connect.ErrUnknownAttempt), http.StatusNotFound},
		{connect.ErrForeignOrigin, http.StatusForbidden},
		{connect.ErrStaleMessage, http.StatusConflict},
		{connect.ErrInvalidMessage, http.StatusBadRequest},
		{connect.ErrClosed, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestRenderCallbackPageSuccess(t *testing.T) {
	page, err := RenderCallbackPage(connect.Message{
		Origin: "http://app.local",
		State:  "tok",
		Type:   connect.MessageSuccess,
		Data: &connect.MessageData{Accounts: []backend.ImportedAccount{
			{Platform: "Facebook Ads", Name: "Loja </script>"},
		}},
	})
	require.NoError(t, err)
	html := string(page)

	assert.Contains(t, html, "Accounts connected")
	assert.Contains(t, html, `window.opener.postMessage(message, "http://app.local")`)
	assert.Contains(t, html, `"type":"OAUTH_SUCCESS"`)
	assert.Contains(t, html, "window.close()")
	assert.Equal(t, 1, strings.Count(html, "</script>"), "account names are escaped")
}

func TestRenderCallbackPageError(t *testing.T) {
	page, err := RenderCallbackPage(connect.Message{
		Origin: "http://app.local",
		Type:   connect.MessageError,
		Error:  &connect.ErrorPayload{Message: "denied"},
	})
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "Connection failed")
	assert.Contains(t, html, `"message":"denied"`)
}
