package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestHTTPClientListAccounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contas" || r.Method != http.MethodGet {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("expected auth header, got %s", got)
		}
		_ = json.NewEncoder(w).Encode(DefaultDemoData().Accounts)
	})

	accounts, err := client.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "act_123456789", accounts[0].ExternalID)
	assert.False(t, accounts[2].Active)
}

func TestHTTPClientRejectsNonArrayPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":"not a list"}`))
	})

	_, err := client.ListUsers(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestHTTPClientAccountsByFacebookUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("facebook_id"); got != "10001" {
			t.Fatalf("expected facebook_id query, got %q", got)
		}
		_, _ = w.Write([]byte(`[]`))
	})

	accounts, err := client.AccountsByFacebookUser(context.Background(), "10001")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestHTTPClientSetAccountActive(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/contas/7" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]bool
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["ativo"] {
			t.Fatalf("expected ativo=false")
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.SetAccountActive(context.Background(), 7, false))
}

func TestHTTPClientServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	err := client.DeleteAccount(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, http.StatusBadGateway, unavailable.Status)
}

func TestHTTPClientClientErrorIsRemote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid", http.StatusUnprocessableEntity)
	})

	err := client.CreateAccount(context.Background(), AccountInput{Platform: "Google Ads", Type: "google"})
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.False(t, IsUnavailable(err))
}

func TestHTTPClientFetchMetaMetrics(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req MetricsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.AccountID != "act_1" || req.StartDate != "2025-07-01" {
			t.Fatalf("unexpected request body %#v", req)
		}
		_, _ = w.Write([]byte(`{"dados":[{"campaign_name":"Verão","clicks":12}]}`))
	})

	rows, err := client.FetchMetaMetrics(context.Background(), MetricsRequest{FacebookID: "1", AccountID: "act_1", StartDate: "2025-07-01", EndDate: "2025-07-13"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Verão", rows[0].String("campaign_name"))
	clicks, ok := rows[0].Number("clicks")
	assert.True(t, ok)
	assert.Equal(t, 12.0, clicks)
}

func TestHTTPClientFetchMetaMetricsErroPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"erro":"token expirado"}`))
	})

	_, err := client.FetchMetaMetrics(context.Background(), MetricsRequest{AccountID: "act_1"})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "token expirado")
}

func TestHTTPClientGenerateChartUsesAIBase(t *testing.T) {
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gerar-grafico" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req ChartRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt != "vendas por mês" {
			t.Fatalf("unexpected prompt %q", req.Prompt)
		}
		_, _ = w.Write([]byte(`{"type":"line","title":"Vendas","data":[],"config":{"xKey":"mes","yKey":"total"}}`))
	}))
	t.Cleanup(ai.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: "http://127.0.0.1:1", AIBaseURL: ai.URL})
	require.NoError(t, err)
	chart, err := client.GenerateChart(context.Background(), ChartRequest{Prompt: "vendas por mês"})
	require.NoError(t, err)
	assert.Equal(t, "line", chart["type"])
}

func newAIClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	ai := httptest.NewServer(handler)
	t.Cleanup(ai.Close)
	client, err := NewHTTPClient(HTTPConfig{BaseURL: "http://127.0.0.1:1", AIBaseURL: ai.URL})
	require.NoError(t, err)
	return client
}

func TestHTTPClientAskPostsForm(t *testing.T) {
	client := newAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/perguntar" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("pergunta"); got != "qual o total?" {
			t.Fatalf("unexpected pergunta %q", got)
		}
		if got := r.FormValue("google_sheets_url"); got != "https://docs.google.com/spreadsheets/d/abc" {
			t.Fatalf("unexpected sheet url %q", got)
		}
		_, _ = w.Write([]byte(`{"resposta":"R$ 10.000"}`))
	})

	answer, err := client.Ask(context.Background(), AskRequest{
		Question: " qual o total? ",
		Sheet:    Spreadsheet{URL: "https://docs.google.com/spreadsheets/d/abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "R$ 10.000", answer)
}

func TestHTTPClientAskRequiresResposta(t *testing.T) {
	client := newAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":"sem resposta"}`))
	})

	_, err := client.Ask(context.Background(), AskRequest{Question: "oi"})
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = client.Ask(context.Background(), AskRequest{Question: "  "})
	assert.Error(t, err)
}

func TestHTTPClientPreviewUploadsFile(t *testing.T) {
	client := newAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/preview" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		if header.Filename != "planilha.xlsx" || string(content) != "xlsx-bytes" {
			t.Fatalf("unexpected upload %s %q", header.Filename, content)
		}
		_, _ = w.Write([]byte(`{"columns":["mes","vendas"],"data":[{"mes":"Jan","vendas":100}]}`))
	})

	preview, err := client.Preview(context.Background(), Spreadsheet{File: []byte("xlsx-bytes")})
	require.NoError(t, err)
	assert.Equal(t, []string{"mes", "vendas"}, preview.Columns)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "Jan", preview.Rows[0]["mes"])
}

func TestHTTPClientPreviewRequiresColumns(t *testing.T) {
	client := newAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := client.Preview(context.Background(), Spreadsheet{URL: "https://docs.google.com/spreadsheets/d/abc"})
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = client.Preview(context.Background(), Spreadsheet{})
	assert.Error(t, err)
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(HTTPConfig{}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
