package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPConfig configures the HTTP backend client.
type HTTPConfig struct {
	BaseURL    string
	AIBaseURL  string
	APIKey     string
	HTTPClient *http.Client
	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64
	Burst     int
}

// HTTPClient talks to the DashboardAI REST backend.
type HTTPClient struct {
	baseURL   string
	aiBaseURL string
	apiKey    string
	client    *http.Client
	limiter   *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the live backend.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	aiBase := cfg.AIBaseURL
	if aiBase == "" {
		aiBase = cfg.BaseURL
	}
	c := &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		aiBaseURL: strings.TrimRight(aiBase, "/"),
		apiKey:    cfg.APIKey,
		client:    httpClient,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

func (c *HTTPClient) ListAccounts(ctx context.Context) ([]Account, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list accounts", http.MethodGet, c.baseURL+"/contas", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Account](raw)
}

func (c *HTTPClient) AccountsByFacebookUser(ctx context.Context, facebookID string) ([]Account, error) {
	if facebookID == "" {
		return nil, errors.New("backend: facebook id is required")
	}
	endpoint := c.baseURL + "/contas?" + url.Values{"facebook_id": {facebookID}}.Encode()
	var raw json.RawMessage
	if err := c.do(ctx, "list user accounts", http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Account](raw)
}

func (c *HTTPClient) CreateAccount(ctx context.Context, input AccountInput) error {
	return c.do(ctx, "create account", http.MethodPost, c.baseURL+"/contas", input, nil)
}

func (c *HTTPClient) SetAccountActive(ctx context.Context, id int, active bool) error {
	body := map[string]bool{"ativo": active}
	return c.do(ctx, "update account", http.MethodPatch, c.baseURL+"/contas/"+strconv.Itoa(id), body, nil)
}

func (c *HTTPClient) DeleteAccount(ctx context.Context, id int) error {
	return c.do(ctx, "delete account", http.MethodDelete, c.baseURL+"/contas/"+strconv.Itoa(id), nil, nil)
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]FacebookUser, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list users", http.MethodGet, c.baseURL+"/users", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[FacebookUser](raw)
}

func (c *HTTPClient) ImportFacebookAccounts(ctx context.Context, req ImportRequest) error {
	return c.do(ctx, "import accounts", http.MethodPost, c.baseURL+"/oauth/facebook/import", req, nil)
}

type metricsResponse struct {
	Rows  json.RawMessage `json:"dados"`
	Error string          `json:"erro"`
}

func (c *HTTPClient) FetchMetaMetrics(ctx context.Context, req MetricsRequest) ([]MetricRow, error) {
	var resp metricsResponse
	if err := c.do(ctx, "meta metrics", http.MethodPost, c.baseURL+"/api/v1/meta/dados", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &UnavailableError{Op: "meta metrics", Err: errors.New(resp.Error)}
	}
	if len(bytes.TrimSpace(resp.Rows)) == 0 || string(bytes.TrimSpace(resp.Rows)) == "null" {
		return []MetricRow{}, nil
	}
	return decodeList[MetricRow](resp.Rows)
}

func (c *HTTPClient) GenerateChart(ctx context.Context, req ChartRequest) (GeneratedChart, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("backend: chart prompt is required")
	}
	var chart GeneratedChart
	if err := c.do(ctx, "generate chart", http.MethodPost, c.aiBaseURL+"/gerar-grafico", req, &chart); err != nil {
		return nil, err
	}
	return chart, nil
}

type askResponse struct {
	Answer string `json:"resposta"`
}

// Ask posts the question as a form with the sheet URL or file attached.
func (c *HTTPClient) Ask(ctx context.Context, req AskRequest) (string, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return "", errors.New("backend: question is required")
	}
	body, contentType, err := sheetForm(req.Sheet, map[string]string{"pergunta": question})
	if err != nil {
		return "", err
	}
	var resp askResponse
	if err := c.send(ctx, "ask", http.MethodPost, c.aiBaseURL+"/perguntar", body, contentType, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Answer) == "" {
		return "", fmt.Errorf("%w: no resposta in ask response", ErrUnexpectedShape)
	}
	return resp.Answer, nil
}

// Preview uploads the sheet and returns its columns and first rows.
func (c *HTTPClient) Preview(ctx context.Context, sheet Spreadsheet) (SheetPreview, error) {
	if sheet.Empty() {
		return SheetPreview{}, errors.New("backend: spreadsheet url or file is required")
	}
	body, contentType, err := sheetForm(sheet, nil)
	if err != nil {
		return SheetPreview{}, err
	}
	var preview SheetPreview
	if err := c.send(ctx, "preview", http.MethodPost, c.aiBaseURL+"/preview", body, contentType, &preview); err != nil {
		return SheetPreview{}, err
	}
	if len(preview.Columns) == 0 {
		return SheetPreview{}, fmt.Errorf("%w: preview without columns", ErrUnexpectedShape)
	}
	if preview.Rows == nil {
		preview.Rows = []map[string]any{}
	}
	return preview, nil
}

// sheetForm encodes fields plus the sheet as multipart/form-data.
func sheetForm(sheet Spreadsheet, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("backend: encode form: %w", err)
		}
	}
	switch {
	case sheet.URL != "":
		if err := form.WriteField("google_sheets_url", sheet.URL); err != nil {
			return nil, "", fmt.Errorf("backend: encode form: %w", err)
		}
	case len(sheet.File) > 0:
		name := sheet.FileName
		if name == "" {
			name = "planilha.xlsx"
		}
		part, err := form.CreateFormFile("file", name)
		if err != nil {
			return nil, "", fmt.Errorf("backend: encode form: %w", err)
		}
		if _, err := part.Write(sheet.File); err != nil {
			return nil, "", fmt.Errorf("backend: encode form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("backend: encode form: %w", err)
	}
	return &buf, form.FormDataContentType(), nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, endpoint string, payload any, target any) error {
	if payload == nil {
		return c.send(ctx, op, method, endpoint, nil, "", target)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backend: encode %s payload: %w", op, err)
	}
	return c.send(ctx, op, method, endpoint, bytes.NewReader(data), "application/json", target)
}

func (c *HTTPClient) send(ctx context.Context, op, method, endpoint string, body io.Reader, contentType string, target any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("backend: %s: rate limit: %w", op, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("backend: build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &UnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(io.LimitReader(resp.Body, 4<<10))
		if resp.StatusCode >= 500 {
			return &UnavailableError{Op: op, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(buf.String()))}
		}
		return &RemoteError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(buf.String())}
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("backend: decode %s response: %w", op, err)
	}
	return nil
}

// decodeList parses raw as a JSON array. Anything else is ErrUnexpectedShape.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrUnexpectedShape
	}
	var out []T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
