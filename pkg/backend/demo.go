package backend

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DemoData seeds the demo provider.
type DemoData struct {
	Accounts []Account
	Users    []FacebookUser
	Metrics  []MetricRow
	Chart    GeneratedChart
	Answer   string
	Preview  SheetPreview
}

// DefaultDemoData returns the fixtures shown when the backend is offline and
// demo mode is enabled.
func DefaultDemoData() DemoData {
	return DemoData{
		Accounts: []Account{
			{ID: 1, Platform: "Meta Ads", Type: "facebook", Token: "mock_token_123", ExternalID: "act_123456789", Name: "Conta Principal Meta Ads", ConnectedAt: "2025-07-25T00:00:00Z", Active: true},
			{ID: 2, Platform: "Facebook Ads", Type: "facebook", Token: "mock_token_456", ExternalID: "act_987654321", Name: "Conta Secundária Facebook", ConnectedAt: "2025-07-20T00:00:00Z", Active: true},
			{ID: 3, Platform: "Google Ads", Type: "google", Token: "mock_token_789", ExternalID: "123-456-7890", Name: "Conta Google Ads", ConnectedAt: "2025-07-18T00:00:00Z", Active: false},
		},
		Users: []FacebookUser{
			{FacebookID: "10001", Username: "demo.user", Email: "demo@dashboardai.local"},
		},
		Metrics: []MetricRow{
			{"campaign_name": "Campanha Black Friday", "adset_name": "Conjunto Produtos", "ad_name": "Anúncio Desconto 50%", "status": "ACTIVE", "impressions": 15420.0, "reach": 12350.0, "clicks": 324.0, "cpc": 0.75, "spend": 243.0, "date_start": "2025-07-01", "date_stop": "2025-07-13"},
			{"campaign_name": "Campanha Verão", "adset_name": "Conjunto Roupas", "ad_name": "Anúncio Coleção Verão", "status": "PAUSED", "impressions": 8950.0, "reach": 7200.0, "clicks": 156.0, "cpc": 1.2, "spend": 187.2, "date_start": "2025-07-01", "date_stop": "2025-07-13"},
		},
		Chart: GeneratedChart{
			"type":  "bar",
			"title": "Vendas por mês",
			"data": []any{
				map[string]any{"name": "Jan", "value": 400.0},
				map[string]any{"name": "Fev", "value": 300.0},
				map[string]any{"name": "Mar", "value": 500.0},
			},
			"config": map[string]any{"xKey": "name", "yKey": "value"},
		},
		Answer: "Modo demonstração: o serviço de IA está offline, então esta resposta é um exemplo.",
		Preview: SheetPreview{
			Columns: []string{"mes", "vendas"},
			Rows: []map[string]any{
				{"mes": "Jan", "vendas": 400.0},
				{"mes": "Fev", "vendas": 300.0},
				{"mes": "Mar", "vendas": 500.0},
			},
		},
	}
}

// DemoClient implements Client over in-memory fixtures. Writes mutate the
// fixtures so the demo stays interactive.
type DemoClient struct {
	mu     sync.RWMutex
	data   DemoData
	nextID int
	now    func() time.Time
}

var _ Client = (*DemoClient)(nil)

// NewDemoClient builds a demo provider from data.
func NewDemoClient(data DemoData) *DemoClient {
	next := 0
	for _, account := range data.Accounts {
		if account.ID > next {
			next = account.ID
		}
	}
	return &DemoClient{
		data:   cloneDemo(data),
		nextID: next + 1,
		now:    time.Now,
	}
}

func (c *DemoClient) ListAccounts(context.Context) ([]Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Account{}, c.data.Accounts...), nil
}

func (c *DemoClient) AccountsByFacebookUser(context.Context, string) ([]Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Account{}
	for _, account := range c.data.Accounts {
		if account.Type == "facebook" {
			out = append(out, account)
		}
	}
	return out, nil
}

func (c *DemoClient) CreateAccount(_ context.Context, input AccountInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Accounts = append(c.data.Accounts, Account{
		ID:          c.nextID,
		Platform:    input.Platform,
		Type:        input.Type,
		Token:       input.Token,
		ExternalID:  input.ExternalID,
		Name:        input.Name,
		ConnectedAt: c.now().UTC().Format(time.RFC3339),
		Active:      input.Active,
	})
	c.nextID++
	return nil
}

func (c *DemoClient) SetAccountActive(_ context.Context, id int, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.data.Accounts {
		if c.data.Accounts[i].ID == id {
			c.data.Accounts[i].Active = active
			return nil
		}
	}
	return &RemoteError{Op: "update account", Status: 404, Body: fmt.Sprintf("conta %d não encontrada", id)}
}

func (c *DemoClient) DeleteAccount(_ context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.data.Accounts {
		if c.data.Accounts[i].ID == id {
			c.data.Accounts = append(c.data.Accounts[:i], c.data.Accounts[i+1:]...)
			return nil
		}
	}
	return &RemoteError{Op: "delete account", Status: 404, Body: fmt.Sprintf("conta %d não encontrada", id)}
}

func (c *DemoClient) ListUsers(context.Context) ([]FacebookUser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]FacebookUser{}, c.data.Users...), nil
}

func (c *DemoClient) ImportFacebookAccounts(ctx context.Context, req ImportRequest) error {
	for _, account := range req.Accounts {
		if err := c.CreateAccount(ctx, AccountInput{
			Platform:   account.Platform,
			Type:       account.Type,
			Token:      account.Token,
			ExternalID: account.ExternalID,
			Name:       account.Name,
			Active:     account.Active,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *DemoClient) FetchMetaMetrics(context.Context, MetricsRequest) ([]MetricRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MetricRow, len(c.data.Metrics))
	for i, row := range c.data.Metrics {
		out[i] = cloneRow(row)
	}
	return out, nil
}

func (c *DemoClient) GenerateChart(context.Context, ChartRequest) (GeneratedChart, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return GeneratedChart(cloneRow(MetricRow(c.data.Chart))), nil
}

func (c *DemoClient) Ask(_ context.Context, req AskRequest) (string, error) {
	if req.Question == "" {
		return "", fmt.Errorf("backend: question is required")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Answer, nil
}

func (c *DemoClient) Preview(_ context.Context, sheet Spreadsheet) (SheetPreview, error) {
	if sheet.Empty() {
		return SheetPreview{}, fmt.Errorf("backend: spreadsheet url or file is required")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clonePreview(c.data.Preview), nil
}

func clonePreview(p SheetPreview) SheetPreview {
	out := SheetPreview{
		Columns: append([]string{}, p.Columns...),
		Rows:    make([]map[string]any, len(p.Rows)),
	}
	for i, row := range p.Rows {
		out.Rows[i] = cloneRow(row)
	}
	return out
}

func cloneDemo(data DemoData) DemoData {
	out := DemoData{
		Accounts: append([]Account{}, data.Accounts...),
		Users:    append([]FacebookUser{}, data.Users...),
		Metrics:  make([]MetricRow, len(data.Metrics)),
		Chart:    GeneratedChart(cloneRow(MetricRow(data.Chart))),
		Answer:   data.Answer,
		Preview:  clonePreview(data.Preview),
	}
	for i, row := range data.Metrics {
		out.Metrics[i] = cloneRow(row)
	}
	return out
}

func cloneRow(row MetricRow) MetricRow {
	if row == nil {
		return nil
	}
	out := make(MetricRow, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
