package backend

import (
	"context"

	"go.uber.org/zap"
)

// FallbackClient serves reads from a demo provider while the primary backend
// is unavailable. It is only wired when demo mode is enabled in configuration;
// writes and 4xx responses always surface the primary's error.
type FallbackClient struct {
	primary Client
	demo    Client
	logger  *zap.Logger
}

var _ Client = (*FallbackClient)(nil)

func NewFallbackClient(primary, demo Client, logger *zap.Logger) *FallbackClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackClient{primary: primary, demo: demo, logger: logger.Named("backend.demo")}
}

func (c *FallbackClient) fallback(op string, err error) bool {
	if !IsUnavailable(err) {
		return false
	}
	c.logger.Warn("backend unavailable, serving demo data", zap.String("op", op), zap.Error(err))
	return true
}

func (c *FallbackClient) ListAccounts(ctx context.Context) ([]Account, error) {
	accounts, err := c.primary.ListAccounts(ctx)
	if err != nil && c.fallback("list accounts", err) {
		return c.demo.ListAccounts(ctx)
	}
	return accounts, err
}

func (c *FallbackClient) AccountsByFacebookUser(ctx context.Context, facebookID string) ([]Account, error) {
	accounts, err := c.primary.AccountsByFacebookUser(ctx, facebookID)
	if err != nil && c.fallback("list user accounts", err) {
		return c.demo.AccountsByFacebookUser(ctx, facebookID)
	}
	return accounts, err
}

func (c *FallbackClient) CreateAccount(ctx context.Context, input AccountInput) error {
	return c.primary.CreateAccount(ctx, input)
}

func (c *FallbackClient) SetAccountActive(ctx context.Context, id int, active bool) error {
	return c.primary.SetAccountActive(ctx, id, active)
}

func (c *FallbackClient) DeleteAccount(ctx context.Context, id int) error {
	return c.primary.DeleteAccount(ctx, id)
}

func (c *FallbackClient) ListUsers(ctx context.Context) ([]FacebookUser, error) {
	users, err := c.primary.ListUsers(ctx)
	if err != nil && c.fallback("list users", err) {
		return c.demo.ListUsers(ctx)
	}
	return users, err
}

func (c *FallbackClient) ImportFacebookAccounts(ctx context.Context, req ImportRequest) error {
	return c.primary.ImportFacebookAccounts(ctx, req)
}

func (c *FallbackClient) FetchMetaMetrics(ctx context.Context, req MetricsRequest) ([]MetricRow, error) {
	rows, err := c.primary.FetchMetaMetrics(ctx, req)
	if err != nil && c.fallback("meta metrics", err) {
		return c.demo.FetchMetaMetrics(ctx, req)
	}
	return rows, err
}

func (c *FallbackClient) GenerateChart(ctx context.Context, req ChartRequest) (GeneratedChart, error) {
	return c.primary.GenerateChart(ctx, req)
}

func (c *FallbackClient) Ask(ctx context.Context, req AskRequest) (string, error) {
	answer, err := c.primary.Ask(ctx, req)
	if err != nil && c.fallback("ask", err) {
		return c.demo.Ask(ctx, req)
	}
	return answer, err
}

func (c *FallbackClient) Preview(ctx context.Context, sheet Spreadsheet) (SheetPreview, error) {
	preview, err := c.primary.Preview(ctx, sheet)
	if err != nil && c.fallback("preview", err) {
		return c.demo.Preview(ctx, sheet)
	}
	return preview, err
}
