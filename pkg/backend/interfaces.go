package backend

import "context"

// AccountsClient manages connected accounts and Facebook users.
type AccountsClient interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	AccountsByFacebookUser(ctx context.Context, facebookID string) ([]Account, error)
	CreateAccount(ctx context.Context, input AccountInput) error
	SetAccountActive(ctx context.Context, id int, active bool) error
	DeleteAccount(ctx context.Context, id int) error
	ListUsers(ctx context.Context) ([]FacebookUser, error)
	ImportFacebookAccounts(ctx context.Context, req ImportRequest) error
}

// MetricsClient fetches ad-level insights.
type MetricsClient interface {
	FetchMetaMetrics(ctx context.Context, req MetricsRequest) ([]MetricRow, error)
}

// ChartClient asks the AI service for a chart configuration.
type ChartClient interface {
	GenerateChart(ctx context.Context, req ChartRequest) (GeneratedChart, error)
}

// AssistantClient answers free-form questions about a spreadsheet and
// previews its contents.
type AssistantClient interface {
	Ask(ctx context.Context, req AskRequest) (string, error)
	Preview(ctx context.Context, sheet Spreadsheet) (SheetPreview, error)
}

// Client is the union implemented by the HTTP client and the demo provider.
type Client interface {
	AccountsClient
	MetricsClient
	ChartClient
	AssistantClient
}
