package queries

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/dashboardai/dashboardai/components/dashboard"
	"github.com/dashboardai/dashboardai/pkg/backend"
)

var (
	// ErrEmptyQuestion reports an assistant question without text.
	ErrEmptyQuestion = errors.New("dashboard: question is required")
	// ErrNoSpreadsheet reports a preview request without a URL or file.
	ErrNoSpreadsheet = errors.New("dashboard: spreadsheet url or file is required")
)

// chartKeywords mark a question as a chart request. Matching is a case
// insensitive substring test, so "gráficos" and "barras" match too.
var chartKeywords = []string{
	"gráfico", "grafico", "chart", "visualização", "visualizacao",
	"plot", "dashboard", "barra", "linha", "pizza", "pie",
	"bar", "line", "mostrar", "plotar", "criar gráfico",
}

// IsChartRequest reports whether question asks for a chart.
func IsChartRequest(question string) bool {
	q := strings.ToLower(question)
	for _, keyword := range chartKeywords {
		if strings.Contains(q, keyword) {
			return true
		}
	}
	return false
}

// AskInput is a free-form question about the attached spreadsheet.
type AskInput struct {
	Viewer   dashboard.ViewerContext `json:"-"`
	Question string                  `json:"question"`
	Sheet    backend.Spreadsheet     `json:"sheet"`
}

// AskQuery forwards a question to the AI service and returns its answer.
type AskQuery struct {
	client backend.AssistantClient
}

// NewAskQuery builds the query.
func NewAskQuery(client backend.AssistantClient) *AskQuery {
	return &AskQuery{client: client}
}

var _ gocommand.Querier[AskInput, string] = (*AskQuery)(nil)

func (q *AskQuery) Query(ctx context.Context, input AskInput) (string, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	return q.client.Ask(ctx, backend.AskRequest{Question: question, Sheet: input.Sheet})
}

// PreviewQuery returns the columns and first rows of a spreadsheet.
type PreviewQuery struct {
	client backend.AssistantClient
	limit  int
}

// NewPreviewQuery builds the query. Previews keep at most limit rows; a
// non-positive limit keeps ten.
func NewPreviewQuery(client backend.AssistantClient, limit int) *PreviewQuery {
	if limit <= 0 {
		limit = 10
	}
	return &PreviewQuery{client: client, limit: limit}
}

var _ gocommand.Querier[backend.Spreadsheet, backend.SheetPreview] = (*PreviewQuery)(nil)

func (q *PreviewQuery) Query(ctx context.Context, sheet backend.Spreadsheet) (backend.SheetPreview, error) {
	if sheet.Empty() {
		return backend.SheetPreview{}, ErrNoSpreadsheet
	}
	preview, err := q.client.Preview(ctx, sheet)
	if err != nil {
		return backend.SheetPreview{}, err
	}
	if len(preview.Rows) > q.limit {
		preview.Rows = preview.Rows[:q.limit]
	}
	return preview, nil
}
