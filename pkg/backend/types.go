package backend

import (
	"strconv"
)

// Account is the backend's connected-account record (`/contas`).
type Account struct {
	ID          int    `json:"id"`
	Platform    string `json:"plataforma"`
	Type        string `json:"tipo"`
	Token       string `json:"token,omitempty"`
	ExternalID  string `json:"identificador_conta"`
	Name        string `json:"nome_conta"`
	ConnectedAt string `json:"data_conexao"`
	Active      bool   `json:"ativo"`
}

// AccountInput creates an account. The backend assigns id and connection date.
type AccountInput struct {
	Platform   string `json:"plataforma"`
	Type       string `json:"tipo"`
	Token      string `json:"token,omitempty"`
	ExternalID string `json:"identificador_conta"`
	Name       string `json:"nome_conta"`
	Active     bool   `json:"ativo"`
}

// FacebookUser is a user that completed the Facebook flow (`/users`).
type FacebookUser struct {
	FacebookID string `json:"facebook_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
}

// ImportRequest is the body of `POST /oauth/facebook/import`.
type ImportRequest struct {
	AccessToken string            `json:"access_token"`
	Accounts    []ImportedAccount `json:"accounts"`
}

// ImportedAccount is one ad account handed to the backend after OAuth.
type ImportedAccount struct {
	Platform   string         `json:"plataforma"`
	Type       string         `json:"tipo"`
	Token      string         `json:"token,omitempty"`
	ExternalID string         `json:"identificador_conta"`
	Name       string         `json:"nome_conta"`
	Active     bool           `json:"ativo"`
	Metadata   ImportMetadata `json:"metadata"`
}

type ImportMetadata struct {
	Currency     string `json:"currency,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	BusinessID   string `json:"business_id,omitempty"`
}

// MetricsRequest is the body of `POST /api/v1/meta/dados`.
type MetricsRequest struct {
	FacebookID string `json:"facebook_id"`
	AccountID  string `json:"account_id"`
	StartDate  string `json:"data_inicial,omitempty"`
	EndDate    string `json:"data_final,omitempty"`
	Fields     string `json:"fields,omitempty"`
}

// MetricRow is one ad-level insight row. Fields vary with the requested set.
type MetricRow map[string]any

// String returns the field as text; numbers are formatted.
func (r MetricRow) String(field string) string {
	switch v := r[field].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Number returns the field as a float and whether it is numeric.
func (r MetricRow) Number(field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ChartRequest is the body of `POST /gerar-grafico`.
type ChartRequest struct {
	Prompt         string `json:"pedido"`
	SpreadsheetURL string `json:"google_sheets_url,omitempty"`
}

// GeneratedChart is the chart configuration returned by the AI backend:
// `{type, title, data, config}`.
type GeneratedChart map[string]any

// Spreadsheet is the data source of an assistant question or preview: a
// Google Sheets URL or an uploaded file. The URL wins when both are set.
type Spreadsheet struct {
	URL      string `json:"google_sheets_url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	File     []byte `json:"file,omitempty"`
}

// Empty reports whether no source is attached.
func (s Spreadsheet) Empty() bool {
	return s.URL == "" && len(s.File) == 0
}

// AskRequest is the form posted to `POST /perguntar`.
type AskRequest struct {
	Question string
	Sheet    Spreadsheet
}

// SheetPreview is the `{columns, data}` reply of `POST /preview`.
type SheetPreview struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"data"`
}
