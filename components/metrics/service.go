// Package metrics fetches campaign insights for a connected account and
// filters, sorts and paginates them for the metrics table.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ettle/strcase"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dashboardai/dashboardai/pkg/backend"
)

// DateLayout is the wire format of date ranges.
const DateLayout = "2006-01-02"

// DefaultFields is requested when the caller names none.
var DefaultFields = []string{
	"campaign_name", "adset_name", "ad_name", "status",
	"impressions", "reach", "clicks", "cpc", "spend", "ctr", "cpm",
	"date_start", "date_stop",
}

var ErrInvalidRequest = errors.New("metrics: invalid request")

// Request selects the insights to fetch.
type Request struct {
	FacebookID string    `json:"facebook_id" validate:"required"`
	AccountID  string    `json:"account_id" validate:"required"`
	Start      time.Time `json:"start_date"`
	End        time.Time `json:"end_date"`
	// Fields accepts client spellings (camelCase); they are normalized to
	// the backend's snake_case names.
	Fields []string `json:"fields"`
}

// Service fetches metric rows from the backend.
type Service struct {
	client   backend.MetricsClient
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService builds a Service.
func NewService(client backend.MetricsClient, logger *zap.Logger) (*Service, error) {
	if client == nil {
		return nil, errors.New("metrics: backend client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, validate: validator.New(), logger: logger}, nil
}

// Fetch loads the rows for req. A malformed list yields no rows.
func (s *Service) Fetch(ctx context.Context, req Request) ([]backend.MetricRow, error) {
	wire, err := s.wireRequest(req)
	if err != nil {
		return nil, err
	}
	rows, err := s.client.FetchMetaMetrics(ctx, wire)
	if err != nil {
		if !errors.Is(err, backend.ErrUnexpectedShape) {
			return nil, err
		}
		s.logger.Warn("metrics response malformed, using empty list", zap.String("account_id", req.AccountID), zap.Error(err))
		return []backend.MetricRow{}, nil
	}
	s.logger.Debug("metrics fetched", zap.String("account_id", req.AccountID), zap.Int("rows", len(rows)))
	return rows, nil
}

func (s *Service) wireRequest(req Request) (backend.MetricsRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return backend.MetricsRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !req.Start.IsZero() && !req.End.IsZero() && req.End.Before(req.Start) {
		return backend.MetricsRequest{}, fmt.Errorf("%w: end date before start date", ErrInvalidRequest)
	}
	wire := backend.MetricsRequest{
		FacebookID: req.FacebookID,
		AccountID:  req.AccountID,
		Fields:     strings.Join(NormalizeFields(req.Fields), ","),
	}
	// The backend applies a date filter only as a complete range.
	if !req.Start.IsZero() && !req.End.IsZero() {
		wire.StartDate = req.Start.Format(DateLayout)
		wire.EndDate = req.End.Format(DateLayout)
	}
	return wire, nil
}

// NormalizeFields converts names to snake_case, drops blanks and duplicates,
// and falls back to DefaultFields.
func NormalizeFields(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		name := strcase.ToSnake(strings.TrimSpace(field))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultFields...)
	}
	return out
}
