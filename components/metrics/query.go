package metrics

import (
	"sort"
	"strings"

	"github.com/ettle/strcase"

	"github.com/dashboardai/dashboardai/pkg/backend"
)

// PageSize is the number of rows per table page.
const PageSize = 10

// Direction orders sorted rows.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

var searchFields = []string{"campaign_name", "adset_name", "ad_name"}

// Query filters, sorts and paginates rows.
type Query struct {
	Search    string    `json:"search"`
	SortField string    `json:"sort"`
	Direction Direction `json:"direction"`
	Page      int       `json:"page"`
}

// Page is one page of query results.
type Page struct {
	Rows  []backend.MetricRow `json:"rows"`
	Page  int                 `json:"page"`
	Pages int                 `json:"pages"`
	Total int                 `json:"total"`
}

// Apply runs q over rows without modifying them. Pages outside the result
// range reset to page 1.
func Apply(rows []backend.MetricRow, q Query) Page {
	filtered := filter(rows, q.Search)
	if field := strcase.ToSnake(strings.TrimSpace(q.SortField)); field != "" {
		sortRows(filtered, field, q.Direction == Descending)
	}

	total := len(filtered)
	pages := (total + PageSize - 1) / PageSize
	page := q.Page
	if page < 1 || page > pages {
		page = 1
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page{
		Rows:  append([]backend.MetricRow{}, filtered[start:end]...),
		Page:  page,
		Pages: pages,
		Total: total,
	}
}

func filter(rows []backend.MetricRow, search string) []backend.MetricRow {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]backend.MetricRow, 0, len(rows))
	for _, row := range rows {
		if needle == "" || matches(row, needle) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row backend.MetricRow, needle string) bool {
	for _, field := range searchFields {
		if strings.Contains(strings.ToLower(row.String(field)), needle) {
			return true
		}
	}
	return false
}

// sortRows compares numerically when both values are numbers and as
// case-insensitive text otherwise.
func sortRows(rows []backend.MetricRow, field string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		cmp := compare(rows[i], rows[j], field)
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compare(a, b backend.MetricRow, field string) int {
	an, aok := a.Number(field)
	bn, bok := b.Number(field)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a.String(field)), strings.ToLower(b.String(field)))
}
