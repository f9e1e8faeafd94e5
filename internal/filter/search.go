package filter

import (
	"strings"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// ErrPaginatedSearch is returned when a local search is attempted over a
// collection the server splits across pages.
var ErrPaginatedSearch = output.ErrUsageHint(
	"Cannot search locally across server pages",
	"Use --search to filter on the server",
)

// LocalSearch filters items whose text contains query, case-insensitively.
// It refuses when cur describes more than one server page, since the
// result would silently omit records from other pages.
func LocalSearch[T any](items []T, cur *models.Pagination, query string, text func(T) string) ([]T, error) {
	if cur != nil && cur.TotalPages > 1 {
		return nil, ErrPaginatedSearch
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items, nil
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(text(it)), query) {
			out = append(out, it)
		}
	}
	return out, nil
}
