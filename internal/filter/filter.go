// Package filter composes pagination, sort and filter parameters for
// server-paginated collections.
package filter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// DefaultLimit is the page size when none is set.
const DefaultLimit = 20

// MaxLimit is the largest page size the gateway accepts.
const MaxLimit = 100

// SortOrder is asc or desc.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// State is an immutable set of list parameters. Every With method returns
// a copy; any change except WithPage resets the page to 1.
type State struct {
	Search     string
	Status     models.TaskStatus
	Priority   models.Priority
	AssigneeID string
	Page       int
	Limit      int
	SortBy     string
	SortOrder  SortOrder
}

// New returns the first page with the default limit.
func New() State {
	return State{Page: 1, Limit: DefaultLimit}
}

func (s State) reset() State {
	s.Page = 1
	return s
}

func (s State) WithSearch(q string) State {
	s.Search = strings.TrimSpace(q)
	return s.reset()
}

func (s State) WithStatus(st models.TaskStatus) State {
	s.Status = st
	return s.reset()
}

func (s State) WithPriority(p models.Priority) State {
	s.Priority = p
	return s.reset()
}

func (s State) WithAssignee(id string) State {
	s.AssigneeID = id
	return s.reset()
}

// WithLimit changes the page size, clamped to [1, MaxLimit].
func (s State) WithLimit(n int) State {
	s.Limit = min(max(n, 1), MaxLimit)
	return s.reset()
}

// WithSort changes the sort key and direction.
func (s State) WithSort(by string, order SortOrder) State {
	s.SortBy = by
	s.SortOrder = order
	return s.reset()
}

// WithPage moves to page n and preserves everything else.
func (s State) WithPage(n int) State {
	s.Page = max(n, 1)
	return s
}

// Next returns the following page, or s unchanged when the cursor has no next page.
func (s State) Next(cur models.Pagination) State {
	if !cur.HasNext {
		return s
	}
	return s.WithPage(cur.Page + 1)
}

// Prev returns the preceding page, or s unchanged on the first page.
func (s State) Prev(cur models.Pagination) State {
	if !cur.HasPrev {
		return s
	}
	return s.WithPage(cur.Page - 1)
}

// Query encodes the state as gateway query parameters. Empty fields are omitted.
func (s State) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(s.Page, 1)))
	limit := s.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	if s.SortBy != "" {
		q.Set("sortBy", s.SortBy)
		order := s.SortOrder
		if order == "" {
			order = Asc
		}
		q.Set("sortOrder", string(order))
	}
	if s.Status != "" {
		q.Set("status", string(s.Status))
	}
	if s.Priority != "" {
		q.Set("priority", string(s.Priority))
	}
	if s.AssigneeID != "" {
		q.Set("assigneeId", s.AssigneeID)
	}
	if s.Search != "" {
		q.Set("search", s.Search)
	}
	return q
}

// Key is a stable identity for the state, used to key cached pages.
func (s State) Key() string {
	return s.Query().Encode()
}

// ParseSortOrder accepts asc or desc in any case.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", output.ErrValidation("sort-order", "must be asc or desc")
}
