package models

import "fmt"

// Pagination is the cursor returned with every paginated collection.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination derives a consistent cursor from page, limit and total.
// Page and limit are clamped to 1.
func NewPagination(page, limit, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Validate checks the cursor invariants.
func (p Pagination) Validate() error {
	switch {
	case p.Page < 1:
		return fmt.Errorf("pagination: page %d < 1", p.Page)
	case p.Limit < 1:
		return fmt.Errorf("pagination: limit %d < 1", p.Limit)
	case p.Total < 0:
		return fmt.Errorf("pagination: total %d < 0", p.Total)
	case p.TotalPages < 0:
		return fmt.Errorf("pagination: totalPages %d < 0", p.TotalPages)
	case p.HasNext != (p.Page < p.TotalPages):
		return fmt.Errorf("pagination: hasNext=%t with page %d of %d", p.HasNext, p.Page, p.TotalPages)
	case p.HasPrev != (p.Page > 1):
		return fmt.Errorf("pagination: hasPrev=%t on page %d", p.HasPrev, p.Page)
	}
	return nil
}

// Beyond reports whether the cursor points past the last page.
func (p Pagination) Beyond() bool {
	return p.Page > p.TotalPages
}

// Page is a server-paginated slice of records.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
