package pagination

import (
	"fmt"
	"strconv"
)

// Params represents parsed pagination parameters
type Params struct {
	Page     int
	PageSize int
	Offset   int
}

// PagedResponse is the pagination block returned alongside list data
type PagedResponse struct {
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Parse parses page/page_size query strings, clamping page_size to MaxPageSize
func Parse(pageStr, pageSizeStr string) (*Params, error) {
	page := DefaultPage
	pageSize := DefaultPageSize

	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page parameter: %w", err)
		}
		if p >= 1 {
			page = p
		}
	}

	if pageSizeStr != "" {
		s, err := strconv.Atoi(pageSizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page_size parameter: %w", err)
		}
		if s >= 1 {
			pageSize = s
		}
		if pageSize > MaxPageSize {
			pageSize = MaxPageSize
		}
	}

	return &Params{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}, nil
}

// Build creates the pagination block for a response
func Build(params *Params, total int64) *PagedResponse {
	totalPages := int(total) / params.PageSize
	if int(total)%params.PageSize > 0 {
		totalPages++
	}

	return &PagedResponse{
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
