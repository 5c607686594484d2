package handler

import (
	"net/http"
	"strconv"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// pagination is a parsed page/limit query pair.
type pagination struct {
	Page  int
	Limit int
}

// offset returns the SQL OFFSET for this page.
func (p pagination) offset() int {
	return (p.Page - 1) * p.Limit
}

// parsePagination reads page/limit query params, defaulting to page 1,
// limit 20, and clamping limit to maxPageLimit.
func parsePagination(r *http.Request) pagination {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return pagination{Page: page, Limit: limit}
}
