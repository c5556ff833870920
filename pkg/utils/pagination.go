package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// GetPaginationParams reads ?page and ?limit, falling back to defaultSize
// for missing or out-of-range limits.
func GetPaginationParams(c echo.Context, defaultSize, maxSize int) PaginationParams {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("limit"))

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// GetCursorParams reads ?before and ?limit for cursor-paged lists.
func GetCursorParams(c echo.Context, defaultSize, maxSize int) (string, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = defaultSize
	}
	if limit > maxSize {
		limit = maxSize
	}
	return c.QueryParam("before"), limit
}
