package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func contextWithQuery(query string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestGetPaginationParams(t *testing.T) {
	p := GetPaginationParams(contextWithQuery(""), 20, 50)
	assert.Equal(t, PaginationParams{Page: 1, PageSize: 20, Offset: 0}, p)

	p = GetPaginationParams(contextWithQuery("page=3&limit=10"), 20, 50)
	assert.Equal(t, PaginationParams{Page: 3, PageSize: 10, Offset: 20}, p)

	p = GetPaginationParams(contextWithQuery("page=-1&limit=500"), 20, 50)
	assert.Equal(t, PaginationParams{Page: 1, PageSize: 50, Offset: 0}, p)
}

func TestGetCursorParams(t *testing.T) {
	before, limit := GetCursorParams(contextWithQuery("before=m-9&limit=abc"), 50, 100)
	assert.Equal(t, "m-9", before)
	assert.Equal(t, 50, limit)

	_, limit = GetCursorParams(contextWithQuery("limit=1000"), 50, 100)
	assert.Equal(t, 100, limit)
}
