// internal/utils/pagination.go
package utils

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const MaxPageLimit = 100

type PaginationParams struct {
	Limit  int
	Offset int
}

type PaginationResult struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// GetPaginationParams reads limit/offset from the query. A "page" parameter
// (1-based) is accepted in place of offset.
func GetPaginationParams(c *gin.Context, defaultLimit int) PaginationParams {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 1 && c.Query("offset") == "" {
		offset = (page - 1) * limit
	}

	return PaginationParams{Limit: limit, Offset: offset}
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	return db.Offset(params.Offset).Limit(params.Limit)
}

// CreatePaginationResult builds next/previous links from the request URL.
func CreatePaginationResult(c *gin.Context, data interface{}, total int64, params PaginationParams) PaginationResult {
	result := PaginationResult{Count: total, Results: data}

	if int64(params.Offset+params.Limit) < total {
		next := pageURL(c, params.Limit, params.Offset+params.Limit)
		result.Next = &next
	}
	if params.Offset > 0 {
		prevOffset := params.Offset - params.Limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		prev := pageURL(c, params.Limit, prevOffset)
		result.Previous = &prev
	}
	return result
}

func pageURL(c *gin.Context, limit, offset int) string {
	u := url.URL{
		Scheme: "http",
		Host:   c.Request.Host,
		Path:   c.Request.URL.Path,
	}
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}

	q := c.Request.URL.Query()
	q.Del("page")
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
