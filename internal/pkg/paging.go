package pkg

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/crudbase/internal/domain"
)

// Pagination request headers.
const (
	HeaderPagination = "X-PAGINATION"
	HeaderPage       = "X-PAGE"
	HeaderPageSize   = "X-PAGESIZE"
	HeaderOrderBy    = "X-ORDERBY"
	HeaderSearch     = "X-SEARCH"
)

// ParsePagedOptions extracts pagination parameters from request headers.
//
// It returns (nil, nil) when X-PAGINATION is absent, unparsable, or false;
// callers must then fall back to unpaged retrieval. When pagination is
// requested, missing page/size headers fall back to the PagedOptions
// defaults, while malformed integer values surface as a validation error
// rather than a silent zero.
func ParsePagedOptions(c *gin.Context) (*domain.PagedOptions, error) {
	raw := c.GetHeader(HeaderPagination)
	if raw == "" {
		return nil, nil
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil || !enabled {
		return nil, nil
	}

	page, err := intHeader(c, HeaderPage)
	if err != nil {
		return nil, err
	}
	pageSize, err := intHeader(c, HeaderPageSize)
	if err != nil {
		return nil, err
	}

	return domain.NewPagedOptions(
		page,
		pageSize,
		c.GetHeader(HeaderOrderBy),
		c.GetHeader(HeaderSearch),
	), nil
}

// intHeader parses an optional integer header. An empty header yields zero,
// which NewPagedOptions coerces to the default.
func intHeader(c *gin.Context, key string) (int, error) {
	raw := c.GetHeader(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("invalid %s header %q: not an integer", key, raw), err)
	}
	return v, nil
}
