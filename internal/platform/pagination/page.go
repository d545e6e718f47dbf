// Package pagination normalizes cursor-based page requests.
package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// Page is a normalized request for the entries after a numeric cursor.
type Page struct {
	After int64
	Limit int
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int, cfg PageSizeConfig) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// ParsePage reads raw after/limit query values. Empty values take defaults.
func ParsePage(after, limit string, cfg PageSizeConfig) (Page, error) {
	var page Page
	if after = strings.TrimSpace(after); after != "" {
		value, err := strconv.ParseInt(after, 10, 64)
		if err != nil || value < 0 {
			return Page{}, fmt.Errorf("invalid after cursor: %q", after)
		}
		page.After = value
	}
	size := 0
	if limit = strings.TrimSpace(limit); limit != "" {
		value, err := strconv.Atoi(limit)
		if err != nil || value < 0 {
			return Page{}, fmt.Errorf("invalid limit: %q", limit)
		}
		size = value
	}
	page.Limit = ClampPageSize(size, cfg)
	return page, nil
}
