package domain

import (
	"fmt"
	"regexp"
	"time"
)

// HandlePrefix starts every cache handle.
const HandlePrefix = "mq:"

var handlePattern = regexp.MustCompile(`^mq:[0-9a-f]{24}$`)

// ValidHandle reports whether h has the handle format.
func ValidHandle(h string) bool {
	return handlePattern.MatchString(h)
}

// Metrics summarises the full match set of a cached query.
type Metrics struct {
	TransactionCount int64   `json:"transaction_count"`
	TotalAmount      float64 `json:"total_amount"`
	DateMin          *string `json:"date_min"`
	DateMax          *string `json:"date_max"`
	Truncated        bool    `json:"truncated"`
}

// CacheEntry is the immutable payload stored under a handle.
type CacheEntry struct {
	Handle      string           `json:"handle"`
	CreatedAt   string           `json:"created_at"`
	TTLSeconds  int              `json:"ttl_seconds"`
	QueryFilter StructuredFilter `json:"query_filter"`
	Projection  Projection       `json:"projection"`
	Metrics     Metrics          `json:"metrics"`
	Data        []map[string]any `json:"data"`
}

// ExpiresAt returns when the entry stops being readable.
func (e CacheEntry) ExpiresAt() (time.Time, error) {
	created, err := time.Parse(time.RFC3339Nano, e.CreatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("CacheEntry.ExpiresAt: parse created_at: %w", err)
	}
	return created.Add(time.Duration(e.TTLSeconds) * time.Second), nil
}
