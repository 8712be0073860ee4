package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/paarshan4800/fin-advisor/internal/cache"
	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// MakeHandle derives the cache handle of a query result from the filter,
// the projection and the creation time. Equal inputs at different times give
// different handles.
func MakeHandle(f domain.StructuredFilter, p domain.Projection, created time.Time) (string, error) {
	fb, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("MakeHandle: marshal filter: %w", err)
	}
	pb, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("MakeHandle: marshal projection: %w", err)
	}

	h := sha256.New()
	h.Write(fb)
	h.Write([]byte("|"))
	h.Write(pb)
	h.Write([]byte("|"))
	h.Write([]byte(created.UTC().Format(time.RFC3339Nano)))
	return domain.HandlePrefix + hex.EncodeToString(h.Sum(nil))[:24], nil
}

// LoadEntry reads the cache entry stored under handle.
func LoadEntry(ctx context.Context, store cache.Store, handle string) (domain.CacheEntry, *domain.StageError) {
	if !domain.ValidHandle(handle) {
		return domain.CacheEntry{}, domain.StageErrorf(domain.KindValidationFailure, "malformed handle %q", handle)
	}
	raw, err := store.Get(ctx, handle)
	if errors.Is(err, cache.ErrNotFound) {
		return domain.CacheEntry{}, domain.StageErrorf(domain.KindNotFoundOrExpired, "handle %s not found or expired", handle)
	}
	if err != nil {
		return domain.CacheEntry{}, domain.NewStageError(domain.KindUpstreamFailure, fmt.Errorf("LoadEntry: %w", err))
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.CacheEntry{}, domain.NewStageError(domain.KindParseFailure, fmt.Errorf("LoadEntry: decode entry: %w", err))
	}
	return entry, nil
}

// Source is the input of the downstream stages: a handle, or rows supplied
// inline when no handle is at hand.
type Source struct {
	Handle string           `json:"handle,omitempty"`
	Rows   []map[string]any `json:"rows,omitempty"`
}

// loadRows resolves a Source into rows and the field names describing them.
func loadRows(ctx context.Context, store cache.Store, src Source) ([]map[string]any, []string, *domain.StageError) {
	if src.Handle != "" {
		entry, serr := LoadEntry(ctx, store, src.Handle)
		if serr != nil {
			return nil, nil, serr
		}
		return entry.Data, entry.Projection.Fields(), nil
	}
	if src.Rows != nil {
		fields := rowKeys(src.Rows)
		if len(fields) == 0 {
			fields = domain.DefaultProjection().Fields()
		}
		return src.Rows, fields, nil
	}
	return nil, nil, domain.StageErrorf(domain.KindValidationFailure, "either a handle or rows is required")
}

// rowKeys returns the sorted union of keys across rows.
func rowKeys(rows []map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
