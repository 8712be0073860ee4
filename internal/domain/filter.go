package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the textual timestamp format used in filters and cache entries.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

const dateLayout = "2006-01-02"

// StructuredFilter is the closed filter produced by filter extraction and
// consumed by the query executor. Identity scoping is never part of it.
type StructuredFilter struct {
	StartDate          *string  `json:"start_date"`
	EndDate            *string  `json:"end_date"`
	TransactionMode    []string `json:"transaction_mode"`
	Currency           *string  `json:"currency"`
	AmountMin          *float64 `json:"amount_min"`
	AmountMax          *float64 `json:"amount_max"`
	Status             *string  `json:"status"`
	MerchantCategory   []string `json:"merchant_category"`
	MerchantType       []string `json:"merchant_type"`
	CounterpartyName   *string  `json:"counterparty_name"`
	ParsedSuccessfully bool     `json:"parsed_successfully"`
	Error              string   `json:"error,omitempty"`
}

// UnmarshalJSON rejects unknown keys so loosely-typed filters never pass a
// stage boundary.
func (f *StructuredFilter) UnmarshalJSON(data []byte) error {
	type plain StructuredFilter
	var p plain
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("StructuredFilter: %w", err)
	}
	*f = StructuredFilter(p)
	return nil
}

// FailedFilter returns a filter with every field cleared and the error attached.
func FailedFilter(err error) StructuredFilter {
	f := StructuredFilter{ParsedSuccessfully: false}
	if err != nil {
		f.Error = err.Error()
	}
	return f
}

// Normalize maps every label onto its canonical taxonomy entry, discarding
// unrecognized values, adds the parent category of each merchant type and
// deduplicates and sorts every set.
func (f *StructuredFilter) Normalize() {
	f.TransactionMode = canonicalSet(f.TransactionMode, CanonicalMode)
	f.MerchantType = canonicalSet(f.MerchantType, CanonicalMerchantType)

	categories := append([]string{}, f.MerchantCategory...)
	for _, t := range f.MerchantType {
		if parent, ok := ParentCategory(t); ok {
			categories = append(categories, parent)
		}
	}
	f.MerchantCategory = canonicalSet(categories, CanonicalCategory)

	f.Currency = canonicalOptional(f.Currency, CanonicalCurrency)
	f.Status = canonicalOptional(f.Status, CanonicalStatus)

	if f.CounterpartyName != nil {
		name := strings.TrimSpace(*f.CounterpartyName)
		if name == "" {
			f.CounterpartyName = nil
		} else {
			f.CounterpartyName = &name
		}
	}

	if f.AmountMin != nil && f.AmountMax != nil && *f.AmountMin > *f.AmountMax {
		f.AmountMin, f.AmountMax = f.AmountMax, f.AmountMin
	}
	if f.StartDate != nil && f.EndDate != nil && *f.StartDate > *f.EndDate {
		f.StartDate, f.EndDate = f.EndDate, f.StartDate
	}
}

func canonicalSet(values []string, canon func(string) (string, bool)) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		c, ok := canon(v)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func canonicalOptional(v *string, canon func(string) (string, bool)) *string {
	if v == nil {
		return nil
	}
	c, ok := canon(*v)
	if !ok {
		return nil
	}
	return &c
}

// Validate checks that every value belongs to its enumeration and that the
// merchant type invariant holds.
func (f StructuredFilter) Validate() error {
	for _, m := range f.TransactionMode {
		if c, ok := CanonicalMode(m); !ok || c != m {
			return fmt.Errorf("invalid transaction_mode %q", m)
		}
	}
	if f.Currency != nil {
		if c, ok := CanonicalCurrency(*f.Currency); !ok || c != *f.Currency {
			return fmt.Errorf("invalid currency %q", *f.Currency)
		}
	}
	if f.Status != nil {
		if c, ok := CanonicalStatus(*f.Status); !ok || c != *f.Status {
			return fmt.Errorf("invalid status %q", *f.Status)
		}
	}
	categories := make(map[string]bool, len(f.MerchantCategory))
	for _, c := range f.MerchantCategory {
		if canon, ok := CanonicalCategory(c); !ok || canon != c {
			return fmt.Errorf("invalid merchant_category %q", c)
		}
		categories[c] = true
	}
	for _, t := range f.MerchantType {
		parent, ok := ParentCategory(t)
		if !ok {
			return fmt.Errorf("invalid merchant_type %q", t)
		}
		if !categories[parent] {
			return fmt.Errorf("merchant_type %q requires merchant_category %q", t, parent)
		}
	}
	for _, a := range []*float64{f.AmountMin, f.AmountMax} {
		if a != nil && (math.IsNaN(*a) || math.IsInf(*a, 0)) {
			return fmt.Errorf("amount bound must be finite")
		}
	}
	if _, _, err := f.StartTime(); err != nil {
		return err
	}
	if _, _, err := f.EndTime(); err != nil {
		return err
	}
	return nil
}

// StartTime parses start_date into a time. ok is false when absent.
func (f StructuredFilter) StartTime() (t time.Time, ok bool, err error) {
	return parseTimestamp("start_date", f.StartDate)
}

// EndTime parses end_date into a time. ok is false when absent.
func (f StructuredFilter) EndTime() (t time.Time, ok bool, err error) {
	return parseTimestamp("end_date", f.EndDate)
}

func parseTimestamp(field string, v *string) (time.Time, bool, error) {
	if v == nil {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s %q: %w", field, *v, err)
	}
	return t, true, nil
}

// BroadCategories returns the selected categories that have no selected
// merchant type. A merchant matches a filter when its type is selected, or
// when its category is selected and not narrowed by any selected type.
func (f StructuredFilter) BroadCategories() []string {
	narrowed := make(map[string]bool, len(f.MerchantType))
	for _, t := range f.MerchantType {
		if parent, ok := ParentCategory(t); ok {
			narrowed[parent] = true
		}
	}
	var out []string
	for _, c := range f.MerchantCategory {
		if !narrowed[c] {
			out = append(out, c)
		}
	}
	return out
}

// DayStart converts a YYYY-MM-DD date into the first instant of that day (UTC).
func DayStart(date string) (string, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d.UTC().Format(TimestampLayout), nil
}

// DayEnd converts a YYYY-MM-DD date into the last microsecond of that day (UTC).
func DayEnd(date string) (string, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d.UTC().Add(24*time.Hour - time.Microsecond).Format(TimestampLayout), nil
}
