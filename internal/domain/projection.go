package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Whitelist lists every ledger field a projection may include, in document order.
var Whitelist = []string{
	"_id",
	"transaction_id",
	"user_id",
	"from_account",
	"to_account",
	"merchant",
	"amount",
	"currency",
	"transaction_type",
	"transaction_mode",
	"status",
	"initiated_at",
	"completed_at",
	"failed_at",
	"remarks",
	"description",
	"reference_number",
	"order_id",
	"created_at",
	"updated_at",
}

// DefaultFields are always part of a projection.
var DefaultFields = []string{"amount", "initiated_at"}

var whitelistRank = func() map[string]int {
	m := make(map[string]int, len(Whitelist))
	for i, f := range Whitelist {
		m[f] = i
	}
	return m
}()

// IsWhitelisted reports whether field may appear in a projection.
func IsWhitelisted(field string) bool {
	_, ok := whitelistRank[field]
	return ok
}

// Projection is an ordered set of whitelisted ledger fields.
type Projection struct {
	fields []string
}

// NewProjection keeps the whitelisted candidates, adds the default fields and
// orders the result by document order. It never returns an empty projection.
func NewProjection(candidates ...string) Projection {
	seen := make(map[string]bool, len(candidates)+len(DefaultFields))
	var fields []string
	for _, f := range append(append([]string{}, candidates...), DefaultFields...) {
		if !IsWhitelisted(f) || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		return whitelistRank[fields[i]] < whitelistRank[fields[j]]
	})
	return Projection{fields: fields}
}

// DefaultProjection returns the minimal projection.
func DefaultProjection() Projection {
	return NewProjection()
}

// Fields returns a copy of the projected field names.
func (p Projection) Fields() []string {
	if len(p.fields) == 0 {
		return append([]string{}, DefaultFields...)
	}
	return append([]string{}, p.fields...)
}

// Includes reports whether field is projected.
func (p Projection) Includes(field string) bool {
	for _, f := range p.Fields() {
		if f == field {
			return true
		}
	}
	return false
}

// MarshalJSON writes the projection as {"field": 1, ...} in field order.
func (p Projection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":1")
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts either {"field": 1} or ["field"] and rejects fields
// outside the whitelist.
func (p *Projection) UnmarshalJSON(data []byte) error {
	var names []string
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return fmt.Errorf("Projection: %w", err)
		}
	} else {
		var m map[string]int
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return fmt.Errorf("Projection: %w", err)
		}
		for f, v := range m {
			if v == 1 {
				names = append(names, f)
			}
		}
	}
	for _, f := range names {
		if !IsWhitelisted(f) {
			return fmt.Errorf("Projection: field %q is not allowed", f)
		}
	}
	*p = NewProjection(names...)
	return nil
}
