package gcs

import (
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "finance_agent:mq:1", "finance_agent:mq:1"},
		{"cache", "finance_agent:mq:1", "cache/finance_agent:mq:1"},
		{"cache/", "k", "cache/k"},
	}
	for _, tt := range tests {
		if got := objectName(tt.prefix, tt.key); got != tt.want {
			t.Errorf("objectName(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	md := expiryMetadata(now.Add(300 * time.Second))

	if expired(md, now) {
		t.Error("entry expired before its TTL")
	}
	if !expired(md, now.Add(300*time.Second)) {
		t.Error("entry still readable at its TTL")
	}
	if !expired(nil, now) {
		t.Error("missing metadata should count as expired")
	}
	if !expired(map[string]string{expiresAtKey: "soon"}, now) {
		t.Error("malformed metadata should count as expired")
	}
}
