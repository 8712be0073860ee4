package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	cachemem "github.com/paarshan4800/fin-advisor/internal/cache/memory"
	"github.com/paarshan4800/fin-advisor/internal/domain"
)

const categoryReply = `{
	"category_mapping": [
		{"category": "Food", "items": ["Blue Tokai", "Swiggy"]},
		{"category": "Food", "items": ["Dominos"]},
		{"category": " ", "items": ["ignored"]}
	],
	"unnecessary_patterns": ["Frequent food delivery"],
	"recommendations": ["Cook at home twice a week"]
}`

func TestCategoryMapper_InlineRows(t *testing.T) {
	m := NewCategoryMapper(scripted(map[*genai.Schema]string{categorySchema: categoryReply}), cachemem.NewStore(), testLog)

	r := m.Map(context.Background(), Source{Rows: []map[string]any{{"merchant": map[string]any{"name": "Swiggy"}, "amount": 420.0}}})
	require.Nil(t, r.Error)
	assert.Equal(t, map[string][]string{"Food": {"Blue Tokai", "Swiggy", "Dominos"}}, r.CategoryMapping)
	assert.Equal(t, []string{"Frequent food delivery"}, r.UnnecessaryPatterns)
	assert.Equal(t, []string{"Cook at home twice a week"}, r.Recommendations)
}

func TestCategoryMapper_FromHandle(t *testing.T) {
	ctx := context.Background()
	cache := cachemem.NewStore()
	res := NewExecutor(ledgerFixture(), cache, Options{}, testLog).
		Execute(ctx, "alice", domain.StructuredFilter{ParsedSuccessfully: true}, domain.NewProjection("merchant"))
	require.Nil(t, res.Error)

	var prompt string
	provider := &fakeProvider{
		GenerateJSONFunc: func(ctx context.Context, p string, schema *genai.Schema) ([]byte, error) {
			prompt = p
			return []byte(categoryReply), nil
		},
	}
	r := NewCategoryMapper(provider, cache, testLog).Map(ctx, Source{Handle: res.Handle})
	require.Nil(t, r.Error)
	assert.Contains(t, prompt, "Blue Tokai")
	assert.Contains(t, prompt, "Shell")
}

func TestCategoryMapper_Degrades(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		src      Source
		wantKind domain.ErrorKind
		wantNote string
	}{
		{
			name:     "expired handle",
			provider: scripted(nil),
			src:      Source{Handle: "mq:aaaaaaaaaaaaaaaaaaaaaaaa"},
			wantKind: domain.KindNotFoundOrExpired,
		},
		{
			name:     "no input",
			provider: scripted(nil),
			src:      Source{},
			wantKind: domain.KindValidationFailure,
		},
		{
			name:     "provider error",
			provider: failing(errors.New("unavailable")),
			src:      Source{Rows: []map[string]any{{"amount": 1.0}}},
			wantKind: domain.KindUpstreamFailure,
		},
		{
			name:     "malformed output",
			provider: scripted(map[*genai.Schema]string{categorySchema: `{"category_mapping":{"Food":["x"]}}`}),
			src:      Source{Rows: []map[string]any{{"amount": 1.0}}},
			wantKind: domain.KindParseFailure,
		},
		{
			name:     "empty rows",
			provider: scripted(nil),
			src:      Source{Rows: []map[string]any{}},
			wantNote: domain.NoTransactionsNote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCategoryMapper(tt.provider, cachemem.NewStore(), testLog).Map(context.Background(), tt.src)
			assert.Empty(t, r.CategoryMapping)
			assert.NotNil(t, r.CategoryMapping)
			assert.Empty(t, r.UnnecessaryPatterns)
			assert.Empty(t, r.Recommendations)
			assert.Equal(t, tt.wantNote, r.Note)
			if tt.wantKind == "" {
				assert.Nil(t, r.Error)
				return
			}
			require.NotNil(t, r.Error)
			assert.Equal(t, tt.wantKind, r.Error.Kind)
		})
	}
}

func TestCategoryMapper_ExpiredEntry(t *testing.T) {
	ctx := context.Background()
	cache := cachemem.NewStore()
	ex := NewExecutor(ledgerFixture(), cache, Options{CacheTTL: time.Nanosecond}, testLog)
	res := ex.Execute(ctx, "alice", domain.StructuredFilter{}, domain.DefaultProjection())
	require.Nil(t, res.Error)
	time.Sleep(time.Millisecond)

	r := NewCategoryMapper(scripted(nil), cache, testLog).Map(ctx, Source{Handle: res.Handle})
	require.NotNil(t, r.Error)
	assert.Equal(t, domain.KindNotFoundOrExpired, r.Error.Kind)
}
