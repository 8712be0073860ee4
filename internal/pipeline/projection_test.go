package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

func TestProjectionSelector_Select(t *testing.T) {
	tests := []struct {
		name       string
		provider   *fakeProvider
		wantFields []string
		wantParsed bool
	}{
		{
			name:       "keeps whitelisted fields and adds defaults",
			provider:   scripted(map[*genai.Schema]string{projectionSchema: `{"fields":["merchant","password","status"],"reasoning":"group by merchant"}`}),
			wantFields: []string{"merchant", "amount", "status", "initiated_at"},
			wantParsed: true,
		},
		{
			name:       "empty proposal gets defaults",
			provider:   scripted(map[*genai.Schema]string{projectionSchema: `{"fields":[],"reasoning":""}`}),
			wantFields: []string{"amount", "initiated_at"},
			wantParsed: true,
		},
		{
			name:       "inference failure falls back",
			provider:   failing(errors.New("timeout")),
			wantFields: []string{"amount", "initiated_at"},
			wantParsed: false,
		},
		{
			name:       "malformed output falls back",
			provider:   scripted(map[*genai.Schema]string{projectionSchema: `{"fields":"merchant"`}),
			wantFields: []string{"amount", "initiated_at"},
			wantParsed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewProjectionSelector(tt.provider, testLog).Select(context.Background(), "q")
			assert.Equal(t, tt.wantFields, res.Projection.Fields())
			assert.Equal(t, tt.wantParsed, res.ParsedSuccessfully)
			for _, f := range res.Projection.Fields() {
				assert.True(t, domain.IsWhitelisted(f))
			}
			if !tt.wantParsed {
				assert.NotNil(t, res.Error)
				assert.NotEmpty(t, res.Reasoning)
			}
		})
	}
}
