package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, f domain.StructuredFilter)
		wantErr bool
	}{
		{
			name:  "dates become day bounds",
			input: `{"start_date":"2024-01-01","end_date":"2024-01-31"}`,
			check: func(t *testing.T, f domain.StructuredFilter) {
				assert.Equal(t, "2024-01-01T00:00:00.000000Z", *f.StartDate)
				assert.Equal(t, "2024-01-31T23:59:59.999999Z", *f.EndDate)
				assert.True(t, f.ParsedSuccessfully)
			},
		},
		{
			name:  "inverted dates are swapped",
			input: `{"start_date":"2024-02-10","end_date":"2024-02-01"}`,
			check: func(t *testing.T, f domain.StructuredFilter) {
				assert.Equal(t, "2024-02-01T00:00:00.000000Z", *f.StartDate)
				assert.Equal(t, "2024-02-10T23:59:59.999999Z", *f.EndDate)
			},
		},
		{
			name:  "timestamps are cut to the date",
			input: `{"start_date":"2024-03-05T10:00:00Z","end_date":null}`,
			check: func(t *testing.T, f domain.StructuredFilter) {
				assert.Equal(t, "2024-03-05T00:00:00.000000Z", *f.StartDate)
				assert.Nil(t, f.EndDate)
			},
		},
		{
			name:  "merchant type adds its category",
			input: `{"merchant_type":["cafe","Hotel","Spaceship"],"merchant_category":["food"]}`,
			check: func(t *testing.T, f domain.StructuredFilter) {
				assert.Equal(t, []string{"Cafe", "Hotel"}, f.MerchantType)
				assert.Equal(t, []string{"Food", "Travel"}, f.MerchantCategory)
			},
		},
		{
			name:  "enums are canonicalized and amounts swapped",
			input: `{"transaction_mode":["upi","UPI","cheque"],"currency":"inr","status":"SUCCESS","amount_min":500,"amount_max":100}`,
			check: func(t *testing.T, f domain.StructuredFilter) {
				assert.Equal(t, []string{"UPI"}, f.TransactionMode)
				assert.Equal(t, "INR", *f.Currency)
				assert.Equal(t, "success", *f.Status)
				assert.Equal(t, 100.0, *f.AmountMin)
				assert.Equal(t, 500.0, *f.AmountMax)
			},
		},
		{
			name:    "unknown keys are rejected",
			input:   `{"user_id":"mallory"}`,
			wantErr: true,
		},
		{
			name:    "bad dates are rejected",
			input:   `{"start_date":"last week"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `sure, here you go`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFilter([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, f)
		})
	}
}

func TestFilterExtractor_Extract(t *testing.T) {
	var prompt string
	provider := &fakeProvider{
		GenerateJSONFunc: func(ctx context.Context, p string, schema *genai.Schema) ([]byte, error) {
			prompt = p
			assert.Same(t, filterSchema, schema)
			return []byte(`{"merchant_type":["Cafe"]}`), nil
		},
	}
	ex := NewFilterExtractor(provider, testLog)
	ex.now = fixedClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	history := []domain.Interaction{{Query: "coffee spend in May", Summary: "You spent 1200 on coffee."}}
	f := ex.Extract(context.Background(), "and in June?", history)

	assert.Contains(t, prompt, "Today is 2024-06-15.")
	assert.Contains(t, prompt, "coffee spend in May")
	assert.True(t, strings.Contains(prompt, `"and in June?"`))
	assert.True(t, f.ParsedSuccessfully)
	assert.Equal(t, []string{"Food"}, f.MerchantCategory)
}

func TestFilterExtractor_Failures(t *testing.T) {
	ex := NewFilterExtractor(failing(errors.New("quota exceeded")), testLog)
	f := ex.Extract(context.Background(), "anything", nil)
	assert.False(t, f.ParsedSuccessfully)
	assert.Contains(t, f.Error, "quota exceeded")
	assert.Nil(t, f.StartDate)

	ex = NewFilterExtractor(scripted(map[*genai.Schema]string{filterSchema: `{"nonsense":true}`}), testLog)
	f = ex.Extract(context.Background(), "anything", nil)
	assert.False(t, f.ParsedSuccessfully)
	assert.Contains(t, f.Error, string(domain.KindParseFailure))
}
