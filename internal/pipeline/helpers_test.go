package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/paarshan4800/fin-advisor/internal/domain"
	ledgermem "github.com/paarshan4800/fin-advisor/internal/ledger/memory"
)

// fakeProvider is a mock implementation of llm.Provider.
type fakeProvider struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error)
}

func (f *fakeProvider) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
	if f.GenerateJSONFunc != nil {
		return f.GenerateJSONFunc(ctx, prompt, schema)
	}
	return nil, errors.New("GenerateJSON not configured")
}

// scripted answers each structured call with the response registered for its schema.
func scripted(responses map[*genai.Schema]string) *fakeProvider {
	return &fakeProvider{
		GenerateJSONFunc: func(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
			out, ok := responses[schema]
			if !ok {
				return nil, fmt.Errorf("no scripted response for schema")
			}
			return []byte(out), nil
		},
	}
}

func failing(err error) *fakeProvider {
	return &fakeProvider{
		GenerateJSONFunc: func(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
			return nil, err
		},
	}
}

var testLog = zerolog.New(io.Discard)

var fixtureBase = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func purchase(id, user, name, mtype, category, amount string, at time.Time) domain.Transaction {
	return domain.Transaction{
		ID:              id,
		TransactionID:   "txn-" + id,
		UserID:          user,
		FromAccount:     domain.AccountRef{ID: "acc-" + user, UserID: user, UserName: user},
		Merchant:        &domain.MerchantRef{ID: "m-" + id, Name: name, Type: mtype, Category: category},
		Amount:          decimal.RequireFromString(amount),
		Currency:        "INR",
		TransactionType: "debit",
		TransactionMode: "UPI",
		Status:          "success",
		InitiatedAt:     at,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}

// ledgerFixture holds four purchases for alice and one for bob.
func ledgerFixture() *ledgermem.Store {
	return ledgermem.NewStore(
		purchase("1", "alice", "Blue Tokai", "Cafe", "Food", "250.50", fixtureBase),
		purchase("2", "alice", "Swiggy", "Food Delivery", "Food", "420", fixtureBase.Add(-24*time.Hour)),
		purchase("3", "alice", "Amazon", "Online Retail", "Shopping", "1999.99", fixtureBase.Add(-48*time.Hour)),
		purchase("4", "alice", "Shell", "Gas Station", "Petrol", "3000", fixtureBase.Add(-72*time.Hour)),
		purchase("5", "bob", "Blue Tokai", "Cafe", "Food", "180", fixtureBase),
	)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
