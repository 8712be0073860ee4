// Package seed generates a synthetic ledger with the distributions of the
// production data: mostly merchant payments in INR spread over the last year.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// Config sizes a generated ledger.
type Config struct {
	Users        int
	Merchants    int
	Transactions int
	Seed         int64
	Now          time.Time
}

// DefaultConfig mirrors the reference dataset.
func DefaultConfig() Config {
	return Config{Users: 30, Merchants: 750, Transactions: 30000, Seed: 1}
}

// User is an account holder of the generated ledger.
type User struct {
	ID      string
	Name    string
	Account domain.AccountRef
}

// Ledger is a generated dataset.
type Ledger struct {
	Users        []User
	Merchants    []domain.MerchantRef
	Transactions []domain.Transaction
}

const (
	merchantShare = 0.7
	inrShare      = 0.9
	window        = 365 * 24 * time.Hour
)

var (
	firstNames = []string{"Aarav", "Diya", "Ishaan", "Meera", "Kabir", "Ananya", "Rohan", "Saanvi", "Vivaan", "Priya", "Arjun", "Nisha"}
	lastNames  = []string{"Sharma", "Iyer", "Patel", "Reddy", "Khan", "Das", "Menon", "Gupta", "Nair", "Singh"}
	brands     = []string{"Blue", "Urban", "Golden", "Metro", "Sunrise", "Green", "Royal", "City", "Prime", "Star"}
)

// Generator produces reproducible ledgers.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a generator; equal configs give equal ledgers.
func NewGenerator(cfg Config) *Generator {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now().UTC()
	}
	if cfg.Users < 2 {
		cfg.Users = 2
	}
	if cfg.Merchants < 1 {
		cfg.Merchants = 1
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

func (g *Generator) id() string {
	u, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.Intn(len(values))]
}

// Generate builds the users, merchants and transactions.
func (g *Generator) Generate() Ledger {
	var l Ledger
	for i := 0; i < g.cfg.Users; i++ {
		id := g.id()
		name := g.pick(firstNames) + " " + g.pick(lastNames)
		l.Users = append(l.Users, User{
			ID:   id,
			Name: name,
			Account: domain.AccountRef{
				ID:            g.id(),
				UserID:        id,
				UserName:      name,
				AccountNumber: fmt.Sprintf("IN%02d%016d", g.rng.Intn(100), g.rng.Int63n(1e16)),
			},
		})
	}

	types := domain.MerchantTypeNames()
	for i := 0; i < g.cfg.Merchants; i++ {
		mtype := g.pick(types)
		category, _ := domain.ParentCategory(mtype)
		l.Merchants = append(l.Merchants, domain.MerchantRef{
			ID:       g.id(),
			Name:     g.pick(brands) + " " + mtype,
			Type:     mtype,
			Category: category,
		})
	}

	for i := 0; i < g.cfg.Transactions; i++ {
		l.Transactions = append(l.Transactions, g.transaction(l.Users, l.Merchants))
	}
	return l
}

func (g *Generator) transaction(users []User, merchants []domain.MerchantRef) domain.Transaction {
	from := users[g.rng.Intn(len(users))]
	initiated := g.cfg.Now.Add(-time.Duration(g.rng.Int63n(int64(window)))).Truncate(time.Microsecond)

	t := domain.Transaction{
		ID:              g.id(),
		TransactionID:   g.id(),
		UserID:          from.ID,
		FromAccount:     from.Account,
		TransactionType: g.pick(domain.TransactionTypes),
		TransactionMode: g.pick(domain.TransactionModes),
		Status:          g.pick(domain.Statuses),
		InitiatedAt:     initiated,
		ReferenceNumber: fmt.Sprintf("%024x", g.rng.Uint64()),
		CreatedAt:       initiated,
		UpdatedAt:       g.cfg.Now,
	}

	if g.rng.Float64() < merchantShare {
		m := merchants[g.rng.Intn(len(merchants))]
		t.Merchant = &m
		t.Description = "Payment to " + m.Name
		t.Remarks = m.Type + " expense"
		order := g.id()
		t.OrderID = &order
	} else {
		to := users[g.rng.Intn(len(users))]
		for to.ID == from.ID {
			to = users[g.rng.Intn(len(users))]
		}
		acc := to.Account
		t.ToAccount = &acc
		t.Description = "Transfer to " + to.Name
		t.Remarks = "Shared expenses"
	}

	if g.rng.Float64() < inrShare {
		t.Currency = "INR"
		t.Amount = g.amount(10, 10000)
	} else {
		t.Currency = g.pick([]string{"USD", "EUR"})
		t.Amount = g.amount(1, 1000)
	}

	settle := initiated.Add(time.Duration(1+g.rng.Intn(60)) * time.Minute)
	switch t.Status {
	case "success", "refunded":
		t.CompletedAt = &settle
	case "failed":
		t.FailedAt = &settle
	}
	return t
}

// amount returns a value in [min, max] with two decimal places.
func (g *Generator) amount(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(min + g.rng.Float64()*(max-min)).Round(2)
}
