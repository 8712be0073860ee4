package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

type AccountRecord struct {
	ID            string `bigquery:"_id"`
	UserID        string `bigquery:"user_id"`
	UserName      string `bigquery:"user_name"`
	AccountNumber string `bigquery:"account_number"`
}

type MerchantRecord struct {
	ID       string `bigquery:"_id"`
	Name     string `bigquery:"name"`
	Type     string `bigquery:"type"`
	Category string `bigquery:"category"`
}

// TransactionRow is one row of the ledger table. to_account and merchant are
// nullable RECORD columns.
type TransactionRow struct {
	ID            string `bigquery:"_id"`            // REQUIRED
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED, every read filters on it

	FromAccount AccountRecord   `bigquery:"from_account"`
	ToAccount   *AccountRecord  `bigquery:"to_account"` // NULL for merchant payments
	Merchant    *MerchantRecord `bigquery:"merchant"`   // NULL for transfers

	Amount   *big.Rat `bigquery:"amount"` // NUMERIC
	Currency string   `bigquery:"currency"`

	TransactionType string `bigquery:"transaction_type"`
	TransactionMode string `bigquery:"transaction_mode"`
	Status          string `bigquery:"status"`

	InitiatedAt time.Time              `bigquery:"initiated_at"` // partitioning column
	CompletedAt bigquery.NullTimestamp `bigquery:"completed_at"`
	FailedAt    bigquery.NullTimestamp `bigquery:"failed_at"`

	Remarks         string              `bigquery:"remarks"`
	Description     string              `bigquery:"description"`
	ReferenceNumber string              `bigquery:"reference_number"`
	OrderID         bigquery.NullString `bigquery:"order_id"`

	CreatedAt time.Time `bigquery:"created_at"`
	UpdatedAt time.Time `bigquery:"updated_at"`
}

// rowFromTransaction maps a ledger document onto the table schema.
func rowFromTransaction(t domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		ID:            t.ID,
		TransactionID: t.TransactionID,
		UserID:        t.UserID,
		FromAccount: AccountRecord{
			ID:            t.FromAccount.ID,
			UserID:        t.FromAccount.UserID,
			UserName:      t.FromAccount.UserName,
			AccountNumber: t.FromAccount.AccountNumber,
		},
		Amount:          t.Amount.Rat(),
		Currency:        t.Currency,
		TransactionType: t.TransactionType,
		TransactionMode: t.TransactionMode,
		Status:          t.Status,
		InitiatedAt:     t.InitiatedAt.UTC(),
		CompletedAt:     nullTimestamp(t.CompletedAt),
		FailedAt:        nullTimestamp(t.FailedAt),
		Remarks:         t.Remarks,
		Description:     t.Description,
		ReferenceNumber: t.ReferenceNumber,
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
	}
	if t.ToAccount != nil {
		row.ToAccount = &AccountRecord{
			ID:            t.ToAccount.ID,
			UserID:        t.ToAccount.UserID,
			UserName:      t.ToAccount.UserName,
			AccountNumber: t.ToAccount.AccountNumber,
		}
	}
	if t.Merchant != nil {
		row.Merchant = &MerchantRecord{
			ID:       t.Merchant.ID,
			Name:     t.Merchant.Name,
			Type:     t.Merchant.Type,
			Category: t.Merchant.Category,
		}
	}
	if t.OrderID != nil {
		row.OrderID = bigquery.NullString{StringVal: *t.OrderID, Valid: true}
	}
	return row
}

func nullTimestamp(t *time.Time) bigquery.NullTimestamp {
	if t == nil {
		return bigquery.NullTimestamp{}
	}
	return bigquery.NullTimestamp{Timestamp: t.UTC(), Valid: true}
}

// numeric converts a filter bound into a NUMERIC query parameter.
func numeric(f float64) *big.Rat {
	return decimal.NewFromFloat(f).Rat()
}
