package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountRef is the embedded account snapshot stored on a ledger document.
type AccountRef struct {
	ID            string `json:"_id"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	AccountNumber string `json:"account_number"`
}

// MerchantRef is the embedded merchant snapshot stored on a ledger document.
type MerchantRef struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

// Transaction is one ledger document. Exactly one of ToAccount and Merchant
// is set: merchant payments carry a merchant, transfers a counterparty account.
type Transaction struct {
	ID              string          `json:"_id"`
	TransactionID   string          `json:"transaction_id"`
	UserID          string          `json:"user_id"`
	FromAccount     AccountRef      `json:"from_account"`
	ToAccount       *AccountRef     `json:"to_account"`
	Merchant        *MerchantRef    `json:"merchant"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionType string          `json:"transaction_type"`
	TransactionMode string          `json:"transaction_mode"`
	Status          string          `json:"status"`
	InitiatedAt     time.Time       `json:"initiated_at"`
	CompletedAt     *time.Time      `json:"completed_at"`
	FailedAt        *time.Time      `json:"failed_at"`
	Remarks         string          `json:"remarks"`
	Description     string          `json:"description"`
	ReferenceNumber string          `json:"reference_number"`
	OrderID         *string         `json:"order_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsMerchantPayment reports whether the transaction paid a merchant.
func (t Transaction) IsMerchantPayment() bool {
	return t.Merchant != nil
}

// Counterparty returns the merchant name or the receiving account holder.
func (t Transaction) Counterparty() string {
	switch {
	case t.Merchant != nil:
		return t.Merchant.Name
	case t.ToAccount != nil:
		return t.ToAccount.UserName
	}
	return ""
}
