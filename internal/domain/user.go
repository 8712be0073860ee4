package domain

// User is an account holder that appears in the ledger.
type User struct {
	UserID           string `json:"user_id"`
	UserName         string `json:"user_name"`
	TransactionCount int64  `json:"transaction_count"`
}
