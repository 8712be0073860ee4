package ledger

import (
	"time"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// Document renders a transaction as a JSON-safe document keyed by ledger field.
func Document(t domain.Transaction) Record {
	return Record{
		"_id":              t.ID,
		"transaction_id":   t.TransactionID,
		"user_id":          t.UserID,
		"from_account":     accountDoc(&t.FromAccount),
		"to_account":       accountDoc(t.ToAccount),
		"merchant":         merchantDoc(t.Merchant),
		"amount":           t.Amount.InexactFloat64(),
		"currency":         t.Currency,
		"transaction_type": t.TransactionType,
		"transaction_mode": t.TransactionMode,
		"status":           t.Status,
		"initiated_at":     FormatTime(t.InitiatedAt),
		"completed_at":     optionalTime(t.CompletedAt),
		"failed_at":        optionalTime(t.FailedAt),
		"remarks":          t.Remarks,
		"description":      t.Description,
		"reference_number": t.ReferenceNumber,
		"order_id":         optionalString(t.OrderID),
		"created_at":       FormatTime(t.CreatedAt),
		"updated_at":       FormatTime(t.UpdatedAt),
	}
}

// Project keeps only the given fields of a document. Missing fields are null.
func Project(doc Record, fields []string) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		out[f] = doc[f]
	}
	return out
}

// MerchantClause splits the merchant predicate into the selected merchant
// types and the categories not narrowed by any selected type. A document
// matches when its merchant type is in types or its category is in categories.
func MerchantClause(f domain.StructuredFilter) (types, categories []string) {
	return f.MerchantType, f.BroadCategories()
}

func accountDoc(a *domain.AccountRef) any {
	if a == nil {
		return nil
	}
	return map[string]any{
		"_id":            a.ID,
		"user_id":        a.UserID,
		"user_name":      a.UserName,
		"account_number": a.AccountNumber,
	}
}

func merchantDoc(m *domain.MerchantRef) any {
	if m == nil {
		return nil
	}
	return map[string]any{
		"_id":      m.ID,
		"name":     m.Name,
		"type":     m.Type,
		"category": m.Category,
	}
}

func optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

func optionalString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
