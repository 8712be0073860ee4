package mongo

import (
	"regexp"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// buildFilter renders q as a $and of clauses whose first element is always
// the identity equality.
func buildFilter(q ledger.Query) (bson.D, error) {
	if q.Identity == "" {
		return nil, ledger.ErrMissingIdentity
	}
	f := q.Filter
	and := bson.A{bson.D{{Key: "user_id", Value: q.Identity}}}

	dateRange := bson.D{}
	if t, ok, err := f.StartTime(); err != nil {
		return nil, err
	} else if ok {
		dateRange = append(dateRange, bson.E{Key: "$gte", Value: bson.NewDateTimeFromTime(t)})
	}
	if t, ok, err := f.EndTime(); err != nil {
		return nil, err
	} else if ok {
		dateRange = append(dateRange, bson.E{Key: "$lte", Value: bson.NewDateTimeFromTime(t)})
	}
	if len(dateRange) > 0 {
		and = append(and, bson.D{{Key: "initiated_at", Value: dateRange}})
	}

	if len(f.TransactionMode) > 0 {
		and = append(and, bson.D{{Key: "transaction_mode", Value: bson.D{{Key: "$in", Value: f.TransactionMode}}}})
	}
	if len(q.TransactionTypes) > 0 {
		and = append(and, bson.D{{Key: "transaction_type", Value: bson.D{{Key: "$in", Value: q.TransactionTypes}}}})
	}
	if f.Currency != nil {
		and = append(and, bson.D{{Key: "currency", Value: *f.Currency}})
	}
	if f.Status != nil {
		and = append(and, bson.D{{Key: "status", Value: *f.Status}})
	}

	amount := bson.D{}
	if f.AmountMin != nil {
		v, err := decimal128(*f.AmountMin)
		if err != nil {
			return nil, err
		}
		amount = append(amount, bson.E{Key: "$gte", Value: v})
	}
	if f.AmountMax != nil {
		v, err := decimal128(*f.AmountMax)
		if err != nil {
			return nil, err
		}
		amount = append(amount, bson.E{Key: "$lte", Value: v})
	}
	if len(amount) > 0 {
		and = append(and, bson.D{{Key: "amount", Value: amount}})
	}

	types, categories := ledger.MerchantClause(f)
	merchant := bson.A{}
	if len(types) > 0 {
		merchant = append(merchant, bson.D{{Key: "merchant.type", Value: bson.D{{Key: "$in", Value: types}}}})
	}
	if len(categories) > 0 {
		merchant = append(merchant, bson.D{{Key: "merchant.category", Value: bson.D{{Key: "$in", Value: categories}}}})
	}
	if len(merchant) > 0 {
		and = append(and, bson.D{{Key: "$or", Value: merchant}})
	}

	if f.CounterpartyName != nil {
		re := bson.Regex{Pattern: regexp.QuoteMeta(*f.CounterpartyName), Options: "i"}
		and = append(and, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "merchant.name", Value: re}},
			bson.D{{Key: "to_account.user_name", Value: re}},
		}}})
	}

	return bson.D{{Key: "$and", Value: and}}, nil
}

// projection includes the requested fields and suppresses _id unless asked for.
func projection(fields []string) bson.D {
	p := bson.D{}
	withID := false
	for _, f := range fields {
		if f == "_id" {
			withID = true
		}
		p = append(p, bson.E{Key: f, Value: 1})
	}
	if !withID {
		p = append(p, bson.E{Key: "_id", Value: 0})
	}
	return p
}

func decimal128(f float64) (bson.Decimal128, error) {
	return bson.ParseDecimal128(decimal.NewFromFloat(f).String())
}
