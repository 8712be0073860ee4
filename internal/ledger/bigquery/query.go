package bigquery

import (
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// buildWhere renders the WHERE clause for q. The identity predicate is always
// the first conjunct; everything else is a bound parameter.
func buildWhere(q ledger.Query) (string, []bigquery.QueryParameter, error) {
	if q.Identity == "" {
		return "", nil, ledger.ErrMissingIdentity
	}

	f := q.Filter
	clauses := []string{"user_id = @identity"}
	params := []bigquery.QueryParameter{{Name: "identity", Value: q.Identity}}

	add := func(clause, name string, value interface{}) {
		clauses = append(clauses, clause)
		params = append(params, bigquery.QueryParameter{Name: name, Value: value})
	}

	if t, ok, err := f.StartTime(); err != nil {
		return "", nil, err
	} else if ok {
		add("initiated_at >= @start_date", "start_date", t.UTC())
	}
	if t, ok, err := f.EndTime(); err != nil {
		return "", nil, err
	} else if ok {
		add("initiated_at <= @end_date", "end_date", t.UTC())
	}
	if len(f.TransactionMode) > 0 {
		add("transaction_mode IN UNNEST(@transaction_modes)", "transaction_modes", f.TransactionMode)
	}
	if len(q.TransactionTypes) > 0 {
		add("transaction_type IN UNNEST(@transaction_types)", "transaction_types", q.TransactionTypes)
	}
	if f.Currency != nil {
		add("currency = @currency", "currency", *f.Currency)
	}
	if f.Status != nil {
		add("status = @status", "status", *f.Status)
	}
	if f.AmountMin != nil {
		add("amount >= @amount_min", "amount_min", numeric(*f.AmountMin))
	}
	if f.AmountMax != nil {
		add("amount <= @amount_max", "amount_max", numeric(*f.AmountMax))
	}

	types, categories := ledger.MerchantClause(f)
	var merchant []string
	if len(types) > 0 {
		merchant = append(merchant, "merchant.type IN UNNEST(@merchant_types)")
		params = append(params, bigquery.QueryParameter{Name: "merchant_types", Value: types})
	}
	if len(categories) > 0 {
		merchant = append(merchant, "merchant.category IN UNNEST(@merchant_categories)")
		params = append(params, bigquery.QueryParameter{Name: "merchant_categories", Value: categories})
	}
	if len(merchant) > 0 {
		clauses = append(clauses, "("+strings.Join(merchant, " OR ")+")")
	}

	if f.CounterpartyName != nil {
		add("(LOWER(merchant.name) LIKE @counterparty OR LOWER(to_account.user_name) LIKE @counterparty)",
			"counterparty", "%"+escapeLike(strings.ToLower(*f.CounterpartyName))+"%")
	}

	return strings.Join(clauses, "\n\t\t  AND "), params, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// selectList quotes the projected columns. Fields are whitelisted upstream.
func selectList(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = "`" + f + "`"
	}
	return strings.Join(quoted, ", ")
}

func findSQL(table string, q ledger.Query, where string) string {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY initiated_at DESC`, selectList(q.ProjectedFields()), table, where)
	if q.Limit > 0 {
		sql += fmt.Sprintf("\n\t\tLIMIT %d", q.Limit)
		if q.Offset > 0 {
			sql += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}
	return sql
}

func aggregateSQL(table, where string) string {
	return fmt.Sprintf(`
		SELECT
			COUNT(*) AS transaction_count,
			IFNULL(SUM(amount), 0) AS total_amount,
			MIN(initiated_at) AS date_min,
			MAX(initiated_at) AS date_max
		FROM %s
		WHERE %s`, table, where)
}

func usersSQL(table string) string {
	return fmt.Sprintf(`
		SELECT
			user_id,
			ANY_VALUE(from_account.user_name) AS user_name,
			COUNT(*) AS transaction_count
		FROM %s
		GROUP BY user_id
		ORDER BY user_id`, table)
}
