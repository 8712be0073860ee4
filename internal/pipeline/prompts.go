package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// buildTaxonomyPrompt lists the merchant categories and their types, formatted
// for LLM consumption.
func buildTaxonomyPrompt() string {
	var b strings.Builder
	b.WriteString("Use ONLY the following merchant categories and merchant types:\n\n")
	for _, cat := range domain.CategoryNames() {
		b.WriteString(cat + ":\n")
		types := append([]string{}, domain.MerchantTaxonomy[cat]...)
		sort.Strings(types)
		for _, t := range types {
			b.WriteString("  - " + t + "\n")
		}
	}
	return b.String()
}

func buildHistoryPrompt(history []domain.Interaction) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Earlier in this conversation:\n")
	for _, h := range history {
		fmt.Fprintf(&b, "- User: %s\n  Answer: %s\n", h.Query, h.Summary)
	}
	b.WriteString("Resolve relative references in the new question against these turns.\n\n")
	return b.String()
}

func buildFilterPrompt(query string, today time.Time, history []domain.Interaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s.\n", today.Format("2006-01-02"))
	b.WriteString("You turn a question about the user's own transactions into a search filter.\n\n")
	b.WriteString(buildHistoryPrompt(history))
	b.WriteString(buildTaxonomyPrompt())
	fmt.Fprintf(&b, "\nTransaction modes: %s\n", strings.Join(domain.TransactionModes, ", "))
	fmt.Fprintf(&b, "Currencies: %s\n", strings.Join(domain.Currencies, ", "))
	fmt.Fprintf(&b, "Statuses: %s\n\n", strings.Join(domain.Statuses, ", "))
	b.WriteString(`Rules:
- start_date and end_date are calendar dates in YYYY-MM-DD format, or null when the question has no time range.
- Only fill a field the question actually constrains; leave everything else null or empty.
- counterparty_name is a merchant or person name mentioned in the question.
- Amounts are plain numbers without currency symbols.

`)
	fmt.Fprintf(&b, "Question: %q\n", query)
	return b.String()
}

func nullableString(desc string, enum []string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Nullable: genai.Ptr(true), Description: desc, Enum: enum}
}

func stringArray(desc string, enum []string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: desc,
		Items:       &genai.Schema{Type: genai.TypeString, Enum: enum},
	}
}

var filterSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"start_date":        nullableString("first day, YYYY-MM-DD", nil),
		"end_date":          nullableString("last day, YYYY-MM-DD", nil),
		"transaction_mode":  stringArray("payment modes", domain.TransactionModes),
		"currency":          nullableString("currency code", domain.Currencies),
		"amount_min":        {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
		"amount_max":        {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
		"status":            nullableString("transaction status", domain.Statuses),
		"merchant_category": stringArray("merchant categories", domain.CategoryNames()),
		"merchant_type":     stringArray("merchant types", domain.MerchantTypeNames()),
		"counterparty_name": nullableString("merchant or person name", nil),
	},
	PropertyOrdering: []string{
		"start_date", "end_date", "transaction_mode", "currency", "amount_min", "amount_max",
		"status", "merchant_category", "merchant_type", "counterparty_name",
	},
}

const projectionExamples = `Examples:
Question: "How much did I spend last month?"
{"fields": ["amount", "initiated_at"], "reasoning": "Only totals over time are needed."}
Question: "Show my spending by merchant"
{"fields": ["amount", "merchant", "initiated_at"], "reasoning": "Grouping by merchant needs the merchant record."}
Question: "Which transfers to friends failed?"
{"fields": ["amount", "to_account", "status", "initiated_at"], "reasoning": "Transfers name the receiving account; status shows failures."}
`

func buildProjectionPrompt(query string) string {
	var b strings.Builder
	b.WriteString("Pick the smallest set of transaction fields needed to answer the question.\n")
	fmt.Fprintf(&b, "Allowed fields: %s\n\n", strings.Join(domain.Whitelist, ", "))
	b.WriteString(projectionExamples)
	fmt.Fprintf(&b, "\nQuestion: %q\n", query)
	return b.String()
}

var projectionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"fields":    stringArray("projected fields", domain.Whitelist),
		"reasoning": {Type: genai.TypeString},
	},
	Required:         []string{"fields", "reasoning"},
	PropertyOrdering: []string{"fields", "reasoning"},
}

func buildCategoryPrompt(rows []map[string]any) (string, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("buildCategoryPrompt: marshal rows: %w", err)
	}
	var b strings.Builder
	b.WriteString(`You are a finance assistant. Analyze the user's transaction data.
1. Group merchants and descriptions into spending categories.
2. Identify unnecessary spending patterns.
3. Suggest recommendations to save money.

`)
	b.WriteString("Transaction data (JSON): ")
	b.Write(data)
	b.WriteString("\n")
	return b.String(), nil
}

var categorySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category_mapping": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category": {Type: genai.TypeString},
					"items":    stringArray("merchants or descriptions", nil),
				},
				Required: []string{"category", "items"},
			},
		},
		"unnecessary_patterns": stringArray("", nil),
		"recommendations":      stringArray("", nil),
	},
	Required:         []string{"category_mapping", "unnecessary_patterns", "recommendations"},
	PropertyOrdering: []string{"category_mapping", "unnecessary_patterns", "recommendations"},
}

func buildVisualizationPrompt(req VisualizationRequest, rows []map[string]any) (string, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("buildVisualizationPrompt: marshal rows: %w", err)
	}
	var b strings.Builder
	b.WriteString("Turn the transactions below into exactly one chart or one table for the user.\n")
	fmt.Fprintf(&b, "Objective: %s\n", req.Objective)
	if req.PreferredChart != "" {
		fmt.Fprintf(&b, "The user asked for: %s\n", req.PreferredChart)
	}
	if req.Categories != nil && len(req.Categories.CategoryMapping) > 0 {
		hints, err := json.Marshal(req.Categories.CategoryMapping)
		if err == nil {
			fmt.Fprintf(&b, "Group merchants with these categories: %s\n", hints)
		}
	}
	b.WriteString(`Rules:
- type is "chart" or "table".
- A chart needs chartType (pie, bar, line or scatter). Pie, bar and line data is a list of {label, value}; aggregate amounts per label yourself.
- A line chart labels are dates in ascending order.
- A scatter chart relates two numbers: data is a list of {x, y, label} where label is optional.
- A table needs headers and rows; every row has one cell per header, cells are strings.
- text_summary is one or two friendly sentences describing the result.

`)
	b.WriteString("Transactions (JSON): ")
	b.Write(data)
	b.WriteString("\n")
	return b.String(), nil
}

var visualizationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type":      {Type: genai.TypeString, Enum: []string{domain.VisualizationChart, domain.VisualizationTable}},
		"chartType": nullableString("", domain.ChartTypes),
		"data": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"label": {Type: genai.TypeString},
					"value": {Type: genai.TypeNumber},
					"x":     {Type: genai.TypeNumber},
					"y":     {Type: genai.TypeNumber},
				},
			},
		},
		"headers": stringArray("", nil),
		"rows": {
			Type:  genai.TypeArray,
			Items: stringArray("", nil),
		},
		"text_summary": {Type: genai.TypeString},
	},
	Required:         []string{"type", "text_summary"},
	PropertyOrdering: []string{"type", "chartType", "data", "headers", "rows", "text_summary"},
}
