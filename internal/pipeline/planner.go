package pipeline

import (
	"regexp"
	"strings"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// Plan is what the orchestrator derives from the question text alone.
type Plan struct {
	Categorize     bool   `json:"categorize"`
	PreferredChart string `json:"preferred_chart,omitempty"`
	Objective      string `json:"objective"`
}

// Phrases match whole words only, so "laptop" is not "top" and
// "vegetables" is not "table".
var chartPhrases = []struct {
	re    *regexp.Regexp
	chart string
}{
	{regexp.MustCompile(`\bbar (chart|graph)s?\b`), domain.ChartBar},
	{regexp.MustCompile(`\bpie charts?\b`), domain.ChartPie},
	{regexp.MustCompile(`\bline (chart|graph)s?\b`), domain.ChartLine},
	{regexp.MustCompile(`\bscatter( plot| chart)?s?\b`), domain.ChartScatter},
	{regexp.MustCompile(`\btables?\b`), domain.VisualizationTable},
}

var (
	categorizeRe = regexp.MustCompile(`\b(categor\w*|breakdowns?|break down|unnecessary|save money|savings?|recommend\w*|patterns?)\b`)
	byMerchantRe = regexp.MustCompile(`\bby merchants?\b`)
	byCategoryRe = regexp.MustCompile(`\bby categor(y|ies)\b`)
	trendRe      = regexp.MustCompile(`\b(trend\w*|over time)\b`)
	topRe        = regexp.MustCompile(`\btop\b`)
)

// PlanQuery derives the plan without inference.
func PlanQuery(query string) Plan {
	q := strings.ToLower(query)
	p := Plan{Categorize: categorizeRe.MatchString(q)}

	for _, c := range chartPhrases {
		if c.re.MatchString(q) {
			p.PreferredChart = c.chart
			break
		}
	}

	switch {
	case byMerchantRe.MatchString(q):
		p.Objective = "Total spending grouped by merchant"
	case byCategoryRe.MatchString(q):
		p.Objective = "Total spending grouped by category"
	case trendRe.MatchString(q):
		p.Objective = "Spending trend over time"
		if p.PreferredChart == "" {
			p.PreferredChart = domain.ChartLine
		}
	case topRe.MatchString(q):
		p.Objective = "Largest transactions or merchants"
	default:
		p.Objective = "Answer the question: " + strings.TrimSpace(query)
	}
	return p
}
