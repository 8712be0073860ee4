package domain

// NoTransactionsNote is attached to a CategoryResult computed over no rows.
const NoTransactionsNote = "No transactions available for analysis."

// CategoryResult groups merchants and descriptions into spending categories.
type CategoryResult struct {
	CategoryMapping     map[string][]string `json:"category_mapping"`
	UnnecessaryPatterns []string            `json:"unnecessary_patterns"`
	Recommendations     []string            `json:"recommendations"`
	Note                string              `json:"note,omitempty"`
	Error               *StageError         `json:"error,omitempty"`
}

// EmptyCategoryResult returns the zero-value shape with non-nil collections.
func EmptyCategoryResult() CategoryResult {
	return CategoryResult{
		CategoryMapping:     map[string][]string{},
		UnnecessaryPatterns: []string{},
		Recommendations:     []string{},
	}
}

// FailedCategoryResult returns the zero-value shape annotated with err.
func FailedCategoryResult(err *StageError) CategoryResult {
	r := EmptyCategoryResult()
	r.Error = err
	return r
}
