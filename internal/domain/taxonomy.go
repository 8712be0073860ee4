package domain

import (
	"sort"
	"strings"
)

// Fixed enumerations of the ledger. Values are stored exactly as written here.
var (
	TransactionModes = []string{"UPI", "Card", "BankTransfer", "Cash"}
	Currencies       = []string{"INR", "USD", "EUR"}
	Statuses         = []string{"initiated", "success", "failed", "refunded"}
	TransactionTypes = []string{"credit", "debit", "refund"}
)

// MerchantTaxonomy maps each merchant category to its merchant types.
// A merchant type belongs to exactly one category.
var MerchantTaxonomy = map[string][]string{
	"Food":          {"Restaurant", "Cafe", "Food Delivery", "Bakery", "Fast Food"},
	"Shopping":      {"Clothing Store", "Electronics Store", "Supermarket", "Online Retail", "Bookstore"},
	"Petrol":        {"Gas Station", "Fuel Pump"},
	"Travel":        {"Airline", "Hotel", "Travel Agency", "Car Rental"},
	"Entertainment": {"Movie Theater", "Concert Venue", "Amusement Park", "Streaming Service", "Subscription"},
	"Utilities":     {"Electricity Provider", "Water Supply", "Internet Provider", "Mobile Recharge"},
	"Health":        {"Hospital", "Pharmacy", "Clinic"},
	"Finance":       {"Bank", "Insurance", "Brokerage", "Loan Provider"},
	"Education":     {"School", "College", "Online Courses", "Stationery"},
	"Government":    {"Tax Office", "Municipality", "Toll", "License Fees"},
	"Others":        {"Gym", "Spa", "Charity", "Miscellaneous"},
}

var (
	categoryIndex = map[string]string{} // normalized -> canonical category
	typeIndex     = map[string]string{} // normalized -> canonical type
	parentOfType  = map[string]string{} // canonical type -> canonical category
	modeIndex     = indexOf(TransactionModes)
	currencyIndex = indexOf(Currencies)
	statusIndex   = indexOf(Statuses)
	txnTypeIndex  = indexOf(TransactionTypes)
)

func init() {
	for cat, types := range MerchantTaxonomy {
		categoryIndex[normalizeLabel(cat)] = cat
		for _, t := range types {
			typeIndex[normalizeLabel(t)] = t
			parentOfType[t] = cat
		}
	}
}

func indexOf(values []string) map[string]string {
	idx := make(map[string]string, len(values))
	for _, v := range values {
		idx[normalizeLabel(v)] = v
	}
	return idx
}

// normalizeLabel folds case and whitespace so free-text labels can be matched
// against canonical taxonomy entries.
func normalizeLabel(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// CanonicalCategory returns the canonical merchant category for a free-text label.
func CanonicalCategory(label string) (string, bool) {
	c, ok := categoryIndex[normalizeLabel(label)]
	return c, ok
}

// CanonicalMerchantType returns the canonical merchant type for a free-text label.
func CanonicalMerchantType(label string) (string, bool) {
	t, ok := typeIndex[normalizeLabel(label)]
	return t, ok
}

// ParentCategory returns the category a canonical merchant type belongs to.
func ParentCategory(merchantType string) (string, bool) {
	c, ok := parentOfType[merchantType]
	return c, ok
}

// CanonicalMode returns the canonical transaction mode for a free-text label.
func CanonicalMode(label string) (string, bool) {
	m, ok := modeIndex[normalizeLabel(label)]
	return m, ok
}

// CanonicalCurrency returns the canonical currency code for a free-text label.
func CanonicalCurrency(label string) (string, bool) {
	c, ok := currencyIndex[normalizeLabel(label)]
	return c, ok
}

// CanonicalStatus returns the canonical status for a free-text label.
func CanonicalStatus(label string) (string, bool) {
	s, ok := statusIndex[normalizeLabel(label)]
	return s, ok
}

// CanonicalTransactionType returns the canonical transaction type for a free-text label.
func CanonicalTransactionType(label string) (string, bool) {
	t, ok := txnTypeIndex[normalizeLabel(label)]
	return t, ok
}

// CategoryNames returns the taxonomy categories in sorted order.
func CategoryNames() []string {
	names := make([]string, 0, len(MerchantTaxonomy))
	for cat := range MerchantTaxonomy {
		names = append(names, cat)
	}
	sort.Strings(names)
	return names
}

// MerchantTypeNames returns every merchant type in sorted order.
func MerchantTypeNames() []string {
	names := make([]string, 0, len(parentOfType))
	for t := range parentOfType {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}
