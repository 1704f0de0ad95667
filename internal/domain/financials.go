package domain

import "github.com/shopspring/decimal"

// Currency is an ISO 4217 currency code.
type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// MoneyMatch is one currency-tagged amount found in a document.
type MoneyMatch struct {
	// Amount is the canonicalized value in whole currency units.
	Amount decimal.Decimal `json:"amount"`
	// Currency is the code resolved from the adjacent symbol or word.
	Currency Currency `json:"currency"`
	// Raw is the exact substring the amount was parsed from.
	Raw string `json:"raw"`
	// Offset is the byte offset of Raw within the source text.
	Offset int `json:"offset"`
}

// ExtractedFinancials holds the figures found deterministically in a
// document. It never depends on AI output.
type ExtractedFinancials struct {
	Matches []MoneyMatch `json:"matches"`
	// Primary is the largest amount in the dominant currency, or nil.
	Primary          *MoneyMatch `json:"primary,omitempty"`
	DominantCurrency Currency    `json:"dominant_currency,omitempty"`
	// TimelineMonths is the extracted duration reduced to months, or nil.
	TimelineMonths *float64 `json:"timeline_months,omitempty"`
	CompanyNames   []string `json:"company_names,omitempty"`
	// LowConfidence is set when nothing usable was found or the figures
	// were ambiguous.
	LowConfidence bool     `json:"low_confidence"`
	Warnings      []string `json:"warnings,omitempty"`
}

// PrimaryAmount returns the primary amount as a float for ratio scoring, and
// false when no primary amount was extracted.
func (f *ExtractedFinancials) PrimaryAmount() (float64, Currency, bool) {
	if f == nil || f.Primary == nil {
		return 0, "", false
	}
	return f.Primary.Amount.InexactFloat64(), f.Primary.Currency, true
}

// Months returns the extracted timeline and false when none was found.
func (f *ExtractedFinancials) Months() (float64, bool) {
	if f == nil || f.TimelineMonths == nil {
		return 0, false
	}
	return *f.TimelineMonths, true
}

// CompanyName returns the first company name candidate or "".
func (f *ExtractedFinancials) CompanyName() string {
	if f == nil || len(f.CompanyNames) == 0 {
		return ""
	}
	return f.CompanyNames[0]
}
