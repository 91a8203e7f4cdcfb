package domain

import "strings"

// MedicineResult is one entry of a batch lookup.
type MedicineResult struct {
	Query Query `json:"query"`

	// Result is nil when the medicine could not be searched at all.
	Result *AggregateResult `json:"result,omitempty"`

	// FallbackTerm is set when offers came from an alternative name.
	FallbackTerm string `json:"fallback_term,omitempty"`

	// Error describes a query-level failure for this medicine.
	Error string `json:"error,omitempty"`
}

// Savings returns the savings for this medicine, zero when it failed.
func (m MedicineResult) Savings() float64 {
	if m.Result == nil {
		return 0
	}
	return m.Result.Savings
}

// CrossMedicineSummary combines the results of a batch of queries.
type CrossMedicineSummary struct {
	// Medicines preserves the order of the input queries.
	Medicines []MedicineResult `json:"medicines"`

	// TotalSavings is the sum of every medicine's savings.
	TotalSavings float64 `json:"total_savings"`
}

// NewCrossMedicineSummary builds a summary and computes TotalSavings.
func NewCrossMedicineSummary(medicines []MedicineResult) *CrossMedicineSummary {
	var total float64
	for _, m := range medicines {
		total += m.Savings()
	}
	if medicines == nil {
		medicines = []MedicineResult{}
	}
	return &CrossMedicineSummary{
		Medicines:    medicines,
		TotalSavings: total,
	}
}

// Lookup returns the first entry whose medicine name matches, ignoring case.
func (s *CrossMedicineSummary) Lookup(name string) (MedicineResult, bool) {
	for _, m := range s.Medicines {
		if strings.EqualFold(m.Query.MedicineName, name) {
			return m, true
		}
	}
	return MedicineResult{}, false
}
