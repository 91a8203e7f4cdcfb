// Package domain provides domain models and business logic for the price
// comparison service.
package domain

import (
	"strings"
)

// MaxMedicineNameLength bounds the medicine name accepted in a query.
const MaxMedicineNameLength = 200

// MaxBatchSize is the largest accepted prescription batch.
const MaxBatchSize = 20

// Query is a single medicine lookup. It is an immutable value.
type Query struct {
	// MedicineName is the name as the user supplied it, whitespace-normalized.
	MedicineName string `json:"medicine_name"`

	// Dosage is an optional strength such as "650mg".
	Dosage *string `json:"dosage,omitempty"`
}

// NewQuery builds a Query, collapsing whitespace in both fields. An empty or
// blank dosage is treated as absent.
func NewQuery(medicineName string, dosage string) Query {
	q := Query{MedicineName: collapseSpaces(medicineName)}
	if d := collapseSpaces(dosage); d != "" {
		q.Dosage = &d
	}
	return q
}

// Validate checks that the query can be sent to pharmacy sources.
func (q Query) Validate() error {
	if q.MedicineName == "" {
		return NewValidationError("medicine_name", "must not be empty")
	}
	if len(q.MedicineName) > MaxMedicineNameLength {
		return NewValidationError("medicine_name", "is too long")
	}
	return nil
}

// DosageValue returns the dosage or an empty string.
func (q Query) DosageValue() string {
	if q.Dosage == nil {
		return ""
	}
	return *q.Dosage
}

// SearchTerm is the text submitted to pharmacy search pages: the medicine
// name followed by the dosage when present.
func (q Query) SearchTerm() string {
	if q.Dosage == nil {
		return q.MedicineName
	}
	return strings.TrimSpace(q.MedicineName + " " + *q.Dosage)
}

// Key returns the case-folded medicine name.
func (q Query) Key() string {
	return strings.ToLower(q.MedicineName)
}

// WithMedicineName returns a copy of q searching for a different name.
func (q Query) WithMedicineName(name string) Query {
	out := Query{MedicineName: collapseSpaces(name)}
	if q.Dosage != nil {
		d := *q.Dosage
		out.Dosage = &d
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
