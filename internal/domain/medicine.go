package domain

import (
	"regexp"
	"slices"
	"strings"
)

var (
	parenthesesPattern = regexp.MustCompile(`\(([^)]+)\)`)
	specialCharPattern = regexp.MustCompile(`[^\w\s.\-]`)
	dosagePattern      = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(mg|ml|gm|g|mcg|iu|%)`)
)

// medicineForms are packaging and unit words dropped from a base name.
var medicineForms = map[string]struct{}{
	"tablet": {}, "tablets": {}, "tab": {}, "tabs": {},
	"capsule": {}, "capsules": {}, "cap": {}, "caps": {},
	"syrup": {}, "suspension": {}, "drops": {}, "drop": {},
	"injection": {}, "inj": {}, "cream": {}, "ointment": {}, "gel": {},
	"powder": {}, "sachet": {}, "strip": {}, "bottle": {},
	"ml": {}, "mg": {}, "gm": {}, "g": {}, "mcg": {}, "iu": {},
	"of": {}, "pack": {}, "unit": {}, "units": {}, "'s": {},
}

// medicineAlternatives maps a generic name to common Indian brand names.
var medicineAlternatives = map[string][]string{
	"paracetamol":  {"dolo", "crocin", "calpol", "pacimol", "pyrigesic"},
	"ibuprofen":    {"brufen", "ibugesic", "combiflam"},
	"cetirizine":   {"cetzine", "alerid", "zyrtec", "okacet"},
	"azithromycin": {"azithral", "zithromax", "azee"},
	"amoxicillin":  {"mox", "novamox", "amoxil"},
	"omeprazole":   {"omez", "ocid", "omecip"},
	"metformin":    {"glycomet", "glucophage", "obimet"},
	"atorvastatin": {"atorva", "lipitor", "storvas"},
	"pantoprazole": {"pan", "pantop", "pantocid"},
	"montelukast":  {"montair", "montek", "singulair"},
}

// CleanMedicineName normalizes whitespace, unwraps parentheses and removes
// punctuation other than dots and hyphens.
func CleanMedicineName(name string) string {
	cleaned := collapseSpaces(name)
	cleaned = parenthesesPattern.ReplaceAllString(cleaned, " $1 ")
	cleaned = specialCharPattern.ReplaceAllString(cleaned, " ")
	return collapseSpaces(cleaned)
}

// SplitDosage separates a free-form medicine name into its base name and
// dosage. "Paracetamol 500 mg tablet" yields ("Paracetamol", "500mg").
// The dosage is empty when none is present.
func SplitDosage(name string) (base string, dosage string) {
	cleaned := CleanMedicineName(name)

	loc := dosagePattern.FindStringSubmatchIndex(cleaned)
	if loc == nil {
		return stripForms(cleaned), ""
	}

	dosage = cleaned[loc[2]:loc[3]] + strings.ToLower(cleaned[loc[4]:loc[5]])
	base = strings.TrimSpace(cleaned[:loc[0]])
	if base == "" {
		base = strings.TrimSpace(cleaned[loc[1]:])
	}
	return stripForms(base), dosage
}

// NormalizeQuery turns free text into a Query the way users type
// prescriptions: an explicit dosage wins over one embedded in the name.
func NormalizeQuery(medicineName, dosage string) Query {
	base, extracted := SplitDosage(medicineName)
	if base == "" {
		base = medicineName
	}
	if strings.TrimSpace(dosage) == "" {
		dosage = extracted
	}
	return NewQuery(base, dosage)
}

// AlternativeNames returns generic and brand names related to the medicine,
// sorted and without duplicates. Unknown medicines return nil.
func AlternativeNames(name string) []string {
	lower := strings.ToLower(strings.TrimSpace(name))
	base, _ := SplitDosage(name)
	baseLower := strings.ToLower(base)

	seen := make(map[string]struct{})
	for generic, brands := range medicineAlternatives {
		if strings.Contains(lower, generic) || strings.Contains(baseLower, generic) {
			for _, b := range brands {
				seen[b] = struct{}{}
			}
		}
		for _, brand := range brands {
			if !containsWord(lower, brand) && !containsWord(baseLower, brand) {
				continue
			}
			seen[generic] = struct{}{}
			for _, b := range brands {
				if b != brand {
					seen[b] = struct{}{}
				}
			}
			break
		}
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func stripForms(s string) string {
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if _, ok := medicineForms[strings.ToLower(w)]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// containsWord matches brand names as whole words so short brands like
// "pan" do not match inside "pantoprazole".
func containsWord(text, word string) bool {
	for _, f := range strings.Fields(text) {
		if f == word {
			return true
		}
	}
	return false
}
