package efaktur

import "fmt"

// DeviationType classifies a field difference.
type DeviationType string

const (
	DeviationMismatch     DeviationType = "mismatch"
	DeviationMissingInPDF DeviationType = "missing_in_pdf"
	DeviationMissingInAPI DeviationType = "missing_in_api"
)

// Deviation is a field whose document value differs from the DJP value.
type Deviation struct {
	Field         Field         `json:"field"`
	PDFValue      *string       `json:"pdf_value"`
	DJPValue      *string       `json:"djp_api_value"`
	DeviationType DeviationType `json:"deviation_type"`
}

// Compare returns the deviations between the document fields and the DJP
// fields, in ComparedFields order. It never returns nil.
func Compare(document, djp Fields) []Deviation {
	out := []Deviation{}
	for _, name := range ComparedFields {
		pv := document.Get(name)
		dv := djp.Get(name)
		if name == FieldJumlahPPnBM {
			pv = orDefault(pv, defaultPPnBM)
			dv = orDefault(dv, defaultPPnBM)
		}
		if equal(name, pv, dv) {
			continue
		}
		out = append(out, Deviation{
			Field:         name,
			PDFValue:      optional(pv),
			DJPValue:      optional(dv),
			DeviationType: classify(pv, dv),
		})
	}
	return out
}

// Summary is the human-readable message for a comparison.
func Summary(deviations []Deviation) string {
	if len(deviations) == 0 {
		return "Validation complete"
	}
	return fmt.Sprintf("Found %d deviation(s)", len(deviations))
}

func equal(name Field, a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	if isAmount(name) {
		return amountsEqual(a, b)
	}
	return a == b
}

func classify(pv, dv string) DeviationType {
	switch {
	case pv == "" && dv != "":
		return DeviationMissingInPDF
	case dv == "" && pv != "":
		return DeviationMissingInAPI
	default:
		return DeviationMismatch
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
