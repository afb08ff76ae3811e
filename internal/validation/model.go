package validation

import (
	"efaktur-validator/internal/efaktur"
)

// Status summarizes the outcome of a validation.
type Status string

const (
	StatusValidated      Status = "validated_successfully"
	StatusWithDeviations Status = "validated_with_deviations"
	StatusRejected       Status = "rejected_by_djp"
)

// UploadedDocument is a submitted invoice file. It lives for one request.
type UploadedDocument struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ValidationResult is the response to a validation request.
//
// Valid implies Reason is nil and there are no deviations; an invalid result
// always carries a non-empty Reason.
type ValidationResult struct {
	Valid             bool    `json:"valid"`
	Reason            *string `json:"reason"`
	Status            Status  `json:"status"`
	Message           string  `json:"message"`
	ValidationResults Details `json:"validation_results"`

	// MediaType is the sniffed type of the document. It is set whenever
	// detection succeeded, including on failed validations.
	MediaType string `json:"-"`
}

// Details holds the field-by-field comparison.
type Details struct {
	Deviations    []efaktur.Deviation `json:"deviations"`
	ValidatedData ValidatedData       `json:"validated_data"`
	ExtractedData efaktur.Fields      `json:"extracted_data"`
}

// ValidatedData is the invoice as DJP reports it.
type ValidatedData struct {
	efaktur.Fields
	StatusApproval string `json:"statusApproval"`
	StatusFaktur   string `json:"statusFaktur,omitempty"`
}
