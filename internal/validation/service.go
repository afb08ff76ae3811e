// Package validation validates uploaded e-Faktur documents against DJP.
package validation

import (
	"context"
	"mime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/h2non/filetype"
	"github.com/sourcegraph/conc"

	"efaktur-validator/internal/djp"
	"efaktur-validator/internal/efaktur"
	"efaktur-validator/internal/extract"
	"efaktur-validator/internal/shared/metrics"
	"efaktur-validator/internal/shared/telemetry"
)

// DocumentReader pulls text and the QR payload out of a document.
type DocumentReader interface {
	Text(ctx context.Context, data []byte, mediaType string) (string, error)
	QRPayload(ctx context.Context, data []byte, mediaType string) (string, error)
}

// Collaborator answers validation lookups for a DJP validation URL.
type Collaborator interface {
	Lookup(ctx context.Context, url string) (djp.Invoice, error)
}

// Service runs the validation pipeline. It keeps no per-request state.
type Service struct {
	Reader   DocumentReader
	DJP      Collaborator
	MaxBytes int64
}

// NewService constructs a Service.
func NewService(reader DocumentReader, collaborator Collaborator, maxBytes int64) *Service {
	return &Service{Reader: reader, DJP: collaborator, MaxBytes: maxBytes}
}

// Validate checks doc and compares it with the DJP record behind its QR code.
// On error the result is empty apart from MediaType.
func (s *Service) Validate(ctx context.Context, doc UploadedDocument) (ValidationResult, error) {
	metrics.IncValidationStarted()
	res, err := s.validate(ctx, doc)
	metrics.IncValidation(OutcomeOf(res, err))
	return res, err
}

func (s *Service) validate(ctx context.Context, doc UploadedDocument) (ValidationResult, error) {
	mediaType, err := s.DetectMediaType(doc)
	if err != nil {
		return ValidationResult{}, err
	}

	text, payload, err := s.read(ctx, doc.Content, mediaType)
	if err != nil {
		return ValidationResult{MediaType: mediaType}, err
	}

	extracted := efaktur.Parse(text)

	inv, err := s.DJP.Lookup(ctx, payload)
	if err != nil {
		return ValidationResult{MediaType: mediaType}, upstreamError(err)
	}

	res := buildResult(extracted, inv)
	res.MediaType = mediaType
	telemetry.Info("efaktur.validated", map[string]any{
		"status":      string(res.Status),
		"deviations":  len(res.ValidationResults.Deviations),
		"media_type":  mediaType,
		"nomorFaktur": extracted.NomorFaktur,
	})
	return res, nil
}

// DetectMediaType checks the declared type, emptiness, size and magic bytes
// in that order and returns the canonical media type.
func (s *Service) DetectMediaType(doc UploadedDocument) (string, error) {
	declared := canonicalMediaType(doc.ContentType)
	switch declared {
	case "", "application/octet-stream", extract.MediaPDF, extract.MediaJPEG:
	default:
		return "", errors.Wrapf(ErrUnsupportedMediaType, "declared %q", declared)
	}

	if len(doc.Content) == 0 {
		return "", ErrEmptyUpload
	}
	if s.MaxBytes > 0 && int64(len(doc.Content)) > s.MaxBytes {
		return "", errors.Wrapf(ErrFileTooLarge, "%d bytes", len(doc.Content))
	}

	kind, err := filetype.Match(doc.Content)
	if err != nil || kind == filetype.Unknown {
		return "", errors.Wrap(ErrUnsupportedMediaType, "unrecognized content")
	}
	sniffed := kind.MIME.Value
	if sniffed != extract.MediaPDF && sniffed != extract.MediaJPEG {
		return "", errors.Wrapf(ErrUnsupportedMediaType, "content is %q", sniffed)
	}
	if (declared == extract.MediaPDF || declared == extract.MediaJPEG) && declared != sniffed {
		return "", errors.Wrapf(ErrUnsupportedMediaType, "declared %q but content is %q", declared, sniffed)
	}
	return sniffed, nil
}

// read extracts text and the QR payload in parallel. A validation URL printed
// in the text stands in for an undecodable QR code.
func (s *Service) read(ctx context.Context, data []byte, mediaType string) (string, string, error) {
	var (
		text, payload  string
		textErr, qrErr error
		wg             conc.WaitGroup
	)
	wg.Go(func() { text, textErr = s.Reader.Text(ctx, data, mediaType) })
	wg.Go(func() { payload, qrErr = s.Reader.QRPayload(ctx, data, mediaType) })
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if textErr != nil {
		return "", "", errors.Mark(errors.Wrap(textErr, "extract text"), ErrUnreadableDocument)
	}
	if strings.TrimSpace(text) == "" {
		return "", "", errors.Wrap(ErrUnreadableDocument, "no text found")
	}

	payload = strings.TrimSpace(payload)
	if qrErr != nil || payload == "" {
		payload = efaktur.ValidationURL(text)
	}
	if payload == "" {
		cause := qrErr
		if cause == nil {
			cause = extract.ErrNoQRCode
		}
		return "", "", errors.Mark(errors.Wrap(cause, "find validation url"), ErrQRCodeNotFound)
	}
	return text, payload, nil
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, djp.ErrUntrustedURL):
		return errors.Mark(err, ErrUntrustedQRCode)
	case errors.Is(err, djp.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return errors.Mark(errors.Mark(err, ErrUpstreamTimeout), ErrUpstreamUnavailable)
	case errors.Is(err, djp.ErrBadResponse):
		return errors.Mark(err, ErrUpstreamValidationError)
	default:
		return errors.Mark(err, ErrUpstreamUnavailable)
	}
}

func buildResult(extracted efaktur.Fields, inv djp.Invoice) ValidationResult {
	deviations := efaktur.Compare(extracted, inv.Fields())
	res := ValidationResult{
		ValidationResults: Details{
			Deviations: deviations,
			ValidatedData: ValidatedData{
				Fields:         inv.Fields(),
				StatusApproval: strings.TrimSpace(inv.StatusApproval),
				StatusFaktur:   strings.TrimSpace(inv.StatusFaktur),
			},
			ExtractedData: extracted,
		},
	}

	if reason := inv.RejectionReason(); reason != "" {
		res.Status = StatusRejected
		res.Reason = &reason
		res.Message = reason
		return res
	}
	if len(deviations) > 0 {
		summary := efaktur.Summary(deviations)
		res.Status = StatusWithDeviations
		res.Reason = &summary
		res.Message = summary
		return res
	}
	res.Valid = true
	res.Status = StatusValidated
	res.Message = efaktur.Summary(deviations)
	return res
}

// OutcomeOf classifies a finished validation for metrics and logs.
func OutcomeOf(res ValidationResult, err error) metrics.Outcome {
	switch {
	case err != nil:
		return metrics.OutcomeFailed
	case res.Valid:
		return metrics.OutcomeValid
	case res.Status == StatusRejected:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeInvalid
	}
}

func canonicalMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
	}
	switch mt {
	case "image/jpg", "image/pjpeg":
		return extract.MediaJPEG
	default:
		return mt
	}
}
