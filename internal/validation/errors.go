package validation

import "github.com/cockroachdb/errors"

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrEmptyUpload          = errors.New("empty upload")
	ErrFileTooLarge         = errors.New("file too large")
	ErrUnreadableDocument   = errors.New("unreadable document")
	ErrQRCodeNotFound       = errors.New("qr code not found")
	ErrUntrustedQRCode      = errors.New("untrusted qr code")
	// ErrUpstreamUnavailable covers connection failures and timeouts.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamTimeout is always also marked ErrUpstreamUnavailable.
	ErrUpstreamTimeout         = errors.New("upstream timeout")
	ErrUpstreamValidationError = errors.New("upstream validation error")
)

const (
	CodeValidation              = "validation_error"
	CodeUnsupportedMediaType    = "unsupported_media_type"
	CodeEmptyUpload             = "empty_upload"
	CodeFileTooLarge            = "file_too_large"
	CodeUnreadableDocument      = "unreadable_document"
	CodeQRCodeNotFound          = "qr_code_not_found"
	CodeUntrustedQRCode         = "untrusted_qr_code"
	CodeUpstreamUnavailable     = "upstream_unavailable"
	CodeUpstreamValidationError = "upstream_validation_error"
	CodeNotFound                = "not_found"
	CodeObjectStoreDisabled     = "object_store_not_configured"
	CodeInternal                = "internal_error"
)
