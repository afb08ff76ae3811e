// Package extract reads text and QR payloads out of uploaded e-Faktur
// documents. PDFs go through github.com/ledongthuc/pdf, images through the
// configured OCR engine, and QR codes through github.com/makiuchi-d/gozxing.
package extract

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

const (
	MediaPDF  = "application/pdf"
	MediaJPEG = "image/jpeg"
)

var (
	// ErrUnsupportedMedia is returned for media types other than PDF and JPEG.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrUnreadable means the payload could not be decoded as its media type.
	ErrUnreadable = errors.New("unreadable document")
	// ErrOCRUnavailable means an image needs OCR but no engine is configured.
	ErrOCRUnavailable = errors.New("ocr engine not available")
	// ErrNoQRCode means no QR code could be decoded from the document.
	ErrNoQRCode = errors.New("no qr code found")
)

// OCREngine recognizes text in an encoded image.
type OCREngine interface {
	Name() string
	Recognize(ctx context.Context, img []byte, languages []string) (string, error)
}

var (
	defaultOCRMu sync.RWMutex
	defaultOCR   OCREngine
)

// SetDefaultOCR registers the engine used by readers built without one.
func SetDefaultOCR(engine OCREngine) {
	defaultOCRMu.Lock()
	defer defaultOCRMu.Unlock()
	defaultOCR = engine
}

// DefaultOCR returns the registered engine, or nil.
func DefaultOCR() OCREngine {
	defaultOCRMu.RLock()
	defer defaultOCRMu.RUnlock()
	return defaultOCR
}

// Reader extracts text and QR payloads. It holds no per-document state and
// is safe for concurrent use.
type Reader struct {
	ocr       OCREngine
	languages []string
}

// NewReader builds a Reader. A nil engine falls back to DefaultOCR.
func NewReader(engine OCREngine, languages []string) *Reader {
	if engine == nil {
		engine = DefaultOCR()
	}
	if len(languages) == 0 {
		languages = []string{"ind"}
	}
	return &Reader{ocr: engine, languages: languages}
}

// OCRName reports the engine in use, or "" when images cannot be read.
func (r *Reader) OCRName() string {
	if r.ocr == nil {
		return ""
	}
	return r.ocr.Name()
}

// Text returns the document text. PDFs are read row by row; JPEGs are
// preprocessed and passed to the OCR engine.
func (r *Reader) Text(ctx context.Context, data []byte, mediaType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch mediaType {
	case MediaPDF:
		text, err := pdfText(data)
		if err != nil {
			return "", errors.Mark(errors.Wrap(err, "read pdf text"), ErrUnreadable)
		}
		return text, nil
	case MediaJPEG:
		return r.imageText(ctx, data)
	default:
		return "", errors.Wrapf(ErrUnsupportedMedia, "media type %q", mediaType)
	}
}

// QRPayload returns the text of the first QR code found in the document.
func (r *Reader) QRPayload(ctx context.Context, data []byte, mediaType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch mediaType {
	case MediaJPEG:
		img, err := decodeImage(data)
		if err != nil {
			return "", errors.Mark(errors.Wrap(err, "decode jpeg"), ErrUnreadable)
		}
		if payload, ok := decodeQR(img); ok {
			return payload, nil
		}
		return "", ErrNoQRCode
	case MediaPDF:
		for _, img := range embeddedJPEGs(data) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			if payload, ok := decodeQR(img); ok {
				return payload, nil
			}
		}
		return "", ErrNoQRCode
	default:
		return "", errors.Wrapf(ErrUnsupportedMedia, "media type %q", mediaType)
	}
}

func (r *Reader) imageText(ctx context.Context, data []byte) (string, error) {
	if r.ocr == nil {
		return "", ErrOCRUnavailable
	}
	img, err := decodeImage(data)
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "decode jpeg"), ErrUnreadable)
	}
	prepared := sharpen(contrast(grayscale(img), 1.5), 1.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return "", errors.Wrap(err, "encode ocr input")
	}
	text, err := r.ocr.Recognize(ctx, buf.Bytes(), r.languages)
	if err != nil {
		return "", errors.Wrapf(err, "ocr %s", r.ocr.Name())
	}
	return strings.TrimSpace(text), nil
}
