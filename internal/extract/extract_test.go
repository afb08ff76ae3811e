package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"runtime"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQRURL = "https://efaktur.pajak.go.id/validasi/faktur/0123456780120000/0100042412345678/abc123"

type stubOCR struct {
	text      string
	gotImage  []byte
	gotLangs  []string
	callCount int
}

func (s *stubOCR) Name() string { return "stub" }

func (s *stubOCR) Recognize(_ context.Context, img []byte, languages []string) (string, error) {
	s.callCount++
	s.gotImage = img
	s.gotLangs = languages
	return s.text, nil
}

func qrJPEG(t *testing.T, content string, size int) []byte {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	require.NoError(t, err)

	canvas := image.NewRGBA(matrix.Bounds())
	draw.Draw(canvas, canvas.Bounds(), matrix, image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func blankJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// oversizedJPEG encodes a tiny image, then rewrites its SOF0 header to
// declare 60000x60000 pixels.
func oversizedJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), &jpeg.Options{Quality: 100}))
	data := buf.Bytes()

	sof := bytes.Index(data, []byte{0xFF, 0xC0})
	require.Greater(t, sof, 0, "SOF0 marker")
	// marker(2) length(2) precision(1) height(2) width(2)
	copy(data[sof+5:sof+9], []byte{0xEA, 0x60, 0xEA, 0x60})

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 60000, cfg.Width)
	return data
}

func allocatedDuring(fn func()) uint64 {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	fn()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

// minimalPDF builds a single-page PDF that draws each line with Helvetica.
func minimalPDF(lines ...string) []byte {
	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
	for _, l := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", l)
	}
	content.WriteString("ET\n")

	widths := strings.TrimSpace(strings.Repeat("600 ", 95))
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestQRPayloadFromJPEG(t *testing.T) {
	r := NewReader(nil, nil)
	got, err := r.QRPayload(context.Background(), qrJPEG(t, testQRURL, 300), MediaJPEG)
	require.NoError(t, err)
	assert.Equal(t, testQRURL, got)
}

func TestQRPayloadNotFound(t *testing.T) {
	r := NewReader(nil, nil)
	_, err := r.QRPayload(context.Background(), blankJPEG(t), MediaJPEG)
	assert.True(t, errors.Is(err, ErrNoQRCode))
}

func TestQRPayloadFromPDFEmbeddedImage(t *testing.T) {
	var pdf bytes.Buffer
	pdf.WriteString("%PDF-1.4\n1 0 obj\n<< /Type /XObject /Subtype /Image /Filter /DCTDecode >>\nstream\n")
	pdf.Write(qrJPEG(t, testQRURL, 300))
	pdf.WriteString("\nendstream\nendobj\n%%EOF\n")

	r := NewReader(nil, nil)
	got, err := r.QRPayload(context.Background(), pdf.Bytes(), MediaPDF)
	require.NoError(t, err)
	assert.Equal(t, testQRURL, got)
}

func TestQRPayloadUnreadableJPEG(t *testing.T) {
	r := NewReader(nil, nil)
	_, err := r.QRPayload(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0x00}, MediaJPEG)
	assert.True(t, errors.Is(err, ErrUnreadable))
}

func TestOversizedJPEGIsRejectedBeforeDecoding(t *testing.T) {
	data := oversizedJPEG(t)
	ocr := &stubOCR{text: "never"}
	r := NewReader(ocr, nil)

	var qrErr, textErr error
	allocated := allocatedDuring(func() {
		_, qrErr = r.QRPayload(context.Background(), data, MediaJPEG)
		_, textErr = r.Text(context.Background(), data, MediaJPEG)
	})

	assert.True(t, errors.Is(qrErr, ErrUnreadable), "qr: %v", qrErr)
	assert.True(t, errors.Is(textErr, ErrUnreadable), "text: %v", textErr)
	assert.Equal(t, 0, ocr.callCount)
	assert.Less(t, allocated, uint64(64<<20))
}

func TestOversizedEmbeddedJPEGIsSkipped(t *testing.T) {
	var pdf bytes.Buffer
	pdf.WriteString("%PDF-1.4\n1 0 obj\n<< /Type /XObject /Subtype /Image /Filter /DCTDecode >>\nstream\n")
	pdf.Write(oversizedJPEG(t))
	pdf.WriteString("\nendstream\nendobj\n%%EOF\n")

	r := NewReader(nil, nil)
	var err error
	allocated := allocatedDuring(func() {
		_, err = r.QRPayload(context.Background(), pdf.Bytes(), MediaPDF)
	})
	assert.True(t, errors.Is(err, ErrNoQRCode), "err: %v", err)
	assert.Less(t, allocated, uint64(64<<20))
}

func TestTextFromPDF(t *testing.T) {
	data := minimalPDF("Nama : PT ABC", "NPWP : 01.234.567.8-012.000")

	r := NewReader(nil, nil)
	text, err := r.Text(context.Background(), data, MediaPDF)
	require.NoError(t, err)
	assert.Contains(t, text, "Nama : PT ABC")
	assert.Contains(t, text, "01.234.567.8-012.000")
}

func TestTextFromGarbagePDF(t *testing.T) {
	r := NewReader(nil, nil)
	_, err := r.Text(context.Background(), []byte("%PDF-1.4 not really"), MediaPDF)
	assert.True(t, errors.Is(err, ErrUnreadable))
}

func TestTextFromJPEGUsesOCR(t *testing.T) {
	ocr := &stubOCR{text: "  Faktur Pajak \n"}
	r := NewReader(ocr, []string{"ind", "eng"})

	text, err := r.Text(context.Background(), qrJPEG(t, testQRURL, 120), MediaJPEG)
	require.NoError(t, err)
	assert.Equal(t, "Faktur Pajak", text)
	assert.Equal(t, 1, ocr.callCount)
	assert.Equal(t, []string{"ind", "eng"}, ocr.gotLangs)
	assert.True(t, bytes.HasPrefix(ocr.gotImage, []byte("\x89PNG")))
}

func TestTextFromJPEGWithoutOCR(t *testing.T) {
	SetDefaultOCR(nil)
	r := NewReader(nil, nil)
	assert.Empty(t, r.OCRName())

	_, err := r.Text(context.Background(), blankJPEG(t), MediaJPEG)
	assert.True(t, errors.Is(err, ErrOCRUnavailable))
}

func TestDefaultOCRRegistration(t *testing.T) {
	ocr := &stubOCR{}
	SetDefaultOCR(ocr)
	t.Cleanup(func() { SetDefaultOCR(nil) })

	assert.Equal(t, "stub", NewReader(nil, nil).OCRName())
}

func TestUnsupportedMedia(t *testing.T) {
	r := NewReader(nil, nil)
	_, err := r.Text(context.Background(), []byte("x"), "text/plain")
	assert.True(t, errors.Is(err, ErrUnsupportedMedia))
	_, err = r.QRPayload(context.Background(), []byte("x"), "image/png")
	assert.True(t, errors.Is(err, ErrUnsupportedMedia))
}

func TestContrastAndSharpenKeepBounds(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(100 + x*5)})
		}
	}
	out := sharpen(contrast(src, 2), 2)
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Less(t, out.GrayAt(0, 0).Y, src.GrayAt(0, 0).Y)
	assert.Greater(t, out.GrayAt(9, 0).Y, src.GrayAt(9, 0).Y)
}
