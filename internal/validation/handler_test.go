package validation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"efaktur-validator/internal/djp"
	"efaktur-validator/internal/extract"
	"efaktur-validator/internal/shared/storage/object"
	"efaktur-validator/internal/shared/storage/object/local"
	"efaktur-validator/internal/validation"
)

const (
	qrURL   = "https://efaktur.pajak.go.id/validasi/faktur/0123456780120000/0100042412345678/abc123"
	pdfBody = "%PDF-1.4\n% test document\n"
)

const invoiceText = `Kode dan Nomor Seri Faktur Pajak : 010.004-24.12345678
Nama : PT. Sumber Makmur Abadi
NPWP : 01.234.567.8-012.000
Nama : Budi Santoso NIK/Paspor : 3171234567890001
NPWP : 09.876.543.2-109.000
Dasar Pengenaan Pajak 36.364.855,00
Total PPN 4.000.134,05
JAKARTA, 12 Januari 2024
`

func approvedInvoice() djp.Invoice {
	return djp.Invoice{
		KdJenisTransaksi:   "01",
		FgPengganti:        "0",
		NomorFaktur:        "0042412345678",
		TanggalFaktur:      "12/01/2024",
		NPWPPenjual:        "012345678012000",
		NamaPenjual:        "PT SUMBER MAKMUR ABADI",
		NPWPLawanTransaksi: "098765432109000",
		NamaLawanTransaksi: "BUDI SANTOSO",
		JumlahDPP:          "36364855",
		JumlahPPN:          "4000134.05",
		JumlahPPnBM:        "0",
		StatusApproval:     "Faktur Valid, Sudah Diapprove oleh DJP",
		StatusFaktur:       "Faktur Pajak Normal",
	}
}

type stubReader struct {
	text    string
	payload string
	textErr error
	qrErr   error
}

func (s stubReader) Text(context.Context, []byte, string) (string, error) {
	return s.text, s.textErr
}

func (s stubReader) QRPayload(context.Context, []byte, string) (string, error) {
	return s.payload, s.qrErr
}

type stubDJP struct {
	calls  atomic.Int32
	gotURL atomic.Value
	inv    djp.Invoice
	err    error
}

func (s *stubDJP) Lookup(_ context.Context, url string) (djp.Invoice, error) {
	s.calls.Add(1)
	s.gotURL.Store(url)
	return s.inv, s.err
}

type fixture struct {
	router *gin.Engine
	djp    *stubDJP
}

func newFixture(t *testing.T, reader validation.DocumentReader, collaborator *stubDJP, objects object.Source, maxBytes int64) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := validation.NewService(reader, collaborator, maxBytes)
	r := gin.New()
	validation.NewHandler(svc, objects).RegisterRoutes(r.Group("/api/v1"))
	return fixture{router: r, djp: collaborator}
}

func defaultFixture(t *testing.T) fixture {
	return newFixture(t, stubReader{text: invoiceText, payload: qrURL}, &stubDJP{inv: approvedInvoice()}, nil, 1<<20)
}

func uploadRequest(t *testing.T, fileName, contentType string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate-efaktur", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeResult(t *testing.T, resp *httptest.ResponseRecorder) validation.ValidationResult {
	t.Helper()
	var res validation.ValidationResult
	if err := json.Unmarshal(resp.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v body=%s", err, resp.Body.String())
	}
	return res
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v body=%s", err, resp.Body.String())
	}
	if body.Error.Message == "" {
		t.Fatalf("expected error message, body=%s", resp.Body.String())
	}
	return body.Error.Code
}

func TestValidateUploadValid(t *testing.T) {
	f := defaultFixture(t)
	resp := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", []byte(pdfBody)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	res := decodeResult(t, resp)
	if !res.Valid || res.Reason != nil {
		t.Fatalf("expected valid result without reason, got %+v", res)
	}
	if res.Status != validation.StatusValidated || res.Message != "Validation complete" {
		t.Fatalf("unexpected status %q message %q", res.Status, res.Message)
	}
	if len(res.ValidationResults.Deviations) != 0 {
		t.Fatalf("expected no deviations, got %+v", res.ValidationResults.Deviations)
	}
	raw := resp.Body.String()
	if !strings.Contains(raw, `"reason":null`) || !strings.Contains(raw, `"deviations":[]`) {
		t.Fatalf("expected null reason and empty deviations, body=%s", raw)
	}
	if got := res.ValidationResults.ExtractedData.NomorFaktur; got != "0100042412345678" {
		t.Fatalf("unexpected extracted nomorFaktur %q", got)
	}
	if res.ValidationResults.ValidatedData.StatusApproval == "" {
		t.Fatal("expected statusApproval in validated_data")
	}
	if got := f.djp.gotURL.Load(); got != qrURL {
		t.Fatalf("expected lookup of QR url, got %v", got)
	}
}

func TestValidateUploadWithDeviations(t *testing.T) {
	inv := approvedInvoice()
	inv.JumlahDPP = "36000000"
	f := newFixture(t, stubReader{text: invoiceText, payload: qrURL}, &stubDJP{inv: inv}, nil, 1<<20)

	resp := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", []byte(pdfBody)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	res := decodeResult(t, resp)
	if res.Valid || res.Reason == nil || *res.Reason != "Found 1 deviation(s)" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Status != validation.StatusWithDeviations {
		t.Fatalf("unexpected status %q", res.Status)
	}
	dev := res.ValidationResults.Deviations[0]
	if dev.Field != "jumlahDpp" || dev.DeviationType != "mismatch" {
		t.Fatalf("unexpected deviation %+v", dev)
	}
}

func TestValidateUploadRejectedByDJP(t *testing.T) {
	inv := approvedInvoice()
	inv.StatusApproval = "Faktur tidak Valid, Tidak ditemukan data di DJP"
	f := newFixture(t, stubReader{text: invoiceText, payload: qrURL}, &stubDJP{inv: inv}, nil, 1<<20)

	resp := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", []byte(pdfBody)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	res := decodeResult(t, resp)
	if res.Valid || res.Reason == nil || *res.Reason != inv.StatusApproval {
		t.Fatalf("expected DJP reason, got %+v", res)
	}
	if res.Status != validation.StatusRejected {
		t.Fatalf("unexpected status %q", res.Status)
	}
}

func TestValidateUploadUnsupportedMediaNeverCallsDJP(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	cases := []struct {
		name        string
		contentType string
		content     []byte
	}{
		{"text declared", "text/plain", []byte("hello")},
		{"empty text declared", "text/plain", nil},
		{"png content", "application/octet-stream", png},
		{"pdf declared jpeg content", "application/pdf", []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF")},
		{"unknown content", "", []byte("just some bytes")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := defaultFixture(t)
			resp := serve(f.router, uploadRequest(t, "file.bin", tc.contentType, tc.content))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", resp.Code, resp.Body.String())
			}
			if code := errorCode(t, resp); code != validation.CodeUnsupportedMediaType {
				t.Fatalf("unexpected code %q", code)
			}
			if f.djp.calls.Load() != 0 {
				t.Fatal("collaborator must not be called")
			}
		})
	}
}

func TestValidateUploadAcceptsJPGAlias(t *testing.T) {
	f := defaultFixture(t)
	resp := serve(f.router, uploadRequest(t, "faktur.jpg", "image/jpg", []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00")))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestValidateUploadEmpty(t *testing.T) {
	f := defaultFixture(t)
	resp := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != validation.CodeEmptyUpload {
		t.Fatalf("unexpected code %q", code)
	}
	if f.djp.calls.Load() != 0 {
		t.Fatal("collaborator must not be called")
	}
}

func TestValidateUploadMissingFile(t *testing.T) {
	f := defaultFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate-efaktur", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(f.router, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != validation.CodeValidation {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestValidateUploadTooLarge(t *testing.T) {
	f := newFixture(t, stubReader{text: invoiceText, payload: qrURL}, &stubDJP{inv: approvedInvoice()}, nil, 16)
	resp := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", []byte(pdfBody+strings.Repeat("x", 64))))
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != validation.CodeFileTooLarge {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestValidateUploadUpstreamFailures(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"timeout", errors.Mark(errors.Mark(errors.New("deadline"), djp.ErrTimeout), djp.ErrUnavailable), http.StatusGatewayTimeout, validation.CodeUpstreamUnavailable},
		{"connection", errors.Mark(errors.New("connection refused"), djp.ErrUnavailable), http.StatusBadGateway, validation.CodeUpstreamUnavailable},
		{"bad response", errors.Mark(errors.New("status 500"), djp.ErrBadResponse), http.StatusBadGateway, validation.CodeUpstreamValidationError},
		{"untrusted", errors.Mark(errors.New("host"), djp.ErrUntrustedURL), http.StatusUnprocessableEntity, validation.CodeUntrustedQRCode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, stubReader{text: invoiceText, payload: qrURL}, &stubDJP{err: tc.err}, nil, 1<<20)
			resp := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", []byte(pdfBody)))
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, resp.Code, resp.Body.String())
			}
			if code := errorCode(t, resp); code != tc.code {
				t.Fatalf("unexpected code %q", code)
			}
		})
	}
}

func TestValidateUploadDocumentProblems(t *testing.T) {
	cases := []struct {
		name   string
		reader stubReader
		code   string
	}{
		{"no qr and no url", stubReader{text: invoiceText, qrErr: extract.ErrNoQRCode}, validation.CodeQRCodeNotFound},
		{"text unreadable", stubReader{textErr: extract.ErrOCRUnavailable, payload: qrURL}, validation.CodeUnreadableDocument},
		{"blank text", stubReader{text: "  \n", payload: qrURL}, validation.CodeUnreadableDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.reader, &stubDJP{inv: approvedInvoice()}, nil, 1<<20)
			resp := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", []byte(pdfBody)))
			if resp.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d body=%s", resp.Code, resp.Body.String())
			}
			if code := errorCode(t, resp); code != tc.code {
				t.Fatalf("unexpected code %q", code)
			}
			if f.djp.calls.Load() != 0 {
				t.Fatal("collaborator must not be called")
			}
		})
	}
}

func TestValidateUploadFallsBackToPrintedURL(t *testing.T) {
	reader := stubReader{text: invoiceText + qrURL + "\n", qrErr: extract.ErrNoQRCode}
	f := newFixture(t, reader, &stubDJP{inv: approvedInvoice()}, nil, 1<<20)

	resp := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", []byte(pdfBody)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	if got := f.djp.gotURL.Load(); got != qrURL {
		t.Fatalf("expected printed url lookup, got %v", got)
	}
}

func TestValidateUploadIsIdempotent(t *testing.T) {
	f := defaultFixture(t)
	first := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", []byte(pdfBody)))
	second := serve(f.router, uploadRequest(t, "faktur.pdf", "application/pdf", []byte(pdfBody)))
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical results:\n%s\n%s", first.Body.String(), second.Body.String())
	}
}

func TestValidateFromObject(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "inbox"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "inbox", "faktur.pdf"), []byte(pdfBody), 0o644); err != nil {
		t.Fatalf("write object: %v", err)
	}
	f := newFixture(t, stubReader{text: invoiceText, payload: qrURL}, &stubDJP{inv: approvedInvoice()}, local.New(dir), 1<<20)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/validate-efaktur/from-s3", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return serve(f.router, req)
	}

	resp := post(`{"s3Key":"inbox/faktur.pdf"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	if res := decodeResult(t, resp); !res.Valid {
		t.Fatalf("expected valid result, got %+v", res)
	}

	resp = post(`{"s3Key":"inbox/missing.pdf"}`)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	resp = post(`{"s3Key":"../etc/passwd"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = post(`{"s3Key":"/etc/passwd"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("absolute key: expected 400, got %d body=%s", resp.Code, resp.Body.String())
	}
	if code := errorCode(t, resp); code != validation.CodeValidation {
		t.Fatalf("absolute key: unexpected code %q", code)
	}

	resp = post(`{}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestValidateFromObjectNotConfigured(t *testing.T) {
	f := defaultFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate-efaktur/from-s3", strings.NewReader(`{"s3Key":"a.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(f.router, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
