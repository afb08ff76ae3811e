package validation

import (
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"efaktur-validator/internal/shared/server/respond"
	"efaktur-validator/internal/shared/storage/object"
	"efaktur-validator/internal/shared/telemetry"
	"efaktur-validator/internal/shared/util"
)

// multipartOverhead is allowed on top of the file limit for form boundaries
// and headers.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc     *Service
	Objects object.Source
}

// NewHandler constructs a Handler. objects may be nil when no object store is configured.
func NewHandler(svc *Service, objects object.Source) *Handler {
	return &Handler{Svc: svc, Objects: objects}
}

// RegisterRoutes attaches validation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/validate-efaktur", h.validateUpload)
	rg.POST("/validate-efaktur/from-s3", h.validateFromObject)
}

type uploadForm struct {
	File *multipart.FileHeader `form:"file" binding:"required"`
}

type objectRequest struct {
	S3Key    string `json:"s3Key" binding:"required"`
	FileName string `json:"fileName"`
}

// validateUpload godoc
// @Summary Validate an e-Faktur upload
// @Description Reads the invoice and its QR code, looks it up at DJP and compares every field.
// @Tags Validation
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "e-Faktur PDF or JPEG"
// @Success 200 {object} ValidationResult
// @Failure 400 {object} respond.ErrorResponse
// @Failure 413 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Failure 504 {object} respond.ErrorResponse
// @Router /validate-efaktur [post]
func (h *Handler) validateUpload(c *gin.Context) {
	limit := h.Svc.MaxBytes
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}

	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(c, errors.Wrap(ErrFileTooLarge, "request body"))
			return
		}
		respond.Error(c, http.StatusBadRequest, CodeValidation, "file is required", nil)
		return
	}
	if limit > 0 && form.File.Size > limit {
		h.writeError(c, ErrFileTooLarge)
		return
	}

	file, err := form.File.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	content, err := readLimited(file, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.run(c, UploadedDocument{
		FileName:    form.File.Filename,
		ContentType: form.File.Header.Get("Content-Type"),
		Content:     content,
	})
}

// validateFromObject godoc
// @Summary Validate an e-Faktur stored in object storage
// @Tags Validation
// @Accept json
// @Produce json
// @Param request body objectRequest true "Object key"
// @Success 200 {object} ValidationResult
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /validate-efaktur/from-s3 [post]
func (h *Handler) validateFromObject(c *gin.Context) {
	if h.Objects == nil {
		respond.Error(c, http.StatusServiceUnavailable, CodeObjectStoreDisabled, "object storage is not configured", nil)
		return
	}

	var req objectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "s3Key is required", nil)
		return
	}
	req.S3Key = strings.TrimSpace(req.S3Key)
	if req.S3Key == "" || strings.Contains(req.S3Key, "..") {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "invalid s3Key", nil)
		return
	}

	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = path.Base(req.S3Key)
	}
	fileName, err := util.SanitizeFileName(fileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "invalid fileName", nil)
		return
	}

	obj, err := h.Objects.Open(c.Request.Context(), req.S3Key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, CodeNotFound, "object not found", nil)
			return
		}
		if errors.Is(err, object.ErrInvalidKey) {
			respond.Error(c, http.StatusBadRequest, CodeValidation, "invalid s3Key", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, CodeInternal, "failed to read object", nil)
		return
	}
	defer obj.Body.Close()

	if h.Svc.MaxBytes > 0 && obj.SizeBytes > h.Svc.MaxBytes {
		h.writeError(c, ErrFileTooLarge)
		return
	}
	content, err := readLimited(obj.Body, h.Svc.MaxBytes)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.run(c, UploadedDocument{
		FileName:    fileName,
		ContentType: obj.ContentType,
		Content:     content,
	})
}

func (h *Handler) run(c *gin.Context, doc UploadedDocument) {
	if len(doc.Content) > 0 {
		c.Set("documentSha256", util.HashContent(doc.Content))
	}
	res, err := h.Svc.Validate(c.Request.Context(), doc)
	if res.MediaType != "" {
		c.Set("mediaType", res.MediaType)
	}
	c.Set("validationOutcome", string(OutcomeOf(res, err)))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, res)
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	{ErrUnsupportedMediaType, http.StatusBadRequest, CodeUnsupportedMediaType, "file must be a PDF or JPEG"},
	{ErrEmptyUpload, http.StatusBadRequest, CodeEmptyUpload, "file is empty"},
	{ErrFileTooLarge, http.StatusRequestEntityTooLarge, CodeFileTooLarge, "file exceeds the upload limit"},
	{ErrQRCodeNotFound, http.StatusUnprocessableEntity, CodeQRCodeNotFound, "no e-Faktur QR code found in the document"},
	{ErrUnreadableDocument, http.StatusUnprocessableEntity, CodeUnreadableDocument, "document text could not be read"},
	{ErrUntrustedQRCode, http.StatusUnprocessableEntity, CodeUntrustedQRCode, "QR code does not point to DJP"},
	{ErrUpstreamTimeout, http.StatusGatewayTimeout, CodeUpstreamUnavailable, "DJP validation service timed out"},
	{ErrUpstreamUnavailable, http.StatusBadGateway, CodeUpstreamUnavailable, "DJP validation service is unavailable"},
	{ErrUpstreamValidationError, http.StatusBadGateway, CodeUpstreamValidationError, "DJP returned an invalid validation response"},
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, CodeInternal, "validation failed"
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			status, code, message = m.status, m.code, m.message
			break
		}
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("validation.failed", map[string]any{
			"error":      err.Error(),
			"code":       code,
			"request_id": c.GetString("requestId"),
		})
	}
	respond.Error(c, status, code, message, nil)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
