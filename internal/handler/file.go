package handler

import (
	"LocalVault/internal/blob"
	"LocalVault/internal/dto"
	"LocalVault/internal/notify"
	"LocalVault/internal/service"
	"LocalVault/internal/storage"
	"LocalVault/utils"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// FileHandler exposes the registry over HTTP.
type FileHandler struct {
	registry *service.Registry
	toaster  *notify.Toaster
}

// NewFileHandler creates the handler set.
func NewFileHandler(registry *service.Registry, toaster *notify.Toaster) *FileHandler {
	return &FileHandler{registry: registry, toaster: toaster}
}

// ListFiles returns the file list with usage and session state.
func (h *FileHandler) ListFiles(c *gin.Context) {
	utils.Success(c, dto.FileListResponse{
		Files:     dto.NewFileItems(h.registry.Files()),
		Usage:     dto.NewUsageResponse(h.registry.Usage()),
		State:     h.registry.State().String(),
		Busy:      h.registry.Busy(),
		Connected: h.registry.Connected(),
	})
}

// UploadFile stores the multipart field "file".
func (h *FileHandler) UploadFile(c *gin.Context) {
	limit := h.registry.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	var req dto.UploadFileRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, http.ErrMissingFile) {
		h.rejectUpload(c, bindError(err))
		return
	}

	var input *service.UploadInput
	if req.File != nil {
		var err error
		input, err = readUpload(&req, limit)
		if err != nil {
			h.rejectUpload(c, bindError(err))
			return
		}
	}

	rec, err := h.registry.Upload(c.Request.Context(), input)
	if err != nil {
		failAction(c, err)
		return
	}
	utils.Success(c, dto.NewFileItem(rec))
}

// multipartOverhead is the room left for boundaries and part headers above the file limit.
const multipartOverhead = 1 << 20

func (h *FileHandler) rejectUpload(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, service.ErrFileTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	utils.FailWithStatus(c, status, h.registry.RejectUpload(c.Request.Context(), err), nil)
}

// bindError marks a body cut off by MaxBytesReader as too large.
func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: request body over %d bytes", service.ErrFileTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("read upload: %w", err)
}

// readUpload reads at most limit+1 bytes so an oversize file is still
// rejected by size without buffering all of it.
func readUpload(req *dto.UploadFileRequest, limit int64) (*service.UploadInput, error) {
	f, err := req.File.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &service.UploadInput{
		Name:    req.File.Filename,
		Type:    req.File.Header.Get("Content-Type"),
		Content: content,
	}, nil
}

// DownloadFile streams a record as an attachment.
func (h *FileHandler) DownloadFile(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	rec, _ := h.registry.Lookup(id)

	err := h.registry.Download(c.Request.Context(), rec, service.SaverFunc(
		func(_ context.Context, name string, obj *blob.Object) error {
			safeName := utils.SanitizeHeaderFilename(name)
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", safeName))
			c.Header("Content-Type", obj.Type)
			c.Header("Content-Length", strconv.FormatInt(obj.Size(), 10))
			c.Header("X-Object-URL", obj.URL)
			c.Status(http.StatusOK)
			_, err := obj.WriteTo(c.Writer)
			return err
		}))
	if err != nil && !c.Writer.Written() {
		failAction(c, err)
	}
}

// PreviewFile returns a preview descriptor for a record.
func (h *FileHandler) PreviewFile(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	rec, _ := h.registry.Lookup(id)
	preview, err := h.registry.PreviewDescriptor(rec)
	if err != nil {
		failAction(c, err)
		return
	}
	utils.Success(c, preview)
}

// ReleasePreview revokes a preview object URL.
func (h *FileHandler) ReleasePreview(c *gin.Context) {
	var req dto.ReleasePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, gin.H{"released": h.registry.ReleasePreview(req.URL)})
}

// DeleteFile removes one record.
func (h *FileHandler) DeleteFile(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteFile(c.Request.Context(), id); err != nil {
		failAction(c, err)
		return
	}
	utils.Success(c, gin.H{"id": id})
}

// ClearStorage drops the whole database.
func (h *FileHandler) ClearStorage(c *gin.Context) {
	if err := h.registry.ClearAll(c.Request.Context()); err != nil {
		failAction(c, err)
		return
	}
	utils.Success(c, nil)
}

// GetUsage recomputes the storage estimate.
func (h *FileHandler) GetUsage(c *gin.Context) {
	utils.Success(c, dto.NewUsageResponse(h.registry.ComputeUsage(c.Request.Context())))
}

// Notifications drains pending toasts; ?peek=1 leaves them buffered.
func (h *FileHandler) Notifications(c *gin.Context) {
	if c.Query("peek") == "1" {
		utils.Success(c, h.toaster.Recent())
		return
	}
	utils.Success(c, h.toaster.Drain())
}

// ReloadSession reopens the storage like a page reload.
func (h *FileHandler) ReloadSession(c *gin.Context) {
	if err := h.registry.Reload(c.Request.Context()); err != nil {
		failAction(c, err)
		return
	}
	utils.Success(c, gin.H{"state": h.registry.State().String()})
}

// ServeBlob serves a live object URL inline.
func (h *FileHandler) ServeBlob(c *gin.Context) {
	obj, err := h.registry.Blobs().ResolveToken(c.Param("token"))
	if err != nil {
		utils.FailWithStatus(c, http.StatusNotFound, err, nil)
		return
	}
	c.Header("Content-Disposition", "inline")
	c.DataFromReader(http.StatusOK, obj.Size(), obj.Type, obj.Reader(), nil)
}

func bindID(c *gin.Context) (uint64, bool) {
	var req dto.FileIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		utils.Fail(c, fmt.Errorf("invalid file id: %w", err))
		return 0, false
	}
	return req.ID, true
}

func failAction(c *gin.Context, err error) {
	utils.FailWithStatus(c, statusFor(err), err, nil)
}

// statusFor maps registry and gateway errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrRecordMissing):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoConnection),
		errors.Is(err, service.ErrNotReady),
		errors.Is(err, service.ErrAlreadyInitialized),
		errors.Is(err, storage.ErrBlocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
