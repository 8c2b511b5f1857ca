package dto

import "mime/multipart"

// UploadFileRequest is the multipart form of an upload.
type UploadFileRequest struct {
	File *multipart.FileHeader `form:"file"`
}

// FileIDRequest binds the :id path segment.
type FileIDRequest struct {
	ID uint64 `uri:"id" binding:"required"`
}

// ReleasePreviewRequest releases an object URL handed out by a preview.
type ReleasePreviewRequest struct {
	URL string `json:"url" binding:"required"`
}
