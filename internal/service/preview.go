package service

import (
	"strings"
	"unicode/utf8"

	"LocalVault/model"
)

// PreviewKind selects how a record is rendered.
type PreviewKind string

const (
	PreviewPDF   PreviewKind = "pdf"
	PreviewVideo PreviewKind = "video"
	PreviewAudio PreviewKind = "audio"
	PreviewText  PreviewKind = "text"
	PreviewImage PreviewKind = "image"
	PreviewNone  PreviewKind = "none"
)

// Preview describes one on-demand rendering. ObjectURL must be released by the caller.
type Preview struct {
	ID        uint64      `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Kind      PreviewKind `json:"kind"`
	IsImage   bool        `json:"is_image"`
	ObjectURL string      `json:"object_url,omitempty"`
	Text      string      `json:"text,omitempty"`
}

// PreviewKindOf maps a MIME type to a preview kind.
func PreviewKindOf(contentType string) PreviewKind {
	t := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch {
	case t == "application/pdf":
		return PreviewPDF
	case strings.HasPrefix(t, "video/"):
		return PreviewVideo
	case strings.HasPrefix(t, "audio/"):
		return PreviewAudio
	case strings.HasPrefix(t, "text/"):
		return PreviewText
	case strings.HasPrefix(t, "image/"):
		return PreviewImage
	default:
		return PreviewNone
	}
}

// IsImage reports whether the stored type is an image type.
func IsImage(rec *model.FileRecord) bool {
	return rec != nil && strings.HasPrefix(strings.ToLower(rec.Type), "image/")
}

// decodeText decodes content as UTF-8, replacing invalid sequences.
func decodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "\uFFFD")
}
