package dto

import (
	"LocalVault/internal/service"
	"LocalVault/model"
	"LocalVault/utils"
)

// FileItem is one row of the file list.
type FileItem struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	SizeMB      string `json:"size_mb"`
	IsImage     bool   `json:"is_image"`
}

// UsageResponse mirrors model.UsageSnapshot with display strings.
type UsageResponse struct {
	UsedBytes   int64   `json:"used_bytes"`
	QuotaBytes  int64   `json:"quota_bytes"`
	Percent     float64 `json:"percent"`
	UsedMB      string  `json:"used_mb"`
	TotalMB     string  `json:"total_mb"`
	PercentText string  `json:"percent_text"`
	Available   bool    `json:"available"`
}

// FileListResponse is the whole view state of the vault.
type FileListResponse struct {
	Files     []FileItem    `json:"files"`
	Usage     UsageResponse `json:"usage"`
	State     string        `json:"state"`
	Busy      bool          `json:"busy"`
	Connected bool          `json:"connected"`
}

// NewFileItem builds a list row from a record.
func NewFileItem(rec *model.FileRecord) FileItem {
	return FileItem{
		ID:          rec.ID,
		Name:        rec.Name,
		DisplayName: utils.TruncateName(rec.Name, utils.MaxDisplayName),
		Type:        rec.Type,
		Size:        rec.Size(),
		SizeMB:      utils.FormatMB(rec.Size()),
		IsImage:     service.IsImage(rec),
	}
}

// NewFileItems builds list rows in order.
func NewFileItems(records []model.FileRecord) []FileItem {
	items := make([]FileItem, 0, len(records))
	for i := range records {
		items = append(items, NewFileItem(&records[i]))
	}
	return items
}

// NewUsageResponse converts a snapshot.
func NewUsageResponse(u model.UsageSnapshot) UsageResponse {
	return UsageResponse{
		UsedBytes:   u.UsedBytes,
		QuotaBytes:  u.QuotaBytes,
		Percent:     u.Percent,
		UsedMB:      u.UsedMB(),
		TotalMB:     u.TotalMB(),
		PercentText: u.PercentText(),
		Available:   u.Available,
	}
}
