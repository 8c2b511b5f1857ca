package model

import (
	"fmt"
	"math"
)

// UsageSnapshot is a derived view of storage usage; it is never persisted.
type UsageSnapshot struct {
	UsedBytes  int64   `json:"used_bytes"`
	QuotaBytes int64   `json:"quota_bytes"`
	Percent    float64 `json:"percent"`
	Available  bool    `json:"available"`
}

// NewUsageSnapshot derives a snapshot with the percentage rounded to two decimals.
func NewUsageSnapshot(used, quota int64) UsageSnapshot {
	snap := UsageSnapshot{UsedBytes: used, QuotaBytes: quota, Available: true}
	if quota > 0 {
		snap.Percent = math.Round(float64(used)/float64(quota)*100*100) / 100
	}
	return snap
}

// UnavailableUsage is reported when the platform cannot estimate usage.
func UnavailableUsage() UsageSnapshot {
	return UsageSnapshot{}
}

// UsedMB formats used bytes as megabytes with two decimals.
func (u UsageSnapshot) UsedMB() string {
	return fmt.Sprintf("%.2f", float64(u.UsedBytes)/1024/1024)
}

// TotalMB formats the quota as megabytes with two decimals.
func (u UsageSnapshot) TotalMB() string {
	return fmt.Sprintf("%.2f", float64(u.QuotaBytes)/1024/1024)
}

// PercentText formats the percentage with two decimals.
func (u UsageSnapshot) PercentText() string {
	return fmt.Sprintf("%.2f", u.Percent)
}
