package utils

import (
	"fmt"
	"strings"
)

// MaxDisplayName is the rune length names are truncated to for display.
const MaxDisplayName = 100

// TruncateName shortens name to limit runes for display, keeping the extension
// after an ellipsis. The stored name is never changed.
func TruncateName(name string, limit int) string {
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	cut := string(runes[:max(limit-3, 0)]) + "..."
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return cut
	}
	ext := []rune(name[dot+1:])
	keep := limit - len(ext) - 5
	// 扩展名过长时不再保留扩展名
	if keep <= 0 {
		return cut
	}
	return string(runes[:keep]) + "..." + string(ext)
}

// FormatMB renders bytes as megabytes with two decimals.
func FormatMB(bytes int64) string {
	return fmt.Sprintf("%.2f", float64(bytes)/1024/1024)
}
