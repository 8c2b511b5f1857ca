package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

func TestTruncateName(t *testing.T) {
	short := "report.pdf"
	if got := TruncateName(short, MaxDisplayName); got != short {
		t.Fatalf("short name changed: %s", got)
	}

	long := strings.Repeat("a", 120) + ".pdf"
	got := TruncateName(long, MaxDisplayName)
	want := strings.Repeat("a", 100-3-5) + "...pdf"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	wide := strings.Repeat("文", 30) + ".txt"
	if got := TruncateName(wide, 20); got != strings.Repeat("文", 12)+"...txt" {
		t.Fatalf("rune truncation failed: %s", got)
	}
}

func TestFormatMB(t *testing.T) {
	if got := FormatMB(1536 * 1024); got != "1.50" {
		t.Fatalf("unexpected %s", got)
	}
	if got := FormatMB(0); got != "0.00" {
		t.Fatalf("unexpected %s", got)
	}
}

func TestSanitizeHeaderFilename(t *testing.T) {
	if got := SanitizeHeaderFilename("  a\"b\r\n.txt "); got != "ab.txt" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeHeaderFilename("  "); got != "download" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeHeaderFilename("a\tb\x00\x7f\\c\u0085.txt"); got != "abc.txt" {
		t.Fatalf("control characters kept: %q", got)
	}
	if got := SanitizeHeaderFilename("\r\n\""); got != "download" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	FailWithStatus(c, http.StatusConflict, errors.New("blocked"), gin.H{"op": "clear"})

	if w.Code != http.StatusConflict {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var body struct {
		Code int               `json:"code"`
		Msg  string            `json:"msg"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != -1 || body.Msg != "blocked" || body.Data["op"] != "clear" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/upload", RateLimitMiddleware(0.001, 1), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/upload", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/upload", nil))

	if first.Code != http.StatusNoContent || second.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %d %d", first.Code, second.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/api/files", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/files", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected preflight %d %v", w.Code, w.Header())
	}
	if exposed := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(exposed, "Content-Disposition") || !strings.Contains(exposed, "X-Object-URL") {
		t.Fatalf("download headers not exposed: %s", exposed)
	}
}

func TestTruncateNameLongExtension(t *testing.T) {
	name := "a." + strings.Repeat("x", 150)
	got := TruncateName(name, 100)
	if n := utf8.RuneCountInString(got); n != 100 {
		t.Fatalf("expected 100 runes, got %d: %s", n, got)
	}
	if !strings.HasSuffix(got, "...") || !strings.HasPrefix(got, "a.xx") {
		t.Fatalf("unexpected %s", got)
	}
}

func TestTruncateNameWithoutExtension(t *testing.T) {
	if got := TruncateName(strings.Repeat("x", 12), 10); got != "xxxxxxx..." {
		t.Fatalf("unexpected %s", got)
	}
}
