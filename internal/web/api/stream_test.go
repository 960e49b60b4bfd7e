package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/hawk/internal/conf"
	"github.com/gowvp/hawk/internal/core/record"
)

func newStreamRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	core := record.NewCore(nil, record.WithConfig(&conf.ServerRecording{StorageDir: dir}))
	bc := &conf.Bootstrap{Cameras: conf.Cameras{{ID: "cam1", Name: "客厅"}}}

	r := gin.New()
	RegisterStream(r, NewStreamAPI(core, bc))
	return r, dir
}

func doRequest(r *gin.Engine, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPlayStreamNotFound(t *testing.T) {
	r, _ := newStreamRouter(t)
	const session = "d6a09a92-14da-4e54-a078-017a4d6dbce3"

	w := doRequest(r, http.MethodGet, "/stream/play/"+session+"/cam.m3u8", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPlayStreamContentTypes(t *testing.T) {
	r, dir := newStreamRouter(t)
	const session = "d6a09a92-14da-4e54-a078-017a4d6dbce3"

	folder := filepath.Join(dir, "stream", session)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "cam.m3u8"), []byte("#EXTM3U\n#EXT-X-VERSION:3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "segment000.ts"), []byte("fakets"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := doRequest(r, http.MethodGet, "/stream/play/"+session+"/cam.m3u8", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("manifest status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/vnd.apple.mpegurl" {
		t.Errorf("manifest Content-Type = %s", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %s, want no-cache", got)
	}

	w = doRequest(r, http.MethodGet, "/stream/play/"+session+"/segment000.ts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("segment status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "video/MP2T" {
		t.Errorf("segment Content-Type = %s", got)
	}
}

func TestPlayStreamGzipManifestOnly(t *testing.T) {
	r, dir := newStreamRouter(t)
	const session = "d6a09a92-14da-4e54-a078-017a4d6dbce3"

	folder := filepath.Join(dir, "stream", session)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "cam.m3u8"), []byte("#EXTM3U\n#EXT-X-VERSION:3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "segment000.ts"), []byte("fakets"), 0o644); err != nil {
		t.Fatal(err)
	}
	gz := map[string]string{"Accept-Encoding": "gzip"}

	w := doRequest(r, http.MethodGet, "/stream/play/"+session+"/cam.m3u8", gz)
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("manifest Content-Encoding = %q, want gzip", got)
	}

	// ts 切片不压缩
	w = doRequest(r, http.MethodGet, "/stream/play/"+session+"/segment000.ts", gz)
	if got := w.Header().Get("Content-Encoding"); got == "gzip" {
		t.Error("segment must not be gzip compressed")
	}
}

func TestPlayStreamRejectsTraversal(t *testing.T) {
	r, _ := newStreamRouter(t)
	const session = "d6a09a92-14da-4e54-a078-017a4d6dbce3"

	for _, target := range []string{
		"/stream/play/" + session + "/..%2f..%2fetc%2fpasswd",
		"/stream/play/not-a-uuid/cam.m3u8",
	} {
		w := doRequest(r, http.MethodGet, target, nil)
		if w.Code == http.StatusOK {
			t.Errorf("GET %s succeeded, want rejection", target)
		}
	}
}

func TestStartStreamUnknownCamera(t *testing.T) {
	r, _ := newStreamRouter(t)
	w := doRequest(r, http.MethodGet, "/stream/start/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStartStreamWithoutSource(t *testing.T) {
	// cam1 没有配置 url，也未开启测试源
	r, _ := newStreamRouter(t)
	w := doRequest(r, http.MethodGet, "/stream/start/cam1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestStopStreamUnknownSession(t *testing.T) {
	r, _ := newStreamRouter(t)
	w := doRequest(r, http.MethodGet, "/stream/stop/ffffffff-0000-0000-0000-000000000000", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
