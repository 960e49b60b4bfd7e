package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gowvp/hawk/internal/conf"
)

func newDeliveryCore(t *testing.T) (Core, string) {
	t.Helper()
	dir := t.TempDir()
	c := NewCore(nil, WithConfig(&conf.ServerRecording{StorageDir: dir}))
	return c, dir
}

func TestResolvePlayPath(t *testing.T) {
	c, dir := newDeliveryCore(t)
	const session = "d6a09a92-14da-4e54-a078-017a4d6dbce3"

	a, err := c.ResolvePlayPath("/" + session + "/cam.m3u8")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "stream", session, "cam.m3u8"); a.FilePath != want {
		t.Errorf("FilePath = %s, want %s", a.FilePath, want)
	}
	if a.ContentType != ContentTypeManifest {
		t.Errorf("ContentType = %s, want manifest", a.ContentType)
	}
	if !a.Compressible {
		t.Error("manifest should be compressible")
	}

	a, err = c.ResolvePlayPath(session + "/segment003.ts")
	if err != nil {
		t.Fatal(err)
	}
	if a.ContentType != ContentTypeSegment {
		t.Errorf("ContentType = %s, want segment", a.ContentType)
	}
	// ts 切片本身已是压缩媒体，不再二次压缩
	if a.Compressible {
		t.Error("segment must not be compressible")
	}
}

func TestResolvePlayPathRejectsTraversal(t *testing.T) {
	c, _ := newDeliveryCore(t)
	const session = "d6a09a92-14da-4e54-a078-017a4d6dbce3"

	bad := []string{
		"/../../etc/passwd",
		"/" + session + "/../../etc/passwd",
		"/" + session + "/..",
		"/not-a-uuid/cam.m3u8",
		"/" + session,
		"/" + session + "/a/b.ts",
		"",
	}
	for _, p := range bad {
		if _, err := c.ResolvePlayPath(p); err == nil {
			t.Errorf("ResolvePlayPath(%q) should fail", p)
		}
	}
}

func TestArtifactCheck(t *testing.T) {
	c, _ := newDeliveryCore(t)
	const session = "d6a09a92-14da-4e54-a078-017a4d6dbce3"

	a, err := c.ResolvePlayPath(session + "/cam.m3u8")
	if err != nil {
		t.Fatal(err)
	}

	// 编码器尚未写出清单，刚启动的常见竞态
	if err := a.Check(); err == nil {
		t.Error("Check should fail before the manifest exists")
	}

	if err := os.MkdirAll(filepath.Dir(a.FilePath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(a.FilePath, []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := a.Check(); err != nil {
		t.Errorf("Check failed after manifest written: %v", err)
	}
}
