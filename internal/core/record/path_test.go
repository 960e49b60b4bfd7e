package record

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gowvp/hawk/pkg/ffkit"
)

func TestDirectoryPath(t *testing.T) {
	cases := []struct {
		category ffkit.Category
		want     string
	}{
		{ffkit.CategoryRecord, filepath.Join("media", "recordings")},
		{ffkit.CategoryStream, filepath.Join("media", "stream")},
		{ffkit.CategoryAudio, filepath.Join("media", "livingroom")},
		{ffkit.CategoryImage, filepath.Join("media", "livingroom")},
	}
	for _, tc := range cases {
		cfg := Config{Camera: "livingroom", Folder: "media", Category: tc.category}
		if got := DirectoryPath(cfg); got != tc.want {
			t.Errorf("DirectoryPath(%s) = %s, want %s", tc.category, got, tc.want)
		}
	}
}

func TestPathDeterminism(t *testing.T) {
	cfg := Config{Camera: "cam1", Folder: "media", Category: ffkit.CategoryRecord}
	now := time.Date(2024, time.January, 3, 10, 30, 0, 0, time.UTC)

	want := filepath.Join("media", "recordings", "3-Jan-2024")
	for range 3 {
		if got := TodayPath(cfg, now); got != want {
			t.Fatalf("TodayPath = %s, want %s", got, want)
		}
	}

	folder := TodayPath(cfg, now)
	name1 := FileName(cfg, now, folder)
	name2 := FileName(cfg, now, folder)
	if name1 != name2 {
		t.Errorf("FileName not deterministic: %s != %s", name1, name2)
	}
	if want := filepath.Join(folder, "3-Jan-2024 10-30-00.mp4"); name1 != want {
		t.Errorf("FileName = %s, want %s", name1, want)
	}
}

func TestSessionPath(t *testing.T) {
	now := time.Date(2024, time.January, 3, 10, 30, 0, 0, time.UTC)

	cfg := Config{Folder: "media", Category: ffkit.CategoryStream}
	got := SessionPath(cfg, now, "d6a09a92-14da-4e54-a078-017a4d6dbce3")
	if want := filepath.Join("media", "stream", "d6a09a92-14da-4e54-a078-017a4d6dbce3"); got != want {
		t.Errorf("SessionPath(stream) = %s, want %s", got, want)
	}
	if got := FileName(cfg, now, got); filepath.Base(got) != ManifestName {
		t.Errorf("stream FileName = %s, want %s", got, ManifestName)
	}

	// 非直播类别共用日期目录
	cfg.Category = ffkit.CategoryRecord
	if got := SessionPath(cfg, now, "ignored"); got != TodayPath(cfg, now) {
		t.Errorf("SessionPath(record) = %s, want %s", got, TodayPath(cfg, now))
	}
}

func TestEnsureDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	for range 3 {
		if err := EnsureDir(dir); err != nil {
			t.Fatal(err)
		}
	}
	fi, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !fi.IsDir() {
		t.Error("EnsureDir did not create a directory")
	}
}
