package ffkit

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// writeStub 生成一个代替 ffmpeg 的脚本，忽略所有参数
func writeStub(t *testing.T, body string) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "encoder.sh")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func TestParseCategory(t *testing.T) {
	if got := ParseCategory("stream"); got != CategoryStream {
		t.Errorf("ParseCategory(stream) = %s", got)
	}
	// 未知类别回退到录像
	if got := ParseCategory("whatever"); got != CategoryRecord {
		t.Errorf("ParseCategory(whatever) = %s, want record", got)
	}
	if got := ParseCategory(""); got != CategoryRecord {
		t.Errorf("ParseCategory(\"\") = %s, want record", got)
	}
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(Config{
		URL:      "rtsp://cam.local/live",
		Output:   "out.mp4",
		Category: CategoryRecord,
	})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-rtsp_transport tcp") {
		t.Errorf("rtsp url should use tcp transport, got %q", joined)
	}
	if !strings.Contains(joined, "-i rtsp://cam.local/live -f mp4 out.mp4") {
		t.Errorf("unexpected arg order: %q", joined)
	}

	args = BuildArgs(Config{URL: "http://example.com/a.mp4", Output: "cam.m3u8", Category: CategoryStream})
	joined = strings.Join(args, " ")
	if strings.Contains(joined, "rtsp_transport") {
		t.Errorf("non-rtsp url should not set transport: %q", joined)
	}
	if !strings.Contains(joined, "-f hls -hls_time 3 -hls_list_size 10 -hls_flags delete_segments cam.m3u8") {
		t.Errorf("unexpected hls args: %q", joined)
	}
}

func TestCategoryExt(t *testing.T) {
	cases := map[Category]string{
		CategoryRecord: ".mp4",
		CategoryAudio:  ".avi",
		CategoryImage:  ".jpg",
	}
	for c, want := range cases {
		if got := c.Ext(); got != want {
			t.Errorf("%s.Ext() = %s, want %s", c, got, want)
		}
	}
}

func TestOnExitExactlyOnce(t *testing.T) {
	var calls atomic.Int32
	exited := make(chan struct{})
	p, err := Start(Config{
		Bin:      writeStub(t, "exit 0"),
		URL:      "rtsp://cam.local/live",
		Output:   filepath.Join(t.TempDir(), "out.mp4"),
		Category: CategoryRecord,
		OnExit: func(error) {
			if calls.Add(1) == 1 {
				close(exited)
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("exit callback not invoked")
	}

	// 退出后再 Terminate 应当是空操作，也不能再次触发回调
	p.Terminate()
	p.Terminate()
	time.Sleep(100 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("OnExit invoked %d times, want 1", n)
	}
	if p.Running() {
		t.Error("Running() = true after exit")
	}
}

func TestTerminate(t *testing.T) {
	p, err := Start(Config{
		Bin:      writeStub(t, "sleep 60"),
		URL:      "rtsp://cam.local/live",
		Output:   filepath.Join(t.TempDir(), "out.mp4"),
		Category: CategoryRecord,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Running() {
		t.Fatal("Running() = false before Terminate")
	}

	p.Terminate()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process not reaped after Terminate")
	}
	if p.ExitErr() == nil {
		t.Error("killed process should report a non-nil exit error")
	}
}

func TestStartValidates(t *testing.T) {
	if _, err := Start(Config{Output: "out.mp4"}); err == nil {
		t.Error("missing url should fail")
	}
	if _, err := Start(Config{URL: "rtsp://cam.local/live"}); err == nil {
		t.Error("missing output should fail")
	}
}
