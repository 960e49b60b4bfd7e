package ffkit

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/ixugo/goddd/pkg/queue"
)

// Category 录制类别，决定 ffmpeg 参数与输出文件扩展名
type Category string

const (
	CategoryRecord Category = "record" // 录像，按时长切片保存 mp4
	CategoryStream Category = "stream" // 直播，输出 HLS 清单与 ts 切片
	CategoryAudio  Category = "audio"  // 仅音频
	CategoryImage  Category = "image"  // 单帧截图
)

// ParseCategory 解析类别，未知值回退到录像
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryStream, CategoryAudio, CategoryImage:
		return Category(s)
	default:
		return CategoryRecord
	}
}

// Args 类别对应的 ffmpeg 输出参数
func (c Category) Args() []string {
	switch c {
	case CategoryStream:
		// hls_list_size 限制滑动窗口，delete_segments 让 ffmpeg 自行清理过期 ts
		return []string{"-f", "hls", "-hls_time", "3", "-hls_list_size", "10", "-hls_flags", "delete_segments"}
	case CategoryAudio:
		return []string{"-vn", "-acodec", "copy"}
	case CategoryImage:
		return []string{"-vframes", "1"}
	default:
		return []string{"-f", "mp4"}
	}
}

// Ext 类别对应的输出文件扩展名，stream 类别输出固定清单文件名，不走扩展名
func (c Category) Ext() string {
	switch c {
	case CategoryAudio:
		return ".avi"
	case CategoryImage:
		return ".jpg"
	default:
		return ".mp4"
	}
}

type Config struct {
	// Bin 编码器可执行文件，默认 ffmpeg
	Bin      string
	URL      string
	Output   string
	Category Category
	// Transport rtsp 传输方式，默认 tcp
	Transport string
	// OnExit 进程退出回调，无论自然退出、被杀还是崩溃都恰好触发一次
	OnExit func(err error)
}

// Process 一次编码器进程调用
type Process struct {
	cfg    Config
	cmd    *exec.Cmd
	log    *queue.CirQueue[string]
	done   chan struct{}
	wg     sync.WaitGroup
	m      sync.Mutex
	exited bool
	err    error
}

// BuildArgs 组装 ffmpeg 参数：全局参数、输入、类别参数、输出路径
func BuildArgs(cfg Config) []string {
	args := []string{"-hide_banner", "-loglevel", "warning"}
	if strings.HasPrefix(cfg.URL, "rtsp://") {
		transport := cfg.Transport
		if transport == "" {
			transport = "tcp"
		}
		args = append(args, "-rtsp_transport", transport)
	}
	args = append(args, "-i", cfg.URL)
	args = append(args, cfg.Category.Args()...)
	args = append(args, cfg.Output)
	return args
}

// Start 启动编码器进程，退出回调由后台协程派发
func Start(cfg Config) (*Process, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("source url is required")
	}
	if cfg.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}
	bin := cfg.Bin
	if bin == "" {
		bin = "ffmpeg"
	}

	p := Process{
		cfg:  cfg,
		log:  queue.NewCirQueue[string](100),
		done: make(chan struct{}),
	}
	p.cmd = exec.Command(bin, BuildArgs(cfg)...)
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", bin, err)
	}

	p.wg.Go(func() { p.readStderr(stderr) })
	go p.wait()
	return &p, nil
}

// readStderr 编码器的警告与错误信息都输出到 stderr，缓存用于排查
func (p *Process) readStderr(stderr io.Reader) {
	scan := bufio.NewScanner(stderr)
	for scan.Scan() {
		p.log.Push(scan.Text())
	}
}

func (p *Process) wait() {
	p.wg.Wait()
	err := p.cmd.Wait()

	p.m.Lock()
	p.exited = true
	p.err = err
	p.m.Unlock()
	close(p.done)

	if fn := p.cfg.OnExit; fn != nil {
		fn(err)
	}
}

// Terminate 杀死进程，进程已退出时为空操作
func (p *Process) Terminate() {
	p.m.Lock()
	exited := p.exited
	p.m.Unlock()
	if exited {
		return
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// Done 进程退出通知
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitErr 退出状态，进程未退出时返回 nil
func (p *Process) ExitErr() error {
	p.m.Lock()
	defer p.m.Unlock()
	if !p.exited {
		return nil
	}
	return p.err
}

// Running 进程是否仍在运行
func (p *Process) Running() bool {
	p.m.Lock()
	defer p.m.Unlock()
	return !p.exited
}

// Log 编码器 stderr 输出的最近若干行
func (p *Process) Log() []string {
	return p.log.Range()
}
