package record

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowvp/hawk/pkg/ffkit"
)

// State 会话状态
type State int32

const (
	StateIdle State = iota // 未启动
	StateRecording
	StateRotationPending // 旧进程已收到终止信号，等待退出后切换下一个切片
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateRotationPending:
		return "rotation_pending"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Config 一路录制/直播的配置，构造后不再修改
type Config struct {
	Camera   string // 摄像头 id，用作通用类别的目录名
	URL      string
	Category ffkit.Category
	// TimeLimit 单个切片时长（秒），到期切换下一个切片
	TimeLimit int
	// Folder 存储根目录
	Folder          string
	DirectoryFormat string
	FilenameFormat  string
	// MockURL 测试源，未配置摄像头地址且启用 mock 时使用
	MockURL     string
	MockEnabled bool
	// EncoderBin 编码器可执行文件，默认 ffmpeg，测试可替换
	EncoderBin string
}

func (c Config) directoryFormat() string {
	if c.DirectoryFormat == "" {
		return defaultDirectoryFormat
	}
	return c.DirectoryFormat
}

func (c Config) filenameFormat() string {
	if c.FilenameFormat == "" {
		return defaultFilenameFormat
	}
	return c.FilenameFormat
}

func (c Config) timeLimit() time.Duration {
	if c.TimeLimit <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeLimit) * time.Second
}

// SegmentInfo 一个已结束切片的元数据，进程退出后回调给持有方
type SegmentInfo struct {
	Camera    string
	Category  ffkit.Category
	Session   string
	Path      string
	StartedAt time.Time
	EndedAt   time.Time
}

// Supervisor 单路录制状态机
// 同一时刻最多持有一个编码器进程，切片轮转始终由进程退出驱动，
// 避免两个进程同时写同一输出
type Supervisor struct {
	cfg       Config
	sessionID string

	m     sync.Mutex
	state State
	proc  *ffkit.Process
	timer *time.Timer
	// gen 进程代数，退出回调带上代数，旧进程的回调不会误驱动新进程
	gen       uint64
	fileName  string
	startedAt time.Time
	cleaned   bool

	onSegment func(SegmentInfo)
}

type SupervisorOption func(*Supervisor)

// WithSegmentNotify 注入切片完成回调，用于持久化切片元数据
func WithSegmentNotify(fn func(SegmentInfo)) SupervisorOption {
	return func(s *Supervisor) {
		s.onSegment = fn
	}
}

func NewSupervisor(cfg Config, opts ...SupervisorOption) *Supervisor {
	s := Supervisor{
		cfg:       cfg,
		sessionID: uuid.NewString(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &s
}

// ID 会话唯一标识，也是直播切片的子目录名
func (s *Supervisor) ID() string {
	return s.sessionID
}

func (s *Supervisor) State() State {
	s.m.Lock()
	defer s.m.Unlock()
	return s.state
}

// CurrentFile 当前切片的输出路径
func (s *Supervisor) CurrentFile() string {
	s.m.Lock()
	defer s.m.Unlock()
	return s.fileName
}

// ManifestPath 直播清单相对于会话起点的访问路径
func (s *Supervisor) ManifestPath() string {
	return s.sessionID + "/" + ManifestName
}

// Start 启动录制，返回会话 id
// 重复调用不会启动第二个进程；无可用源地址时记录日志并保持未启动
func (s *Supervisor) Start() (string, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if s.state != StateIdle {
		return s.sessionID, nil
	}

	url := s.cfg.URL
	if url == "" && s.cfg.MockEnabled {
		slog.Debug("mock mode enabled, using test source", "camera", s.cfg.Camera)
		url = s.cfg.MockURL
	}
	if url == "" {
		slog.Warn("webcam url not found", "camera", s.cfg.Camera)
		return "", nil
	}
	s.cfg.URL = url

	if s.cfg.Category == ffkit.CategoryRecord {
		if err := EnsureDir(TodayPath(s.cfg, time.Now())); err != nil {
			return "", err
		}
		slog.Info("starting to record to disk", "camera", s.cfg.Camera)
	} else {
		slog.Info("starting session", "camera", s.cfg.Camera, "category", s.cfg.Category)
	}

	s.state = StateRecording
	if err := s.startSegmentLocked(); err != nil {
		// 进程未能拉起时保持 recording 状态，由重试定时器再次尝试
		slog.Error("failed to start encoder", "camera", s.cfg.Camera, "err", err)
		s.armTimerLocked()
	}
	return s.sessionID, nil
}

// startSegmentLocked 解析输出路径并拉起下一个切片的编码器进程
// 调用方必须持有 s.m
func (s *Supervisor) startSegmentLocked() error {
	now := time.Now()
	folderPath := SessionPath(s.cfg, now, s.sessionID)
	if err := EnsureDir(folderPath); err != nil {
		return err
	}
	fileName := FileName(s.cfg, now, folderPath)

	s.gen++
	gen := s.gen
	proc, err := ffkit.Start(ffkit.Config{
		Bin:      s.cfg.EncoderBin,
		URL:      s.cfg.URL,
		Output:   fileName,
		Category: s.cfg.Category,
		OnExit: func(exitErr error) {
			s.onProcessExit(gen, exitErr)
		},
	})
	if err != nil {
		return err
	}

	s.proc = proc
	s.fileName = fileName
	s.startedAt = now
	// 单帧截图没有轮转，进程退出即结束
	if s.cfg.Category != ffkit.CategoryImage {
		s.armTimerLocked()
	}
	slog.Debug("saving to file", "camera", s.cfg.Camera, "file", fileName)
	return nil
}

func (s *Supervisor) armTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.timeLimit(), s.rotate)
}

// rotate 切片时长到期，结束当前切片
// 状态不是 recording 时说明正在停止或上一次轮转尚未完成，直接丢弃本次请求，
// 保证同一进程不会被重复绑定终止动作
func (s *Supervisor) rotate() {
	s.m.Lock()
	defer s.m.Unlock()

	if s.state != StateRecording {
		return
	}
	if s.proc == nil {
		// 上一次进程拉起失败，本次直接重试
		if err := s.startSegmentLocked(); err != nil {
			slog.Error("failed to start encoder", "camera", s.cfg.Camera, "err", err)
			s.armTimerLocked()
		}
		return
	}

	s.state = StateRotationPending
	// 仅发出终止信号，下一个切片由退出回调驱动
	s.proc.Terminate()
}

// onProcessExit 编码器进程退出，依据当前状态决定重启还是收尾
func (s *Supervisor) onProcessExit(gen uint64, exitErr error) {
	s.m.Lock()
	defer s.m.Unlock()

	if gen != s.gen {
		// 旧进程的迟到回调，当前进程另有归属
		return
	}

	finished := SegmentInfo{
		Camera:    s.cfg.Camera,
		Category:  s.cfg.Category,
		Session:   s.sessionID,
		Path:      s.fileName,
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
	}
	s.proc = nil

	if s.state == StateStopped {
		slog.Info("finished recording", "camera", s.cfg.Camera, "file", finished.Path)
		s.notifySegmentLocked(finished)
		s.cleanupLocked()
		return
	}

	if exitErr != nil && s.state == StateRecording {
		// 非轮转期间的异常退出，自动重启
		slog.Info("encoder exited unexpectedly, restarting", "camera", s.cfg.Camera, "err", exitErr)
	}
	s.notifySegmentLocked(finished)

	if s.cfg.Category == ffkit.CategoryImage {
		s.state = StateStopped
		return
	}

	s.state = StateRecording
	if err := s.startSegmentLocked(); err != nil {
		slog.Error("failed to start next segment", "camera", s.cfg.Camera, "err", err)
		s.armTimerLocked()
	}
}

// notifySegmentLocked 上报已结束的切片，直播切片由编码器滚动清理，不入库
func (s *Supervisor) notifySegmentLocked(info SegmentInfo) {
	if s.onSegment == nil || s.cfg.Category == ffkit.CategoryStream {
		return
	}
	go s.onSegment(info)
}

// Stop 停止录制，幂等
// 取消轮转定时器并终止进程，收尾动作由退出回调完成
func (s *Supervisor) Stop() {
	s.m.Lock()
	defer s.m.Unlock()

	if s.state == StateStopped {
		return
	}
	prev := s.state
	s.state = StateStopped

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.proc != nil {
		s.proc.Terminate()
	} else if prev != StateIdle {
		s.cleanupLocked()
	}
	slog.Info("stopped recording", "camera", s.cfg.Camera, "session", s.sessionID)
}

// cleanupLocked 直播会话结束后删除临时目录及全部切片，只执行一次
func (s *Supervisor) cleanupLocked() {
	if s.cleaned || s.cfg.Category != ffkit.CategoryStream {
		return
	}
	s.cleaned = true
	folderPath := SessionPath(s.cfg, time.Now(), s.sessionID)
	if err := os.RemoveAll(folderPath); err != nil {
		slog.Error("failed to remove temp streaming folder", "path", folderPath, "err", err)
		return
	}
	slog.Debug("removed temp streaming folder", "path", folderPath)
}
