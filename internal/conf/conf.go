package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Bootstrap 全局配置
type Bootstrap struct {
	Debug        bool    `toml:"debug"`
	BuildVersion string  `toml:"-"`
	Server       Server  `toml:"server"`
	Data         Data    `toml:"data"`
	Cameras      Cameras `toml:"cameras"`
}

type Server struct {
	HTTP      HTTP            `toml:"http"`
	Recording ServerRecording `toml:"recording"`
}

type HTTP struct {
	Port      int    `toml:"port"`
	JwtSecret string `toml:"jwt_secret"`
}

// ServerRecording 录制相关配置
type ServerRecording struct {
	Disabled bool `toml:"disabled"`
	// StorageDir 录像与直播切片的根目录，相对路径时相对于工作目录
	StorageDir string `toml:"storage_dir"`
	// SegmentSeconds 单个录像切片时长（秒）
	SegmentSeconds int `toml:"segment_seconds"`
	// RetainDays 录像保留天数，<=0 表示不清理
	RetainDays int `toml:"retain_days"`
	// DirectoryFormat 日期目录命名格式，go 时间格式
	DirectoryFormat string `toml:"directory_format"`
	// FilenameFormat 录像文件命名格式，go 时间格式
	FilenameFormat string `toml:"filename_format"`
	// EncoderBin 编码器可执行文件，默认取 PATH 中的 ffmpeg
	EncoderBin string `toml:"encoder_bin"`
	Mock       Mock   `toml:"mock"`
}

// Mock 测试模式，摄像头未配置地址时以测试源代替
type Mock struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
}

type Data struct {
	Database Database `toml:"database"`
}

type Database struct {
	// Dsn 以 postgres/mysql 开头时连接对应数据库，否则视为 sqlite 文件名
	Dsn             string   `toml:"dsn"`
	MaxIdleConns    int      `toml:"max_idle_conns"`
	MaxOpenConns    int      `toml:"max_open_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
	SlowThreshold   Duration `toml:"slow_threshold"`
}

// Camera 摄像头信息，url 为空时依赖 mock 配置
type Camera struct {
	ID     string `toml:"id"`
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	Record bool   `toml:"record"`
}

type Cameras []Camera

// Get 按 id 查找摄像头
func (cs Cameras) Get(id string) (Camera, bool) {
	for _, c := range cs {
		if c.ID == id {
			return c, true
		}
	}
	return Camera{}, false
}

// Duration 支持 "30s" 等字符串的时长配置
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// SetupConfig 加载配置，文件不存在时写入默认配置
// 环境变量 HLS_MOCK / MOCK_CAM_URL / SEGMENT_SECONDS 可覆盖对应配置项
func SetupConfig(path string) (*Bootstrap, error) {
	bc := defaultBootstrap()

	body, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := writeDefaultConfig(path, bc); err != nil {
			return nil, err
		}
	} else if err := toml.Unmarshal(body, bc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	loadEnv(bc)
	return bc, nil
}

func defaultBootstrap() *Bootstrap {
	return &Bootstrap{
		Server: Server{
			HTTP: HTTP{Port: 8080},
			Recording: ServerRecording{
				StorageDir:      "media",
				SegmentSeconds:  600,
				RetainDays:      7,
				DirectoryFormat: "2-Jan-2006",
				FilenameFormat:  "2-Jan-2006 15-04-05",
			},
		},
		Data: Data{
			Database: Database{
				Dsn:             "hawk.db",
				MaxIdleConns:    10,
				MaxOpenConns:    100,
				ConnMaxLifetime: Duration(time.Hour),
				SlowThreshold:   Duration(200 * time.Millisecond),
			},
		},
	}
}

func writeDefaultConfig(path string, bc *Bootstrap) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	body, err := toml.Marshal(bc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

func loadEnv(bc *Bootstrap) {
	if v := os.Getenv("HLS_MOCK"); v != "" {
		bc.Server.Recording.Mock.Enabled = v == "true"
	}
	if v := os.Getenv("MOCK_CAM_URL"); v != "" {
		bc.Server.Recording.Mock.URL = v
	}
	if v := os.Getenv("SEGMENT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			bc.Server.Recording.SegmentSeconds = n
		}
	}
}
