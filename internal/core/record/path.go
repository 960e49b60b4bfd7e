package record

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gowvp/hawk/pkg/ffkit"
)

const (
	// ManifestName 直播清单固定文件名
	ManifestName = "cam.m3u8"

	defaultDirectoryFormat = "2-Jan-2006"
	defaultFilenameFormat  = "2-Jan-2006 15-04-05"
)

// DirectoryPath 类别根目录
// record -> <folder>/recordings，stream -> <folder>/stream，其余类别按摄像头名称分目录
func DirectoryPath(cfg Config) string {
	switch cfg.Category {
	case ffkit.CategoryStream:
		return filepath.Join(cfg.Folder, "stream")
	case ffkit.CategoryRecord:
		return filepath.Join(cfg.Folder, "recordings")
	default:
		return filepath.Join(cfg.Folder, cfg.Camera)
	}
}

// TodayPath 按日期命名的子目录
func TodayPath(cfg Config, now time.Time) string {
	return filepath.Join(DirectoryPath(cfg), now.Format(cfg.directoryFormat()))
}

// SessionPath 本次会话的输出目录
// 直播按会话 id 分目录，多路并发直播互不冲突；其余类别共用日期目录
func SessionPath(cfg Config, now time.Time, sessionID string) string {
	if cfg.Category == ffkit.CategoryStream {
		return filepath.Join(DirectoryPath(cfg), sessionID)
	}
	return TodayPath(cfg, now)
}

// FileName 输出文件完整路径
// 直播固定输出清单文件，ts 切片由编码器自行命名；其余类别按时间戳命名
func FileName(cfg Config, now time.Time, folderPath string) string {
	if cfg.Category == ffkit.CategoryStream {
		return filepath.Join(folderPath, ManifestName)
	}
	return filepath.Join(folderPath, now.Format(cfg.filenameFormat())+cfg.Category.Ext())
}

// EnsureDir 创建目录，目录已存在时为空操作，可并发调用
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", path, err)
	}
	return nil
}
