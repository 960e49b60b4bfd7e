package record

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gowvp/hawk/internal/conf"
	"github.com/gowvp/hawk/pkg/ffkit"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// Storer data persistence
type Storer interface {
	Segment() SegmentStorer
}

// SegmentStorer Instantiation interface
type SegmentStorer interface {
	Find(context.Context, *[]*Segment, orm.Pager, ...orm.QueryOption) (int64, error)
	Get(context.Context, *Segment, ...orm.QueryOption) error
	Add(context.Context, *Segment) error
	Del(context.Context, *Segment, ...orm.QueryOption) error
	Count(context.Context, ...orm.QueryOption) (int64, error)

	Session(context.Context, ...func(*gorm.DB) error) error
}

// Core business domain
type Core struct {
	store Storer
	conf  *conf.ServerRecording
}

type Option func(*Core)

// WithConfig 注入录制配置
func WithConfig(conf *conf.ServerRecording) Option {
	return func(c *Core) {
		c.conf = conf
	}
}

// NewCore create business domain
func NewCore(store Storer, opts ...Option) Core {
	c := Core{store: store}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// IsEnabled 检查是否启用录制（全局开关）
func (c Core) IsEnabled() bool {
	return c.conf != nil && !c.conf.Disabled
}

// StorageDir 存储根目录
func (c Core) StorageDir() string {
	if c.conf == nil || c.conf.StorageDir == "" {
		return "media"
	}
	return c.conf.StorageDir
}

// BuildConfig 依据全局配置与摄像头信息生成一路录制配置
func (c Core) BuildConfig(cam conf.Camera, category ffkit.Category) Config {
	cfg := Config{
		Camera:   cam.ID,
		URL:      cam.URL,
		Category: category,
		Folder:   c.StorageDir(),
	}
	if c.conf != nil {
		cfg.TimeLimit = c.conf.SegmentSeconds
		cfg.DirectoryFormat = c.conf.DirectoryFormat
		cfg.FilenameFormat = c.conf.FilenameFormat
		cfg.EncoderBin = c.conf.EncoderBin
		cfg.MockEnabled = c.conf.Mock.Enabled
		cfg.MockURL = c.conf.Mock.URL
	}
	return cfg
}

// NewSupervisor 创建一路录制状态机，切片完成后写入存储
func (c Core) NewSupervisor(cam conf.Camera, category ffkit.Category) *Supervisor {
	return NewSupervisor(c.BuildConfig(cam, category), WithSegmentNotify(c.onSegmentFinished))
}

// onSegmentFinished 切片结束落库，文件不存在说明本段没有产出，跳过
func (c Core) onSegmentFinished(info SegmentInfo) {
	ctx := context.Background()
	fi, err := os.Stat(info.Path)
	if err != nil {
		slog.Debug("segment produced no file", "path", info.Path)
		return
	}

	in := AddSegmentInput{
		Camera:    info.Camera,
		Category:  string(info.Category),
		Session:   info.Session,
		Path:      c.relativePath(info.Path),
		StartedAt: orm.Time{Time: info.StartedAt},
		EndedAt:   orm.Time{Time: info.EndedAt},
		Duration:  info.EndedAt.Sub(info.StartedAt).Seconds(),
		Size:      fi.Size(),
	}
	if _, err := c.AddSegment(ctx, &in); err != nil {
		slog.ErrorContext(ctx, "failed to save segment", "path", in.Path, "err", err)
	}
}

// relativePath 将存储根目录下的路径转为相对路径，方便静态文件服务拼接
func (c Core) relativePath(p string) string {
	root := c.StorageDir()
	if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return p
}

// GetFullPath 获取切片文件的完整路径
func (c Core) GetFullPath(relativePath string) string {
	if filepath.IsAbs(relativePath) {
		return relativePath
	}
	return filepath.Join(c.StorageDir(), relativePath)
}

// FindSegments 分页查询切片列表，支持摄像头与时间范围筛选
func (c Core) FindSegments(ctx context.Context, in *FindSegmentInput) ([]*Segment, int64, error) {
	query := orm.NewQuery(4).OrderBy("started_at DESC")

	if in.Camera != "" {
		query.Where("camera = ?", in.Camera)
	}
	if in.Category != "" {
		query.Where("category = ?", in.Category)
	}
	if in.StartMs > 0 && in.EndMs > 0 {
		query.Where("started_at >= ? AND ended_at <= ?", in.StartAt(), in.EndAt())
	}

	items := make([]*Segment, 0, in.Limit())
	total, err := c.store.Segment().Find(ctx, &items, in, query.Encode()...)
	if err != nil {
		return nil, 0, reason.ErrDB.Withf(`Find in[%+v] err[%s]`, in, err.Error())
	}
	return items, total, nil
}

// AddSegment Insert into database
func (c Core) AddSegment(ctx context.Context, in *AddSegmentInput) (*Segment, error) {
	var out Segment
	if err := copier.Copy(&out, in); err != nil {
		slog.ErrorContext(ctx, "Copy", "err", err)
	}

	if err := c.store.Segment().Add(ctx, &out); err != nil {
		return nil, reason.ErrDB.Withf(`Add err[%s]`, err.Error())
	}
	return &out, nil
}

// DelSegment Delete object
func (c Core) DelSegment(ctx context.Context, id int64) (*Segment, error) {
	var out Segment
	if err := c.store.Segment().Del(ctx, &out, orm.Where("id=?", id)); err != nil {
		return nil, reason.ErrDB.Withf(`Del id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}
