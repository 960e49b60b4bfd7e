package record

import (
	"github.com/ixugo/goddd/pkg/orm"
)

// Segment 一段已完成的录制切片
type Segment struct {
	ID        int64    `gorm:"primaryKey" json:"id"`
	Camera    string   `gorm:"column:camera;index" json:"camera"`      // 摄像头 id
	Category  string   `gorm:"column:category" json:"category"`       // 录制类别
	Session   string   `gorm:"column:session" json:"session"`         // 会话 id
	Path      string   `gorm:"column:path" json:"path"`               // 文件路径，相对于存储根目录
	StartedAt orm.Time `gorm:"column:started_at;index" json:"started_at"` // 切片开始时间
	EndedAt   orm.Time `gorm:"column:ended_at" json:"ended_at"`       // 切片结束时间
	Duration  float64  `gorm:"column:duration" json:"duration"`       // 时长（秒）
	Size      int64    `gorm:"column:size" json:"size"`               // 文件大小（字节）
	CreatedAt orm.Time `gorm:"column:created_at" json:"created_at"`
}

func (*Segment) TableName() string {
	return "segments"
}
