package record

import (
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
)

type FindSegmentInput struct {
	web.PagerFilter
	web.DateFilter
	Camera   string `form:"camera"`   // 摄像头 id
	Category string `form:"category"` // 录制类别
}

type AddSegmentInput struct {
	Camera    string   `json:"camera"`
	Category  string   `json:"category"`
	Session   string   `json:"session"`
	Path      string   `json:"path"`       // 文件相对路径
	StartedAt orm.Time `json:"started_at"` // 切片开始时间
	EndedAt   orm.Time `json:"ended_at"`   // 切片结束时间
	Duration  float64  `json:"duration"`   // 持续时长（秒）
	Size      int64    `json:"size"`       // 文件大小（字节）
}
