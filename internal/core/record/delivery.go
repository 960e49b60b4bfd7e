package record

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ixugo/goddd/pkg/reason"
)

// HLS 内容类型
const (
	ContentTypeManifest = "application/vnd.apple.mpegurl"
	ContentTypeSegment  = "video/MP2T"
)

// Artifact 一次播放请求解析出的文件信息
type Artifact struct {
	// FilePath 磁盘完整路径
	FilePath string
	// ContentType 按扩展名区分清单与 ts 切片
	ContentType string
	// Compressible 仅清单允许压缩传输，ts 本身已是压缩媒体
	Compressible bool
	Session      string
	Name         string
}

// ResolvePlayPath 将播放请求路径映射为直播目录下的文件
// 请求形如 /<sessionID>/<file>，会话 id 必须是合法 uuid，
// 文件名单独取 base，杜绝路径穿越到直播根目录之外
func (c Core) ResolvePlayPath(urlPath string) (*Artifact, error) {
	trimmed := strings.Trim(urlPath, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		return nil, reason.ErrBadRequest.Withf("invalid stream path: %s", urlPath)
	}

	session, name := parts[0], parts[1]
	if _, err := uuid.Parse(session); err != nil {
		return nil, reason.ErrBadRequest.Withf("invalid session id: %s", session)
	}
	if name != path.Base(name) || name == "." || name == ".." {
		return nil, reason.ErrBadRequest.Withf("invalid file name: %s", name)
	}

	a := Artifact{
		FilePath: filepath.Join(c.StorageDir(), "stream", session, name),
		Session:  session,
		Name:     name,
	}
	if strings.EqualFold(path.Ext(name), ".ts") {
		a.ContentType = ContentTypeSegment
	} else {
		a.ContentType = ContentTypeManifest
		a.Compressible = true
	}
	return &a, nil
}

// Check 检查文件是否已经产出
// 刚启动的直播要等编码器写出第一个清单，文件不存在是正常的竞态，返回 404 即可
func (a *Artifact) Check() error {
	if _, err := os.Stat(a.FilePath); err != nil {
		if os.IsNotExist(err) {
			return reason.ErrNotFound.Withf("stream does not exists: %s/%s", a.Session, a.Name)
		}
		return reason.ErrServer.Withf("stat %s err[%s]", a.FilePath, err.Error())
	}
	return nil
}
