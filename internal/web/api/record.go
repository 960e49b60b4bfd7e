package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/hawk/internal/conf"
	"github.com/gowvp/hawk/internal/core/record"
	"github.com/gowvp/hawk/pkg/ffkit"
	"github.com/grafov/m3u8"
	"github.com/ixugo/goddd/pkg/conc"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
)

// RecordAPI 为 http 提供录像业务方法
type RecordAPI struct {
	recordCore record.Core
	conf       *conf.Bootstrap
	// sessions 以摄像头 id 为键，一台摄像头同时只有一路录像
	sessions *conc.Map[string, *record.Supervisor]
	// snapshots 在途的单帧截图，以会话 id 为键，进程退出即结束
	snapshots *conc.Map[string, *record.Supervisor]
}

func NewRecordAPI(core record.Core, bc *conf.Bootstrap) RecordAPI {
	return RecordAPI{
		recordCore: core,
		conf:       bc,
		sessions:   conc.NewMap[string, *record.Supervisor](),
		snapshots:  conc.NewMap[string, *record.Supervisor](),
	}
}

func RegisterRecord(g gin.IRouter, api RecordAPI) {
	{
		group := g.Group("/recordings")
		group.GET("", web.WrapH(api.findSegments))
		// HLS 播放列表（根据摄像头与时间范围生成 m3u8）
		group.GET("/channels/:camera/index.m3u8", api.channelPlaylist)
		group.DELETE("/:id", web.WrapH(api.delSegment))
	}
	{
		group := g.Group("/records")
		group.POST("/:camera/start", web.WrapH(api.startRecord))
		group.POST("/:camera/stop", web.WrapH(api.stopRecord))
		group.POST("/:camera/snapshot", web.WrapH(api.takeSnapshot))
	}

	// 静态文件服务，用于访问录像文件
	// Gin Static 支持 HTTP Range 请求，实现边下载边播放
	if dir := api.recordCore.StorageDir(); dir != "" {
		slog.Info("注册录像静态文件服务", "path", "/static", "dir", dir)
		g.Static("/static", dir)
	}
}

// findSegments 分页查询切片列表
func (a RecordAPI) findSegments(c *gin.Context, in *record.FindSegmentInput) (any, error) {
	items, total, err := a.recordCore.FindSegments(c.Request.Context(), in)
	return gin.H{"items": items, "total": total}, err
}

// delSegment 删除切片记录并移除磁盘文件
func (a RecordAPI) delSegment(c *gin.Context, _ *struct{}) (*record.Segment, error) {
	segmentID, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	out, err := a.recordCore.DelSegment(c.Request.Context(), segmentID)
	if err != nil {
		return nil, err
	}

	filePath := a.recordCore.GetFullPath(out.Path)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		slog.WarnContext(c.Request.Context(), "failed to remove segment file", "path", filePath, "err", err)
	}
	return out, nil
}

type startRecordOutput struct {
	Camera    string `json:"camera"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// startRecord 开始录像，重复调用返回当前会话
func (a RecordAPI) startRecord(c *gin.Context, _ *struct{}) (startRecordOutput, error) {
	id := c.Param("camera")
	cam, ok := a.conf.Cameras.Get(id)
	if !ok {
		return startRecordOutput{}, reason.ErrNotFound.Withf("camera[%s]", id)
	}
	if !a.recordCore.IsEnabled() {
		return startRecordOutput{}, reason.ErrBadRequest.Withf("recording is disabled")
	}

	sup, loaded := a.sessions.LoadOrStore(id, a.recordCore.NewSupervisor(cam, ffkit.CategoryRecord))
	sessionID, err := sup.Start()
	if err != nil {
		return startRecordOutput{}, reason.ErrServer.Withf("start record err[%s]", err.Error())
	}
	if sessionID == "" {
		a.sessions.Delete(id)
		return startRecordOutput{}, reason.ErrBadRequest.Withf("camera[%s] has no source url", id)
	}
	if !loaded {
		slog.InfoContext(c.Request.Context(), "record started", "camera", id, "session", sessionID)
	}
	return startRecordOutput{Camera: id, SessionID: sessionID, State: sup.State().String()}, nil
}

// stopRecord 停止录像，未在录像的摄像头静默成功
func (a RecordAPI) stopRecord(c *gin.Context, _ *struct{}) (gin.H, error) {
	id := c.Param("camera")
	if sup, ok := a.sessions.Load(id); ok {
		sup.Stop()
		a.sessions.Delete(id)
		slog.InfoContext(c.Request.Context(), "record stopped", "camera", id)
	}
	return gin.H{"camera": id}, nil
}

// takeSnapshot 抓取一张截图，编码器取到首帧即退出
func (a RecordAPI) takeSnapshot(c *gin.Context, _ *struct{}) (gin.H, error) {
	id := c.Param("camera")
	cam, ok := a.conf.Cameras.Get(id)
	if !ok {
		return nil, reason.ErrNotFound.Withf("camera[%s]", id)
	}

	sup := a.recordCore.NewSupervisor(cam, ffkit.CategoryImage)
	sessionID, err := sup.Start()
	if err != nil {
		return nil, reason.ErrServer.Withf("snapshot err[%s]", err.Error())
	}
	if sessionID == "" {
		return nil, reason.ErrBadRequest.Withf("camera[%s] has no source url", id)
	}
	a.trackSnapshot(sessionID, sup)
	return gin.H{"camera": id, "path": sup.CurrentFile()}, nil
}

// trackSnapshot 登记在途截图，关闭服务时统一收尾，顺手清掉已结束的条目
func (a RecordAPI) trackSnapshot(id string, sup *record.Supervisor) {
	a.snapshots.Range(func(k string, s *record.Supervisor) bool {
		if s.State() == record.StateStopped {
			a.snapshots.Delete(k)
		}
		return true
	})
	a.snapshots.Store(id, sup)
}

// startConfiguredCameras 配置中标记录像的摄像头在服务启动时自动开录
func (a RecordAPI) startConfiguredCameras() {
	if !a.recordCore.IsEnabled() {
		return
	}
	for _, cam := range a.conf.Cameras {
		if !cam.Record {
			continue
		}
		sup := a.recordCore.NewSupervisor(cam, ffkit.CategoryRecord)
		sessionID, err := sup.Start()
		if err != nil {
			slog.Error("failed to start record at boot", "camera", cam.ID, "err", err)
			continue
		}
		if sessionID == "" {
			continue
		}
		a.sessions.Store(cam.ID, sup)
		slog.Info("record started at boot", "camera", cam.ID, "session", sessionID)
	}
}

// StopAll 停止所有录像会话与在途截图，进程退出前调用
func (a RecordAPI) StopAll() {
	a.sessions.Range(func(id string, sup *record.Supervisor) bool {
		sup.Stop()
		a.sessions.Delete(id)
		return true
	})
	a.snapshots.Range(func(id string, sup *record.Supervisor) bool {
		sup.Stop()
		a.snapshots.Delete(id)
		return true
	})
	slog.Info("all record sessions stopped")
}

// channelPlaylist 生成 HLS m3u8 播放列表
// 根据摄像头与时间范围，动态生成包含多个录像片段的 m3u8 文件
// 路径: /recordings/channels/:camera/index.m3u8?start_ms=xxx&end_ms=xxx
func (a RecordAPI) channelPlaylist(c *gin.Context) {
	camera := c.Param("camera")
	startMs, _ := strconv.ParseInt(c.Query("start_ms"), 10, 64)
	endMs, _ := strconv.ParseInt(c.Query("end_ms"), 10, 64)
	if startMs <= 0 || endMs <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": "start_ms and end_ms are required"})
		return
	}

	segments, _, err := a.recordCore.FindSegments(c.Request.Context(), &record.FindSegmentInput{
		Camera:      camera,
		PagerFilter: web.PagerFilter{Page: 1, Size: 10000},
		DateFilter:  web.DateFilter{StartMs: startMs, EndMs: endMs},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	if len(segments) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"code": 1, "msg": "no segments found in time range"})
		return
	}

	c.Header("Content-Type", "application/vnd.apple.mpegurl")
	c.Header("Cache-Control", "no-cache")
	c.String(http.StatusOK, a.generateM3U8(segments))
}

// generateM3U8 根据切片列表生成 VOD 播放列表
// 每个切片都是独立文件，时间戳从 0 开始，片段间必须加 DISCONTINUITY
// 告诉播放器重置解码器，避免时间戳不连续导致的解析错误
func (a RecordAPI) generateM3U8(segments []*record.Segment) string {
	count := len(segments)
	if count == 0 {
		return ""
	}

	// winSize=0 表示 VOD，不使用滑动窗口
	pl, err := m3u8.NewMediaPlaylist(0, uint(count))
	if err != nil {
		return ""
	}
	pl.MediaType = m3u8.VOD

	sorted := make([]*record.Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.Before(sorted[j].StartedAt.Time)
	})

	for i, seg := range sorted {
		if i > 0 {
			pl.SetDiscontinuity()
		}
		// 使用相对路径，无论通过代理还是直接访问都能正常工作
		uri := fmt.Sprintf("/static/%s", filepath.ToSlash(seg.Path))
		_ = pl.Append(uri, seg.Duration, "")
	}

	// 补上 #EXT-X-ENDLIST 标签
	pl.Close()
	return pl.String()
}
