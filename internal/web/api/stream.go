package api

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gowvp/hawk/internal/conf"
	"github.com/gowvp/hawk/internal/core/record"
	"github.com/gowvp/hawk/pkg/ffkit"
	"github.com/ixugo/goddd/pkg/conc"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
)

// StreamAPI 直播相关接口
type StreamAPI struct {
	recordCore record.Core
	conf       *conf.Bootstrap
	sessions   *conc.Map[string, *record.Supervisor]
}

func NewStreamAPI(core record.Core, bc *conf.Bootstrap) StreamAPI {
	return StreamAPI{
		recordCore: core,
		conf:       bc,
		sessions:   conc.NewMap[string, *record.Supervisor](),
	}
}

func RegisterStream(r gin.IRouter, api StreamAPI) {
	group := r.Group("/stream")
	{
		group.GET("/start/:camera", web.WrapH(api.startStream))
		group.GET("/stop/:session", web.WrapH(api.stopStream))
	}

	// ts 切片已是压缩媒体，仅压缩 m3u8 清单
	play := r.Group("/stream/play", gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".ts"})))
	play.GET("/*filepath", api.playStream)
}

type startStreamOutput struct {
	SessionID string `json:"session_id"`
	Playlist  string `json:"playlist"`
}

// startStream 为摄像头拉起一路 hls 转码，返回播放地址
func (a StreamAPI) startStream(c *gin.Context, _ *struct{}) (startStreamOutput, error) {
	id := c.Param("camera")
	cam, ok := a.conf.Cameras.Get(id)
	if !ok {
		return startStreamOutput{}, reason.ErrNotFound.Withf("camera[%s]", id)
	}

	sup := a.recordCore.NewSupervisor(cam, ffkit.CategoryStream)
	sessionID, err := sup.Start()
	if err != nil {
		return startStreamOutput{}, reason.ErrServer.Withf("start stream err[%s]", err.Error())
	}
	if sessionID == "" {
		// 既没有配置源地址，也没有开启测试源
		return startStreamOutput{}, reason.ErrBadRequest.Withf("camera[%s] has no source url", id)
	}

	a.sessions.Store(sessionID, sup)
	slog.InfoContext(c.Request.Context(), "stream started", "camera", id, "session", sessionID)
	return startStreamOutput{
		SessionID: sessionID,
		Playlist:  "/stream/play/" + sup.ManifestPath(),
	}, nil
}

// stopStream 停止直播会话，重复停止与未知会话均静默成功
func (a StreamAPI) stopStream(c *gin.Context, _ *struct{}) (gin.H, error) {
	id := c.Param("session")
	if sup, ok := a.sessions.Load(id); ok {
		sup.Stop()
		a.sessions.Delete(id)
		slog.InfoContext(c.Request.Context(), "stream stopped", "session", id)
	}
	return gin.H{"session_id": id}, nil
}

// playStream 提供 hls 清单与切片，按扩展名区分响应类型
func (a StreamAPI) playStream(c *gin.Context) {
	artifact, err := a.recordCore.ResolvePlayPath(c.Param("filepath"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := artifact.Check(); err != nil {
		web.Fail(c, err)
		return
	}

	// 清单内容随切片轮转不断变化，禁止缓存
	c.Header("Cache-Control", "no-cache")
	c.Header("Content-Type", artifact.ContentType)
	c.File(artifact.FilePath)
}

// StopAll 停止所有直播会话，进程退出前调用
func (a StreamAPI) StopAll() {
	a.sessions.Range(func(id string, sup *record.Supervisor) bool {
		sup.Stop()
		a.sessions.Delete(id)
		return true
	})
	slog.Info("all stream sessions stopped")
}
