package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gowvp/hawk/internal/conf"
	"github.com/gowvp/hawk/internal/web/api"
)

// Server 聚合 http 服务与业务对象，负责启停
type Server struct {
	http *http.Server
	uc   *api.Usecase
}

func NewServer(bc *conf.Bootstrap, uc *api.Usecase, handler http.Handler) (*Server, func()) {
	s := Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", bc.Server.HTTP.Port),
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		uc: uc,
	}
	return &s, s.stopSessions
}

// Start 阻塞运行，直到 Shutdown 或监听失败
func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// stopSessions 停止所有编码进程，避免退出后残留孤儿进程
func (s *Server) stopSessions() {
	s.uc.StreamAPI.StopAll()
	s.uc.RecordAPI.StopAll()
}

// Run 构建依赖并运行服务，ctx 取消时优雅退出
func Run(ctx context.Context, bc *conf.Bootstrap) error {
	server, cleanup, err := wireApp(bc)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
