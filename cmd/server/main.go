package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gowvp/hawk/internal/app"
	"github.com/gowvp/hawk/internal/conf"
)

// buildVersion 编译时通过 ldflags 注入
var buildVersion = "dev"

func main() {
	var confPath string
	flag.StringVar(&confPath, "conf", "configs/config.toml", "配置文件路径")
	flag.Parse()

	bc, err := conf.SetupConfig(confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	bc.BuildVersion = buildVersion

	setupLogger(bc.Debug)
	slog.Info("hawk starting", "version", buildVersion, "conf", confPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, bc); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
	slog.Info("bye")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
