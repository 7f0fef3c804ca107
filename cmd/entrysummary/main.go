package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"entrysummary/internal/config"
	"entrysummary/internal/logger"
	"entrysummary/internal/server"
)

var (
	port    = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode = flag.Bool("dev", false, "开发模式")
	dataDir = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  CBP 7501 Entry Summary 归一化服务")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败，使用默认配置: %v\n", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
		cfg.Log.Level = "debug"
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	logger.Setup(cfg.Log.Level, cfg.Log.JSON)
	if info.ConfigPath != "" {
		logger.Info("config loaded", "path", info.ConfigPath)
	}
	if info.EnvFile != "" {
		logger.Info("env file loaded", "path", info.EnvFile)
	}

	// 确保数据目录存在
	dir, err := config.EnsureDataDir(cfg)
	if err != nil {
		logger.Error("create data dir failed", "err", err)
		os.Exit(1)
	}
	logger.Info("data dir ready", "path", dir)

	// 创建服务器
	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Error("init server failed", "err", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	// 启动服务器
	go func() {
		logger.Info("server listening", "url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port))
		if err := srv.Run(addr); err != nil {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	fmt.Println("\n按 Ctrl+C 停止服务...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
