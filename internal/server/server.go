package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"entrysummary/internal/api"
	"entrysummary/internal/config"
	"entrysummary/internal/logger"
	"entrysummary/internal/metrics"
	"entrysummary/internal/pipeline"
	"entrysummary/internal/store"
)

// Version 服务版本
const Version = "3.5.10"

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	http    *http.Server
	store   *store.Store
	metrics *metrics.Metrics
	api     *api.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	sqliteStore, err := store.New(filepath.Join(dataDir, "entrysummary.db"))
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	opts, client, err := pipeline.FromConfig(cfg, dataDir)
	if err != nil {
		_ = sqliteStore.Close()
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Server.EnableMetrics {
		m = metrics.New()
	}
	// 未配置 API key 时不挂抽取服务，PDF 与 run_id 请求直接返回 503
	var extractor pipeline.Extractor
	if client.Configured() {
		extractor = client
	}
	coordinator := pipeline.NewCoordinator(extractor, sqliteStore, m, opts)

	apiHandler := api.NewHandler(coordinator, sqliteStore, api.Options{
		UploadDir:            filepath.Join(dataDir, config.DirUploads),
		MaxUploadBytes:       int64(cfg.Server.MaxUploadMB) << 20,
		DownloadTTL:          cfg.Excel.DownloadTTL.Duration,
		ExtractionConfigured: client.Configured(),
		Version:              Version,
	})

	s := &Server{
		router:  gin.New(),
		store:   sqliteStore,
		metrics: m,
		api:     apiHandler,
	}
	s.setupRoutes(cfg.Server.DevMode)

	if !client.Configured() {
		logger.Warn("extraction API key not set; PDF upload and run_id fetch are disabled")
	}
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool) {
	s.router.Use(gin.Recovery(), requestLogger())

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiGroup := s.router.Group("/api")
	{
		s.api.RegisterRoutes(apiGroup)
	}

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "CBP 7501 entry summary normalizer",
			"version": Version,
			"devMode": devMode,
			"api":     "/api/status",
		})
	})
}

// requestLogger 请求日志（替代 gin 默认 Logger）
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，Shutdown 后返回 nil
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接收请求并关闭数据库
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.http != nil {
		errs = append(errs, s.http.Shutdown(ctx))
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
