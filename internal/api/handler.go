package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"entrysummary/internal/model"
	"entrysummary/internal/pipeline"
)

// JobReader 任务查询
type JobReader interface {
	GetJob(id string) (*model.Job, error)
	ListJobs(limit, offset int) ([]*model.Job, error)
	CountJobs() (map[model.JobStatus]int, error)
}

// Options 处理器选项
type Options struct {
	// UploadDir 非空时保存上传的原始文件
	UploadDir            string
	MaxUploadBytes       int64
	DownloadTTL          time.Duration
	ExtractionConfigured bool
	Version              string
}

// Handler API 处理器
type Handler struct {
	coordinator *pipeline.Coordinator
	jobs        JobReader
	downloads   *exportDownloadStore
	opts        Options
	startedAt   time.Time
}

// NewHandler 创建 API 处理器；jobs 可为 nil
func NewHandler(coordinator *pipeline.Coordinator, jobs JobReader, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	return &Handler{
		coordinator: coordinator,
		jobs:        jobs,
		downloads:   newExportDownloadStore(opts.DownloadTTL),
		opts:        opts,
		startedAt:   time.Now(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	router.GET("/columns", h.ListColumns)

	// 文档处理
	router.POST("/upload", h.Upload)
	router.POST("/upload/stream", h.UploadStream)
	router.POST("/process-json", h.ProcessJSONFile)
	router.POST("/process-json-data", h.ProcessJSONData)
	router.POST("/fetch-by-runid", h.FetchByRunID)

	// 处理记录
	router.GET("/jobs", h.ListJobs)
	router.GET("/jobs/:id", h.GetJob)

	// 导出下载
	router.GET("/export/download/:token", h.DownloadExport)
}
