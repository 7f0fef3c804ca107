package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/ledongthuc/pdf"

	"entrysummary/internal/extraction"
	"entrysummary/internal/logger"
	"entrysummary/internal/model"
	"entrysummary/internal/parser"
	"entrysummary/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FetchByRunIDRequest 按 run_id 取结果请求
type FetchByRunIDRequest struct {
	RunID string `json:"run_id" binding:"required"`
}

// ProcessResponse 处理结果响应
type ProcessResponse struct {
	*pipeline.Result
	Filename      string            `json:"filename,omitempty"`
	Pages         int               `json:"pages,omitempty"`
	RowCount      int               `json:"rowCount"`
	Rows          []model.OutputRow `json:"rows,omitempty"`
	DownloadToken string            `json:"downloadToken,omitempty"`
	DownloadURL   string            `json:"downloadUrl,omitempty"`
}

// Upload 上传 PDF，经抽取服务处理
// POST /api/upload
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	data, err := h.readUpload(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if mt := mimetype.Detect(data); !mt.Is("application/pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("only PDF files are supported, got %s", mt.String())})
		return
	}
	pages, err := countPages(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unreadable PDF: %v", err)})
		return
	}
	h.keepUpload(file.Filename, data)

	h.process(c, pipeline.Document{
		Source:   model.SourceUpload,
		Filename: file.Filename,
		PDF:      data,
	}, pages)
}

// ProcessJSONFile 上传抽取结果 JSON 文件
// POST /api/process-json
func (h *Handler) ProcessJSONFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON file provided"})
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".json") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload a JSON file"})
		return
	}
	data, err := h.readUpload(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.process(c, pipeline.Document{
		Source:   model.SourceJSONFile,
		Filename: file.Filename,
		JSON:     data,
	}, 0)
}

// ProcessJSONData 请求体即抽取结果
// POST /api/process-json-data
func (h *Handler) ProcessJSONData(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.opts.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	if int64(len(data)) > h.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data provided"})
		return
	}

	h.process(c, pipeline.Document{
		Source:   model.SourceJSONData,
		Filename: fmt.Sprintf("cbp7501_data_%s", time.Now().Format("20060102_150405")),
		JSON:     data,
	}, 0)
}

// FetchByRunID 按 run_id 取回抽取结果并处理
// POST /api/fetch-by-runid
func (h *Handler) FetchByRunID(c *gin.Context) {
	var req FetchByRunIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RunID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}
	runID := strings.TrimSpace(req.RunID)

	h.process(c, pipeline.Document{
		Source:   model.SourceRunID,
		Filename: "run_" + runID,
		RunID:    runID,
	}, 0)
}

// process 执行流水线；?download=1 时直接返回 xlsx
func (h *Handler) process(c *gin.Context, doc pipeline.Document, pages int) {
	res, err := h.coordinator.Process(c.Request.Context(), doc, nil)
	if err != nil {
		h.writeProcessError(c, doc, err)
		return
	}

	if c.Query("download") == "1" && res.ExportPath != "" {
		name := filepath.Base(res.ExportPath)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", name))
		c.Header("Content-Type", xlsxContentType)
		c.File(res.ExportPath)
		_ = os.Remove(res.ExportPath)
		return
	}

	resp := h.doneResponse(res, doc.Filename)
	resp.Pages = pages
	resp.Rows = res.Rows
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) writeProcessError(c *gin.Context, doc pipeline.Document, err error) {
	var apiErr *extraction.APIError
	switch {
	case errors.Is(err, parser.ErrInvalidPayload), errors.Is(err, pipeline.ErrEmptyDocument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrRunPending):
		c.JSON(http.StatusAccepted, gin.H{
			"error":   err.Error(),
			"run_id":  doc.RunID,
			"message": "Workflow found but may not be completed yet",
		})
	case errors.Is(err, extraction.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "Could not retrieve results from any endpoint",
			"run_id":     doc.RunID,
			"suggestion": "Download the JSON from the workflow dashboard and use /api/process-json",
		})
	case errors.Is(err, pipeline.ErrNoExtractor):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, extraction.ErrWorkflowFailed),
		errors.Is(err, extraction.ErrPollTimeout),
		errors.Is(err, extraction.ErrNoRunID),
		errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) readUpload(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > h.opts.MaxUploadBytes {
		return nil, fmt.Errorf("file too large: %d bytes (limit %d)", file.Size, h.opts.MaxUploadBytes)
	}
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > h.opts.MaxUploadBytes {
		return nil, fmt.Errorf("file too large (limit %d bytes)", h.opts.MaxUploadBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}
	return data, nil
}

// keepUpload 保存上传原文件，失败只影响留档
func (h *Handler) keepUpload(filename string, data []byte) {
	if h.opts.UploadDir == "" {
		return
	}
	name := time.Now().Format("20060102_150405_") + filepath.Base(filename)
	path := filepath.Join(h.opts.UploadDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Warn("keep upload failed", "path", path, "err", err)
	}
}

// countPages 读取 PDF 页数
func countPages(data []byte) (n int, err error) {
	defer func() {
		// 损坏的 PDF 可能在解析中 panic
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}
