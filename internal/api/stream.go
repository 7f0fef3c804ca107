package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"entrysummary/internal/model"
	"entrysummary/internal/pipeline"
)

// UploadStream 上传 PDF 并以 SSE 推送处理进度
// POST /api/upload/stream
func (h *Handler) UploadStream(c *gin.Context) {
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
	h.keepUpload(file.Filename, data)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	events := h.coordinator.Stream(c.Request.Context(), pipeline.Document{
		Source:   model.SourceUpload,
		Filename: file.Filename,
		PDF:      data,
	})
	for event := range events {
		if res, ok := event.Data.(*pipeline.Result); ok && event.Type == pipeline.EventDone {
			event.Data = h.doneResponse(res, file.Filename)
		}
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// doneResponse 完成事件附带行数与下载令牌，不携带完整行
func (h *Handler) doneResponse(res *pipeline.Result, filename string) ProcessResponse {
	resp := ProcessResponse{
		Result:   res,
		Filename: filename,
		RowCount: len(res.Rows),
	}
	if res.ExportPath != "" {
		resp.DownloadToken = h.downloads.put(res.ExportPath, filepath.Base(res.ExportPath))
		resp.DownloadURL = "/api/export/download/" + resp.DownloadToken
	}
	return resp
}
