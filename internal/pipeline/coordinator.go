package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"entrysummary/internal/audit"
	"entrysummary/internal/exporter"
	"entrysummary/internal/extraction"
	"entrysummary/internal/logger"
	"entrysummary/internal/metrics"
	"entrysummary/internal/model"
	"entrysummary/internal/parser"
)

var (
	// ErrEmptyDocument 文档没有内容
	ErrEmptyDocument = errors.New("document is empty")
	// ErrNoExtractor 未配置抽取服务
	ErrNoExtractor = errors.New("extraction service not configured")
	// ErrRunPending 按 run_id 查询到的 run 尚未完成
	ErrRunPending = errors.New("extraction run not completed")
)

// Extractor 抽取服务
type Extractor interface {
	Run(ctx context.Context, pdf []byte) (*extraction.Result, error)
	FetchRun(ctx context.Context, runID string) (*extraction.FetchResult, error)
}

// JobStore 任务记录
type JobStore interface {
	CreateJob(job *model.Job) error
	FinishJob(id string, out model.JobOutcome) error
}

// Document 待处理文档：PDF、抽取结果 JSON 或 run_id 三者之一
type Document struct {
	Source   model.JobSource
	Filename string
	PDF      []byte
	JSON     []byte
	RunID    string
}

// Result 处理结果
type Result struct {
	JobID      string                `json:"jobId"`
	RunID      string                `json:"runId,omitempty"`
	Entry      *model.CanonicalEntry `json:"-"`
	Rows       []model.OutputRow     `json:"-"`
	Shape      parser.ShapeReport    `json:"shape"`
	Expand     parser.ExpandReport   `json:"expand"`
	Validation *audit.Report         `json:"validation"`
	ExportPath string                `json:"-"`
	Elapsed    time.Duration         `json:"elapsed"`
}

// Options 流水线选项
type Options struct {
	Expander  *parser.Expander
	Audit     audit.Options
	SheetName string
	// ExportDir 非空时把导出行写成 xlsx
	ExportDir string
	// RawDir 非空时保存抽取结果原文
	RawDir        string
	MaxConcurrent int
}

// Coordinator 文档处理协调器：抽取、形态归一、展开、校验、导出、记录
type Coordinator struct {
	extractor Extractor
	store     JobStore
	metrics   *metrics.Metrics
	opts      Options
	newID     func() string
}

// NewCoordinator 创建协调器；extractor、store、metrics 均可为 nil
func NewCoordinator(extractor Extractor, store JobStore, m *metrics.Metrics, opts Options) *Coordinator {
	if opts.Expander == nil {
		opts.Expander = parser.NewExpander()
	}
	if opts.Audit.Schema.Len() == 0 {
		opts.Audit = audit.DefaultOptions()
		opts.Audit.Schema = opts.Expander.Schema()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}
	return &Coordinator{
		extractor: extractor,
		store:     store,
		metrics:   m,
		opts:      opts,
		newID:     uuid.NewString,
	}
}

// Options 当前选项
func (c *Coordinator) Options() Options {
	return c.opts
}

// Stream 异步处理，返回进度通道；最后一个事件为 done 或 error
// 中间进度在通道满时丢弃，终止事件阻塞发送直到被读取或 ctx 结束。
func (c *Coordinator) Stream(ctx context.Context, doc Document) <-chan ProgressEvent {
	ch := make(chan ProgressEvent, streamBuffer)
	go func() {
		defer close(ch)
		res, err := c.Process(ctx, doc, ch)
		if err != nil {
			sendFinal(ctx, ch, ProgressEvent{Type: EventError, Message: err.Error(), Timestamp: time.Now()})
			return
		}
		if !sendFinal(ctx, ch, ProgressEvent{Type: EventDone, Message: "处理完成", Data: res, Timestamp: time.Now()}) {
			logger.Warn("stream consumer gone before done event", "job", res.JobID, "export", res.ExportPath)
		}
	}()
	return ch
}

// Process 同步处理一个文档；progress 可为 nil
func (c *Coordinator) Process(ctx context.Context, doc Document, progress chan<- ProgressEvent) (*Result, error) {
	start := time.Now()
	res := &Result{JobID: c.newID(), RunID: doc.RunID}
	log := logger.With("job", res.JobID, "source", doc.Source, "file", doc.Filename)

	if c.store != nil {
		job := &model.Job{ID: res.JobID, Source: doc.Source, Filename: doc.Filename, RunID: doc.RunID}
		if err := c.store.CreateJob(job); err != nil {
			log.Warn("create job record failed", "err", err)
		}
	}
	sendProgress(progress, ProgressEvent{Type: EventStart, Message: "开始处理", Data: res.JobID, Timestamp: time.Now()})

	raw, err := c.rawPayload(ctx, doc, res, progress)
	if err == nil {
		err = c.transform(raw, doc, res, progress)
	}
	res.Elapsed = time.Since(start)

	outcome := model.JobOutcome{
		Status:    model.JobCompleted,
		RunID:     res.RunID,
		Shape:     string(res.Shape.Shape),
		LineItems: res.Shape.LineItems,
		Rows:      len(res.Rows),
	}
	if res.Validation != nil {
		outcome.ValidationStatus = string(res.Validation.Status)
	}
	outcome.ExportPath = res.ExportPath
	if err != nil {
		outcome.Status = model.JobFailed
		outcome.Error = err.Error()
		log.Error("document processing failed", "err", err, "elapsed", res.Elapsed)
	} else {
		log.Info("document processed",
			"shape", res.Shape.Shape,
			"line_items", res.Shape.LineItems,
			"rows", len(res.Rows),
			"validation", outcome.ValidationStatus,
			"elapsed", res.Elapsed)
	}
	if c.store != nil {
		if ferr := c.store.FinishJob(res.JobID, outcome); ferr != nil {
			log.Warn("finish job record failed", "err", ferr)
		}
	}
	c.metrics.ObserveDocument(string(doc.Source), string(outcome.Status), len(res.Rows), res.Elapsed)

	return res, err
}

// rawPayload 取得抽取结果原文
func (c *Coordinator) rawPayload(ctx context.Context, doc Document, res *Result, progress chan<- ProgressEvent) ([]byte, error) {
	switch {
	case len(doc.JSON) > 0:
		return doc.JSON, nil

	case len(doc.PDF) > 0:
		if c.extractor == nil {
			return nil, ErrNoExtractor
		}
		sendProgress(progress, ProgressEvent{Type: EventExtract, Message: "提交抽取服务", Timestamp: time.Now()})
		out, err := c.extractor.Run(ctx, doc.PDF)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", doc.Filename, err)
		}
		res.RunID = out.RunID
		c.metrics.ObservePolls(out.Attempts)
		c.keepRaw(res.JobID, out.Output)
		return out.Output, nil

	case strings.TrimSpace(doc.RunID) != "":
		if c.extractor == nil {
			return nil, ErrNoExtractor
		}
		sendProgress(progress, ProgressEvent{Type: EventExtract, Message: "按 run_id 查询结果", Timestamp: time.Now()})
		out, err := c.extractor.FetchRun(ctx, doc.RunID)
		if err != nil {
			return nil, err
		}
		if !out.Completed {
			return nil, fmt.Errorf("%w: status %q", ErrRunPending, out.Status)
		}
		c.keepRaw(res.JobID, out.Data)
		return out.Data, nil
	}
	return nil, ErrEmptyDocument
}

// transform 形态归一 → 展开 → 校验 → 导出
func (c *Coordinator) transform(raw []byte, doc Document, res *Result, progress chan<- ProgressEvent) error {
	entry, shape, err := parser.NormalizeJSON(raw)
	if err != nil {
		return err
	}
	res.Entry = entry
	res.Shape = shape
	sendProgress(progress, ProgressEvent{Type: EventNormalized, Message: "识别返回形态", Data: shape, Timestamp: time.Now()})

	rows, expand := c.opts.Expander.ExpandWithReport(entry)
	res.Rows = rows
	res.Expand = expand
	c.metrics.ObserveSkipped(expand.InvoiceHeadersSkipped, expand.NoiseSkipped)
	logger.Debug("expanded entry",
		"job", res.JobID,
		"items_in", expand.ItemsIn,
		"items_kept", expand.ItemsKept,
		"invoice_headers", expand.InvoiceHeadersSkipped,
		"noise", expand.NoiseSkipped,
		"rows", expand.Rows)
	sendProgress(progress, ProgressEvent{Type: EventExpanded, Message: "展开明细", Data: expand, Timestamp: time.Now()})

	res.Validation = audit.Validate(entry, rows, c.opts.Audit)
	for _, w := range res.Validation.Warnings {
		logger.Debug("validation warning", "job", res.JobID, "warning", w)
	}

	if c.opts.ExportDir != "" && len(rows) > 0 {
		path := filepath.Join(c.opts.ExportDir, exportName(doc.Filename, res.JobID))
		err := exporter.SaveExcel(path, rows, exporter.Options{
			SheetName: c.opts.SheetName,
			Schema:    c.opts.Expander.Schema(),
			Progress: func(e exporter.ProgressEvent) {
				sendProgress(progress, ProgressEvent{Type: EventExport, Message: e.Stage, Data: e.Percent, Timestamp: time.Now()})
			},
		})
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		res.ExportPath = path
	}
	return nil
}

func (c *Coordinator) keepRaw(jobID string, data []byte) {
	if c.opts.RawDir == "" || len(data) == 0 {
		return
	}
	path := filepath.Join(c.opts.RawDir, jobID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Warn("keep raw payload failed", "path", path, "err", err)
	}
}

// exportName 原文件名（去扩展名）+ 任务 ID 前 8 位
func exportName(filename, jobID string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "entry_summary"
	}
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s.xlsx", base, short)
}
