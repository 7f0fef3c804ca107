package extraction

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"entrysummary/internal/config"
	"entrysummary/internal/logger"
)

//go:embed instructions.txt
var DefaultInstructions string

var (
	// ErrWorkflowFailed 工作流返回失败状态
	ErrWorkflowFailed = errors.New("extraction workflow failed")
	// ErrPollTimeout 轮询次数用尽仍未拿到结果
	ErrPollTimeout = errors.New("extraction polling timed out")
	// ErrNoRunID 响应既无结果也无 run_id，或调用方未提供 run_id
	ErrNoRunID = errors.New("extraction response has no run_id")
	// ErrRunNotFound 所有查询端点都取不到该 run
	ErrRunNotFound = errors.New("extraction run not found")
)

// APIError 抽取服务返回非 200
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("extraction api error %d: %s", e.StatusCode, body)
}

// Config 客户端配置
type Config struct {
	BaseURL         string
	APIKey          string
	AgentName       string
	WorkflowID      string
	OutputVar       string
	Instructions    string
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
	// ManualDir 轮询超时前查找 {run_id}.json 的目录（人工从控制台下载的结果）
	ManualDir string
}

// ConfigFrom 由应用配置构建客户端配置；指定了指令文件时读取文件内容
func ConfigFrom(c config.ExtractionConfig, manualDir string) (Config, error) {
	cfg := Config{
		BaseURL:         c.BaseURL,
		APIKey:          c.APIKey,
		AgentName:       c.AgentName,
		WorkflowID:      c.WorkflowID,
		OutputVar:       c.OutputVar,
		Instructions:    DefaultInstructions,
		RequestTimeout:  c.RequestTimeout.Duration,
		PollInterval:    c.PollInterval.Duration,
		MaxPollAttempts: c.MaxPollAttempts,
		ManualDir:       manualDir,
	}
	if p := strings.TrimSpace(c.InstructionsFile); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			return cfg, fmt.Errorf("read instructions: %w", err)
		}
		cfg.Instructions = string(data)
	}
	return cfg, nil
}

// Result 一次抽取的结果
type Result struct {
	RunID      string
	WorkflowID string
	Status     string
	// Output 抽取结果原始 JSON，交给 parser.NormalizeJSON
	Output   []byte
	PollURL  string
	Attempts int
}

// Client A79 工作流 API 客户端
type Client struct {
	http    *resty.Client
	cfg     Config
	baseURL string
	apiRoot string
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 120
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 300 * time.Second
	}
	if cfg.Instructions == "" {
		cfg.Instructions = DefaultInstructions
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		http:    httpClient,
		cfg:     cfg,
		baseURL: base,
		apiRoot: strings.TrimSuffix(base, "/public/workflow"),
	}
}

// Configured 是否配置了 API key
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Run 提交 PDF 并等待抽取结果
func (c *Client) Run(ctx context.Context, pdf []byte) (*Result, error) {
	url := c.baseURL + "/run"
	body := map[string]any{
		"agent_inputs": map[string]any{
			"pdf_document":        base64.StdEncoding.EncodeToString(pdf),
			"custom_instructions": c.cfg.Instructions,
		},
	}
	if c.cfg.WorkflowID != "" {
		url = fmt.Sprintf("%s/%s/run", c.baseURL, c.cfg.WorkflowID)
	} else {
		body["agent_name"] = c.cfg.AgentName
	}

	logger.Info("submitting document for extraction", "url", url, "bytes", len(pdf), "workflow", c.cfg.WorkflowID)
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(url)
	if err != nil {
		return nil, fmt.Errorf("submit extraction: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	data := resp.Body()
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("submit extraction: invalid JSON response")
	}

	root := gjson.ParseBytes(data)
	status := root.Get("status").String()
	output := root.Get("output")

	if output.Exists() && status == "completed" {
		return &Result{Status: status, Output: outputBytes(output)}, nil
	}
	if isPresent(output) && (output.IsObject() || output.IsArray()) {
		return &Result{Status: status, Output: []byte(output.Raw)}, nil
	}

	runID := root.Get("run_id").String()
	if runID == "" {
		if looksLikeExtraction(root) {
			return &Result{Status: status, Output: data}, nil
		}
		return nil, ErrNoRunID
	}
	workflowID := root.Get("workflow_id").String()
	if workflowID == "" {
		workflowID = c.cfg.WorkflowID
	}
	logger.Info("extraction workflow started", "run_id", runID, "workflow", workflowID, "status", status)
	return c.Poll(ctx, runID, workflowID)
}

// Poll 轮询 run 状态直到完成、失败或次数用尽
func (c *Client) Poll(ctx context.Context, runID, workflowID string) (*Result, error) {
	if runID == "" {
		return nil, ErrNoRunID
	}
	outputVar := c.cfg.OutputVar
	if outputVar == "" {
		outputVar = "final_display_output"
	}
	res := &Result{
		RunID:      runID,
		WorkflowID: workflowID,
		PollURL:    fmt.Sprintf("%s/%s/status?output_var=%s", c.baseURL, runID, outputVar),
	}

	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxPollAttempts-1), retry.NewConstant(c.cfg.PollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res.Attempts++
		data, status, err := c.get(ctx, res.PollURL)
		if err != nil {
			return retry.RetryableError(err)
		}
		if status == http.StatusNotFound && res.Attempts == 1 {
			if alt, altData, ok := c.tryAlternates(ctx, runID, workflowID); ok {
				res.PollURL, data, status = alt, altData, http.StatusOK
			}
		}
		if status != http.StatusOK {
			return retry.RetryableError(fmt.Errorf("poll %s: http %d", res.PollURL, status))
		}
		return c.inspect(res, data)
	})
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ErrWorkflowFailed) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if data, ok := c.manualResult(runID); ok {
		logger.Info("using manually saved extraction result", "run_id", runID)
		res.Output = data
		res.Status = "manual"
		return res, nil
	}
	logger.Warn("extraction polling exhausted", "run_id", runID, "attempts", res.Attempts, "last_error", err)
	return nil, fmt.Errorf("%w: run %s after %d attempts", ErrPollTimeout, runID, res.Attempts)
}

var errPending = errors.New("extraction still running")

// inspect 解析一次轮询响应；拿到结果返回 nil，未完成返回可重试错误
func (c *Client) inspect(res *Result, data []byte) error {
	if !gjson.ValidBytes(data) {
		return retry.RetryableError(fmt.Errorf("poll %s: invalid JSON", res.PollURL))
	}
	root := gjson.ParseBytes(data)
	status := root.Get("status").String()
	res.Status = status
	output := root.Get("output")

	if completedStatuses[strings.ToUpper(status)] {
		if isPresent(output) {
			res.Output = outputBytes(output)
		} else {
			res.Output = data
		}
		return nil
	}

	if isPresent(output) {
		parsed := output
		if output.Type == gjson.String && gjson.Valid(output.Str) {
			parsed = gjson.Parse(output.Str)
		}
		if looksLikeExtraction(parsed) {
			res.Output = []byte(parsed.Raw)
			return nil
		}
	}
	if looksLikeExtraction(root) {
		res.Output = data
		return nil
	}

	if failedStatuses[strings.ToUpper(status)] {
		msg := root.Get("error_msg").String()
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Errorf("%w: %s", ErrWorkflowFailed, msg)
	}
	logger.Debug("extraction pending", "run_id", res.RunID, "attempt", res.Attempts, "status", status)
	return retry.RetryableError(errPending)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	resp, err := c.http.R().SetContext(reqCtx).Get(url)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body(), resp.StatusCode(), nil
}

// tryAlternates 首次轮询 404 时依次尝试备用端点
func (c *Client) tryAlternates(ctx context.Context, runID, workflowID string) (string, []byte, bool) {
	urls := []string{
		fmt.Sprintf("%s/run/%s", c.baseURL, runID),
		fmt.Sprintf("%s/%s", c.baseURL, runID),
		fmt.Sprintf("%s/run/%s/status", c.baseURL, runID),
		fmt.Sprintf("%s/workflow/cards/%s", c.apiRoot, runID),
	}
	if workflowID != "" {
		urls = append(urls,
			fmt.Sprintf("%s/%s/run/%s", c.baseURL, workflowID, runID),
			fmt.Sprintf("%s/%s/runs/%s/status", c.baseURL, workflowID, runID),
		)
	}
	for _, u := range urls {
		data, status, err := c.get(ctx, u)
		if err != nil {
			continue
		}
		if status == http.StatusOK {
			logger.Info("found working poll endpoint", "url", u)
			return u, data, true
		}
	}
	return "", nil, false
}

func (c *Client) manualResult(runID string) ([]byte, bool) {
	if c.cfg.ManualDir == "" {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(c.cfg.ManualDir, runID+".json"))
	if err != nil || !gjson.ValidBytes(data) {
		return nil, false
	}
	return data, true
}

// FetchResult 按 run_id 查询的结果
type FetchResult struct {
	Data      []byte
	Status    string
	Completed bool
	Endpoint  string
}

// FetchRun 按 run_id 依次尝试各查询端点
func (c *Client) FetchRun(ctx context.Context, runID string) (*FetchResult, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, ErrNoRunID
	}
	endpoints := []string{
		fmt.Sprintf("%s/public/workflow/runs/%s", c.apiRoot, runID),
		fmt.Sprintf("%s/public/workflow/run/%s", c.apiRoot, runID),
		fmt.Sprintf("%s/workflow/runs/%s", c.apiRoot, runID),
		fmt.Sprintf("%s/workflow/cards/%s", c.apiRoot, runID),
		fmt.Sprintf("%s/runs/%s", c.apiRoot, runID),
		fmt.Sprintf("%s/public/runs/%s", c.apiRoot, runID),
	}
	for _, u := range endpoints {
		data, status, err := c.get(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Debug("fetch run endpoint failed", "url", u, "err", err)
			continue
		}
		if status != http.StatusOK || !gjson.ValidBytes(data) {
			continue
		}
		root := gjson.ParseBytes(data)
		out := &FetchResult{Data: data, Status: root.Get("status").String(), Endpoint: u}
		if out.Status == "completed" && root.Get("output").Exists() {
			out.Data = outputBytes(root.Get("output"))
			out.Completed = true
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
}

var completedStatuses = map[string]bool{"COMPLETED": true, "SUCCEEDED": true, "FINISHED": true}

var failedStatuses = map[string]bool{"FAILED": true, "ERROR": true, "CANCELLED": true}

// outputBytes 字符串形式的 JSON 结果展开为 JSON 本身，其余保留原文
func outputBytes(r gjson.Result) []byte {
	if r.Type == gjson.String && gjson.Valid(r.Str) {
		return []byte(r.Str)
	}
	return []byte(r.Raw)
}

// isPresent 存在且非空（null、空串、空对象、空数组视为无）
func isPresent(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	}
	if r.IsArray() {
		return len(r.Array()) > 0
	}
	if r.IsObject() {
		return len(r.Map()) > 0
	}
	return true
}

// looksLikeExtraction 对象含 line_items/entry_summary/items，或数组首元素像明细行
func looksLikeExtraction(r gjson.Result) bool {
	if r.IsObject() {
		return r.Get("line_items").Exists() || r.Get("entry_summary").Exists() || r.Get("items").Exists()
	}
	if r.IsArray() {
		first := r.Get("0")
		if !first.IsObject() {
			return false
		}
		return first.Get("line_number").Exists() || first.Get("primary_hts").Exists() || first.Get("line_no").Exists()
	}
	return false
}
