package model

import "time"

// JobSource 任务来源
type JobSource string

const (
	SourceUpload   JobSource = "upload"
	SourceJSONFile JobSource = "json-file"
	SourceJSONData JobSource = "json-data"
	SourceRunID    JobSource = "run-id"
	SourceCLI      JobSource = "cli"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job 一次文档处理记录
type Job struct {
	ID               string     `db:"id" json:"id"`
	Source           JobSource  `db:"source" json:"source"`
	Filename         string     `db:"filename" json:"filename"`
	Status           JobStatus  `db:"status" json:"status"`
	RunID            string     `db:"run_id" json:"runId,omitempty"`
	Shape            string     `db:"shape" json:"shape,omitempty"`
	LineItems        int        `db:"line_items" json:"lineItems"`
	Rows             int        `db:"row_count" json:"rows"`
	ValidationStatus string     `db:"validation_status" json:"validationStatus,omitempty"`
	Error            string     `db:"error" json:"error,omitempty"`
	ExportPath       string     `db:"export_path" json:"-"`
	RawPayload       string     `db:"raw_payload" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	CompletedAt      *time.Time `db:"completed_at" json:"completedAt,omitempty"`
}

// JobOutcome 任务结束时写回的结果
type JobOutcome struct {
	Status           JobStatus
	RunID            string
	Shape            string
	LineItems        int
	Rows             int
	ValidationStatus string
	Error            string
	ExportPath       string
	RawPayload       string
}
