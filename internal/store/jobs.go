package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entrysummary/internal/model"
)

// ErrJobNotFound 任务不存在
var ErrJobNotFound = errors.New("job not found")

const jobColumns = `id, source, filename, status, run_id, shape, line_items, row_count,
	validation_status, error, export_path, raw_payload, created_at, completed_at`

// CreateJob 创建处理中的任务记录
func (s *Store) CreateJob(job *model.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = model.JobProcessing
	}
	_, err := s.db.NamedExec(`
		INSERT INTO jobs (id, source, filename, status, run_id, created_at)
		VALUES (:id, :source, :filename, :status, :run_id, :created_at)
	`, job)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// FinishJob 写回任务结果
func (s *Store) FinishJob(id string, out model.JobOutcome) error {
	res, err := s.db.Exec(`
		UPDATE jobs SET
			status = ?,
			run_id = CASE WHEN ? <> '' THEN ? ELSE run_id END,
			shape = ?,
			line_items = ?,
			row_count = ?,
			validation_status = ?,
			error = ?,
			export_path = ?,
			raw_payload = ?,
			completed_at = ?
		WHERE id = ?
	`, out.Status, out.RunID, out.RunID, out.Shape, out.LineItems, out.Rows,
		out.ValidationStatus, out.Error, out.ExportPath, out.RawPayload, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// GetJob 按 ID 查询任务
func (s *Store) GetJob(id string) (*model.Job, error) {
	var job model.Job
	err := s.db.Get(&job, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs 按创建时间倒序分页查询
func (s *Store) ListJobs(limit, offset int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	jobs := []*model.Job{}
	err := s.db.Select(&jobs, `
		SELECT `+jobColumns+` FROM jobs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// CountJobs 按状态统计任务数
func (s *Store) CountJobs() (map[model.JobStatus]int, error) {
	rows := []struct {
		Status model.JobStatus `db:"status"`
		N      int             `db:"n"`
	}{}
	if err := s.db.Select(&rows, `SELECT status, COUNT(*) AS n FROM jobs GROUP BY status`); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	out := make(map[model.JobStatus]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// PurgeBefore 删除早于 t 的已结束任务，返回删除条数
func (s *Store) PurgeBefore(t time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM jobs WHERE status <> ? AND created_at < ?`, model.JobProcessing, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}
	return res.RowsAffected()
}
