package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobRecord is one conversion run.
type JobRecord struct {
	ID          uuid.UUID
	ProjectName string
	Namespace   string
	Source      string
	Status      string
	Successful  int
	Failed      int
	Large       int
	Warning     string
	ArtifactURL string
	DurationMS  int64
	CreatedAt   time.Time
}

// UnitRecord is the outcome for a single source file within a job.
type UnitRecord struct {
	ID       uuid.UUID
	JobID    uuid.UUID
	FileName string
	Kind     string
	Status   string
	Detail   string
}

// RecordJob writes a job and its per-file outcomes in one transaction.
// When job.ID is unset a new ID is generated.
func (s *Store) RecordJob(ctx context.Context, job JobRecord, units []UnitRecord) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	jobID := job.ID
	if jobID == uuid.Nil {
		jobID = uuid.New()
	}

	// 1. Insert job
	_, err = tx.Exec(ctx, `
		INSERT INTO conversion_jobs (id, project_name, namespace, source, status, successful_files, failed_files, large_files, warning, artifact_url, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())`,
		jobID, job.ProjectName, job.Namespace, job.Source, job.Status, job.Successful, job.Failed, job.Large, job.Warning, job.ArtifactURL, job.DurationMS,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert job: %w", err)
	}

	// 2. Insert per-file units
	for _, u := range units {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversion_units (id, job_id, file_name, kind, status, detail)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), jobID, u.FileName, u.Kind, u.Status, u.Detail,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert unit: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}

	return jobID, nil
}

// RecentJobs lists the newest jobs first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_name, namespace, source, status, successful_files, failed_files, large_files, warning, artifact_url, duration_ms, created_at
		FROM conversion_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		var j JobRecord
		if err := rows.Scan(&j.ID, &j.ProjectName, &j.Namespace, &j.Source, &j.Status, &j.Successful, &j.Failed, &j.Large, &j.Warning, &j.ArtifactURL, &j.DurationMS, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// JobByID fetches a single job.
func (s *Store) JobByID(ctx context.Context, id uuid.UUID) (*JobRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, project_name, namespace, source, status, successful_files, failed_files, large_files, warning, artifact_url, duration_ms, created_at
		FROM conversion_jobs WHERE id = $1`, id)

	var j JobRecord
	err := row.Scan(&j.ID, &j.ProjectName, &j.Namespace, &j.Source, &j.Status, &j.Successful, &j.Failed, &j.Large, &j.Warning, &j.ArtifactURL, &j.DurationMS, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// UnitsForJob lists the per-file outcomes recorded for a job.
func (s *Store) UnitsForJob(ctx context.Context, jobID uuid.UUID) ([]UnitRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, file_name, kind, status, detail
		FROM conversion_units WHERE job_id = $1 ORDER BY file_name`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var units []UnitRecord
	for rows.Next() {
		var u UnitRecord
		if err := rows.Scan(&u.ID, &u.JobID, &u.FileName, &u.Kind, &u.Status, &u.Detail); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}
