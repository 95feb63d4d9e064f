package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sumire/homestead/internal/domain"
)

type jobRow struct {
	ID               string        `db:"id"`
	OwnerID          int64         `db:"owner_id"`
	Kind             string        `db:"kind"`
	Status           string        `db:"status"`
	NodeID           int64         `db:"node_id"`
	ToolID           string        `db:"tool_id"`
	BuildingID       string        `db:"building_id"`
	TargetLevel      int           `db:"target_level"`
	RecipeID         string        `db:"recipe_id"`
	Quality          string        `db:"quality"`
	ConsumedInputs   string        `db:"consumed_inputs"`
	StartedAt        int64         `db:"started_at"`
	FinishAt         int64         `db:"finish_at"`
	PausedAt         sql.NullInt64 `db:"paused_at"`
	RemainingSeconds sql.NullInt64 `db:"remaining_seconds"`
	CompletedAt      sql.NullInt64 `db:"completed_at"`
}

func (r jobRow) toDomain() (*domain.Job, error) {
	job := &domain.Job{
		ID:      r.ID,
		OwnerID: r.OwnerID,
		Kind:    domain.JobKind(r.Kind),
		Status:  domain.JobStatus(r.Status),
		Target: domain.JobTarget{
			NodeID:      r.NodeID,
			ToolID:      r.ToolID,
			BuildingID:  r.BuildingID,
			TargetLevel: r.TargetLevel,
			RecipeID:    r.RecipeID,
		},
		StartedAt: fromUnix(r.StartedAt),
		FinishAt:  fromUnix(r.FinishAt),
		Quality:   domain.Quality(r.Quality),
	}
	if r.PausedAt.Valid && r.RemainingSeconds.Valid {
		job.Pause = &domain.PauseState{
			PausedAt:         fromUnix(r.PausedAt.Int64),
			RemainingSeconds: r.RemainingSeconds.Int64,
		}
	}
	if r.CompletedAt.Valid {
		t := fromUnix(r.CompletedAt.Int64)
		job.CompletedAt = &t
	}
	if r.ConsumedInputs != "" {
		if err := json.Unmarshal([]byte(r.ConsumedInputs), &job.ConsumedInputs); err != nil {
			return nil, fmt.Errorf("decode consumed inputs of job %s: %w", r.ID, err)
		}
	}
	return job, nil
}

func pauseColumns(job domain.Job) (sql.NullInt64, sql.NullInt64) {
	if job.Pause == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: unix(job.Pause.PausedAt), Valid: true},
		sql.NullInt64{Int64: job.Pause.RemainingSeconds, Valid: true}
}

// ClaimActiveJob takes the owner's single active-job slot for jobID. It returns false, without
// error, when the owner already holds a slot. The check and the insert are one statement, so
// concurrent claims for one owner cannot both succeed.
func (q *Queries) ClaimActiveJob(ctx context.Context, ownerID int64, jobID string, kind domain.JobKind, at time.Time) (bool, error) {
	n, err := q.exec(ctx,
		`INSERT INTO active_jobs (owner_id, job_id, kind, claimed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (owner_id) DO NOTHING`,
		ownerID, jobID, string(kind), unix(at))
	if err != nil {
		return false, fmt.Errorf("claim active job for owner %d: %w", ownerID, err)
	}
	return n == 1, nil
}

// ActiveJobID returns the id of the owner's non-terminal job, or domain.ErrNoActiveJob.
func (q *Queries) ActiveJobID(ctx context.Context, ownerID int64) (string, error) {
	var id string
	err := q.get(ctx, &id, `SELECT job_id FROM active_jobs WHERE owner_id = ?`, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNoActiveJob
		}
		return "", fmt.Errorf("find active job for owner %d: %w", ownerID, err)
	}
	return id, nil
}

// ReleaseActiveJob frees the owner's slot if it still points at jobID.
func (q *Queries) ReleaseActiveJob(ctx context.Context, ownerID int64, jobID string) error {
	_, err := q.exec(ctx, `DELETE FROM active_jobs WHERE owner_id = ? AND job_id = ?`, ownerID, jobID)
	if err != nil {
		return fmt.Errorf("release active job %s for owner %d: %w", jobID, ownerID, err)
	}
	return nil
}

// CreateJob inserts a new job record.
func (q *Queries) CreateJob(ctx context.Context, job domain.Job) error {
	inputs, err := json.Marshal(job.ConsumedInputs)
	if err != nil {
		return fmt.Errorf("encode consumed inputs: %w", err)
	}
	pausedAt, remaining := pauseColumns(job)

	_, err = q.exec(ctx,
		`INSERT INTO jobs (id, owner_id, kind, status, node_id, tool_id, building_id, target_level,
		                   recipe_id, quality, consumed_inputs, started_at, finish_at, paused_at, remaining_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.OwnerID, string(job.Kind), string(job.Status),
		job.Target.NodeID, job.Target.ToolID, job.Target.BuildingID, job.Target.TargetLevel,
		job.Target.RecipeID, string(job.Quality), string(inputs),
		unix(job.StartedAt), unix(job.FinishAt), pausedAt, remaining)
	if err != nil {
		return fmt.Errorf("create job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (q *Queries) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	var row jobRow
	err := q.get(ctx, &row,
		`SELECT id, owner_id, kind, status, node_id, tool_id, building_id, target_level, recipe_id,
		        quality, consumed_inputs, started_at, finish_at, paused_at, remaining_seconds, completed_at
		 FROM jobs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find job by id %s: %w", id, err)
	}
	return row.toDomain()
}

// LastFinishedJob returns the owner's most recently completed or cancelled job, or
// domain.ErrNotFound when the owner never finished one.
func (q *Queries) LastFinishedJob(ctx context.Context, ownerID int64) (*domain.Job, error) {
	var row jobRow
	err := q.get(ctx, &row,
		`SELECT id, owner_id, kind, status, node_id, tool_id, building_id, target_level, recipe_id,
		        quality, consumed_inputs, started_at, finish_at, paused_at, remaining_seconds, completed_at
		 FROM jobs WHERE owner_id = ? AND completed_at IS NOT NULL
		 ORDER BY completed_at DESC, started_at DESC LIMIT 1`, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find last finished job for owner %d: %w", ownerID, err)
	}
	return row.toDomain()
}

// SaveJobTiming persists pause/resume bookkeeping if the stored status is still from. It
// returns false when another request already moved the job on.
func (q *Queries) SaveJobTiming(ctx context.Context, job domain.Job, from domain.JobStatus) (bool, error) {
	pausedAt, remaining := pauseColumns(job)
	n, err := q.exec(ctx,
		`UPDATE jobs SET status = ?, finish_at = ?, paused_at = ?, remaining_seconds = ?
		 WHERE id = ? AND status = ?`,
		string(job.Status), unix(job.FinishAt), pausedAt, remaining, job.ID, string(from))
	if err != nil {
		return false, fmt.Errorf("save timing of job %s: %w", job.ID, err)
	}
	return n == 1, nil
}

// FinishJob moves a non-terminal job to the terminal status to. Only one caller can win: it
// returns false when the job was already terminal.
func (q *Queries) FinishJob(ctx context.Context, jobID string, to domain.JobStatus, at time.Time, reward any) (bool, error) {
	if !to.Terminal() {
		return false, fmt.Errorf("finish job %s: %q is not a terminal status", jobID, to)
	}

	payload := ""
	if reward != nil {
		b, err := json.Marshal(reward)
		if err != nil {
			return false, fmt.Errorf("encode reward of job %s: %w", jobID, err)
		}
		payload = string(b)
	}

	n, err := q.exec(ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, reward = ?
		 WHERE id = ? AND status IN (?, ?)`,
		string(to), unix(at), payload, jobID,
		string(domain.JobStatusActive), string(domain.JobStatusPaused))
	if err != nil {
		return false, fmt.Errorf("finish job %s: %w", jobID, err)
	}
	return n == 1, nil
}
