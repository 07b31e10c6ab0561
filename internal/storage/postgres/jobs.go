package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/user"
)

const jobColumns = `id, category, job_type, title, description, budget_min, budget_max,
	latitude, longitude, address, status, selected_provider_id, deadline, created_at, updated_at`

// jobColumnsJ is the same column list qualified for queries that join the
// jobs table as j.
const jobColumnsJ = `j.id, j.category, j.job_type, j.title, j.description, j.budget_min, j.budget_max,
	j.latitude, j.longitude, j.address, j.status, j.selected_provider_id, j.deadline, j.created_at, j.updated_at`

func scanJob(row interface{ Scan(...any) error }) (job.JobResponse, error) {
	var (
		j        job.JobResponse
		provider sql.NullInt64
		deadline sql.NullTime
	)
	err := row.Scan(
		&j.Id, &j.Category, &j.JobType, &j.Title, &j.Description,
		&j.BudgetMin, &j.BudgetMax, &j.Latitude, &j.Longitude, &j.Address,
		&j.Status, &provider, &deadline, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return job.JobResponse{}, err
	}
	if provider.Valid {
		j.SelectedProviderId = &provider.Int64
	}
	if deadline.Valid {
		d := deadline.Time.Format("2006-01-02")
		j.Deadline = &d
	}
	return j, nil
}

func (s *Storage) SaveJob(req job.JobRequest) (job.JobResponse, error) {
	const op = "storage.postgres.SaveJob"

	consumer, err := s.FetchUser(req.CreatorUsername)
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if consumer.Role != user.RoleConsumer {
		return job.JobResponse{}, fmt.Errorf("%s: %w: only consumers can post jobs", op, ErrForbidden)
	}
	if req.BudgetMin > req.BudgetMax {
		return job.JobResponse{}, fmt.Errorf("%s: %w: budget_min must not exceed budget_max", op, ErrBadRequest)
	}

	var deadline sql.NullTime
	if req.Deadline != "" {
		d, err := time.Parse("2006-01-02", req.Deadline)
		if err != nil {
			return job.JobResponse{}, fmt.Errorf("%s: %w: invalid deadline", op, ErrBadRequest)
		}
		deadline = sql.NullTime{Time: d, Valid: true}
	}

	row := s.db.QueryRow(`
	INSERT INTO jobs (consumer_id, category, job_type, title, description,
		budget_min, budget_max, latitude, longitude, address, deadline)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING `+jobColumns+`
	`, consumer.Id, req.Category, req.JobType, req.Title, req.Description,
		req.BudgetMin, req.BudgetMax, req.Latitude, req.Longitude, req.Address, deadline)

	j, err := scanJob(row)
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}

// ReadJobs lists jobs newest first with optional status, category and
// job-type filters. Empty filter values match everything.
func (s *Storage) ReadJobs(status, category, jobType string, limit, offset int) ([]job.JobResponse, error) {
	const op = "storage.postgres.ReadJobs"
	result := make([]job.JobResponse, 0)

	rows, err := s.db.Query(`
	SELECT `+jobColumns+`
	FROM jobs
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = '' OR category = $2)
	  AND ($3 = '' OR job_type = $3)
	ORDER BY created_at DESC
	LIMIT $4
	OFFSET $5
	`, status, category, jobType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, j)
	}

	return result, nil
}

func (s *Storage) ReadMyJobs(username string, limit, offset int) ([]job.JobResponse, error) {
	const op = "storage.postgres.ReadMyJobs"
	result := make([]job.JobResponse, 0)

	rows, err := s.db.Query(`
	SELECT `+jobColumnsJ+`
	FROM jobs j
	INNER JOIN users u ON u.id = j.consumer_id
	WHERE u.username = $1
	ORDER BY j.created_at DESC
	LIMIT $2
	OFFSET $3
	`, username, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, j)
	}

	return result, nil
}

func (s *Storage) ReadJob(jobId int64) (job.JobResponse, error) {
	const op = "storage.postgres.ReadJob"

	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobId)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return job.JobResponse{}, fmt.Errorf("%s: %w: job not found", op, ErrNotFound)
	}
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}

// ReadJobForOwner fetches a job only when the caller owns it. Missing and
// not-owned jobs are indistinguishable to the caller.
func (s *Storage) ReadJobForOwner(jobId int64, username string) (job.JobResponse, error) {
	const op = "storage.postgres.ReadJobForOwner"

	row := s.db.QueryRow(`
	SELECT `+jobColumnsJ+`
	FROM jobs j
	INNER JOIN users u ON u.id = j.consumer_id
	WHERE j.id = $1 AND u.username = $2
	`, jobId, username)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return job.JobResponse{}, fmt.Errorf("%s: %w: job not found or you do not have permission", op, ErrNotFound)
	}
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}

// UpdateJobStatus applies an owner-driven status change. In strict mode the
// transition table is enforced; in permissive mode any enumerated value is
// accepted, matching the legacy behavior.
func (s *Storage) UpdateJobStatus(jobId int64, newStatus job.Status, username string) (job.JobResponse, error) {
	const op = "storage.postgres.UpdateJobStatus"

	tx, err := s.db.Begin()
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var current job.Status
	err = tx.QueryRow(`
	SELECT j.status
	FROM jobs j
	INNER JOIN users u ON u.id = j.consumer_id
	WHERE j.id = $1 AND u.username = $2
	FOR UPDATE OF j
	`, jobId, username).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return job.JobResponse{}, fmt.Errorf("%s: %w: job not found or you do not have permission", op, ErrNotFound)
	}
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.strictStatus && !job.IsTransitionAllowed(current, newStatus) {
		return job.JobResponse{}, fmt.Errorf("%s: %w: cannot move job from %s to %s", op, ErrConflict, current, newStatus)
	}

	row := tx.QueryRow(`
	UPDATE jobs
	SET status = $1, updated_at = CURRENT_TIMESTAMP
	WHERE id = $2
	RETURNING `+jobColumns+`
	`, newStatus, jobId)
	j, err := scanJob(row)
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}
