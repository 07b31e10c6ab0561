package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sonam1711/innerve-mistribazaar/internal/models/bid"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/user"
)

const acceptanceColumnsA = `a.id, a.job_id, a.mistri_id, u.name, a.status, a.note, a.created_at`

func scanAcceptance(row interface{ Scan(...any) error }) (bid.AcceptanceResponse, error) {
	var a bid.AcceptanceResponse
	err := row.Scan(&a.Id, &a.JobId, &a.MistriId, &a.MistriName, &a.Status, &a.Note, &a.CreatedAt)
	return a, err
}

// SaveAcceptance records a mistri's direct accept/reject response to a job.
// Accepting requires an OPEN JOB-category job; a rejection is recorded
// regardless, matching how the marketplace has always treated declines. One
// response per (job, mistri) pair, enforced by the composite unique key.
func (s *Storage) SaveAcceptance(jobId int64, username string, status bid.Status, note string) (bid.AcceptanceResponse, error) {
	const op = "storage.postgres.SaveAcceptance"

	mistri, err := s.FetchUser(username)
	if err != nil {
		return bid.AcceptanceResponse{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if mistri.Role != user.RoleMistri {
		return bid.AcceptanceResponse{}, fmt.Errorf("%s: %w: only mistris can respond to jobs directly", op, ErrForbidden)
	}

	j, err := s.ReadJob(jobId)
	if err != nil {
		return bid.AcceptanceResponse{}, fmt.Errorf("%s: %w: job not found", op, ErrNotFound)
	}

	if status == bid.StatusAccepted {
		if j.Category != string(job.CategoryJob) {
			return bid.AcceptanceResponse{}, fmt.Errorf("%s: %w: only JOB category jobs can be accepted by mistri", op, ErrBadRequest)
		}
		if j.Status != string(job.StatusOpen) {
			return bid.AcceptanceResponse{}, fmt.Errorf("%s: %w: this job is no longer open", op, ErrConflict)
		}
	}

	var exists bool
	err = s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM job_acceptances WHERE job_id = $1 AND mistri_id = $2)`,
		jobId, mistri.Id).Scan(&exists)
	if err != nil {
		return bid.AcceptanceResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return bid.AcceptanceResponse{}, fmt.Errorf("%s: %w: you have already responded to this job", op, ErrConflict)
	}

	var a bid.AcceptanceResponse
	err = s.db.QueryRow(`
	INSERT INTO job_acceptances (job_id, mistri_id, status, note)
	VALUES ($1, $2, $3, $4)
	RETURNING id, job_id, mistri_id, status, note, created_at
	`, jobId, mistri.Id, status, note).Scan(
		&a.Id, &a.JobId, &a.MistriId, &a.Status, &a.Note, &a.CreatedAt,
	)
	if isUniqueViolation(err) {
		return bid.AcceptanceResponse{}, fmt.Errorf("%s: %w: you have already responded to this job", op, ErrConflict)
	}
	if err != nil {
		return bid.AcceptanceResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	a.MistriName = mistri.Name
	return a, nil
}

// ReadAcceptances lists acceptances visible to the caller: consumers see
// responses on their own jobs, mistris see their own responses. jobId 0
// means no job filter.
func (s *Storage) ReadAcceptances(username string, jobId int64, limit, offset int) ([]bid.AcceptanceResponse, error) {
	const op = "storage.postgres.ReadAcceptances"

	caller, err := s.FetchUser(username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	var query string
	switch caller.Role {
	case user.RoleConsumer:
		query = `
		SELECT ` + acceptanceColumnsA + `
		FROM job_acceptances a
		INNER JOIN users u ON u.id = a.mistri_id
		INNER JOIN jobs j ON j.id = a.job_id
		WHERE j.consumer_id = $1 AND ($2 = 0 OR a.job_id = $2)
		ORDER BY a.created_at DESC
		LIMIT $3
		OFFSET $4`
	case user.RoleMistri:
		query = `
		SELECT ` + acceptanceColumnsA + `
		FROM job_acceptances a
		INNER JOIN users u ON u.id = a.mistri_id
		WHERE a.mistri_id = $1 AND ($2 = 0 OR a.job_id = $2)
		ORDER BY a.created_at DESC
		LIMIT $3
		OFFSET $4`
	default:
		return []bid.AcceptanceResponse{}, nil
	}

	result := make([]bid.AcceptanceResponse, 0)
	rows, err := s.db.Query(query, caller.Id, jobId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAcceptance(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}

	return result, nil
}

// SelectMistri assigns a job to the mistri behind an ACCEPTED acceptance on
// behalf of the job owner. Assignment and the status change land in one
// transaction; the job row is locked so concurrent selections serialize.
func (s *Storage) SelectMistri(jobId, acceptanceId int64, username string) (job.JobResponse, error) {
	const op = "storage.postgres.SelectMistri"

	tx, err := s.db.Begin()
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var (
		jobStatus string
		owner     string
	)
	err = tx.QueryRow(`
	SELECT j.status, u.username
	FROM jobs j
	INNER JOIN users u ON u.id = j.consumer_id
	WHERE j.id = $1
	FOR UPDATE OF j
	`, jobId).Scan(&jobStatus, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return job.JobResponse{}, fmt.Errorf("%s: %w: job not found or you do not have permission", op, ErrNotFound)
	}
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	if owner != username {
		return job.JobResponse{}, fmt.Errorf("%s: %w: job not found or you do not have permission", op, ErrNotFound)
	}

	var mistriId int64
	err = tx.QueryRow(`
	SELECT mistri_id
	FROM job_acceptances
	WHERE id = $1 AND job_id = $2 AND status = 'ACCEPTED'
	`, acceptanceId, jobId).Scan(&mistriId)
	if errors.Is(err, sql.ErrNoRows) {
		return job.JobResponse{}, fmt.Errorf("%s: %w: job acceptance not found or not in accepted state", op, ErrNotFound)
	}
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if jobStatus != string(job.StatusOpen) {
		return job.JobResponse{}, fmt.Errorf("%s: %w: this job is no longer open", op, ErrConflict)
	}

	row := tx.QueryRow(`
	UPDATE jobs
	SET selected_provider_id = $1, status = 'IN_PROGRESS', updated_at = CURRENT_TIMESTAMP
	WHERE id = $2
	RETURNING `+jobColumns+`
	`, mistriId, jobId)
	j, err := scanJob(row)
	if err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return job.JobResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}
