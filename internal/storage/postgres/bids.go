package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sonam1711/innerve-mistribazaar/internal/models/bid"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"
	"github.com/sonam1711/innerve-mistribazaar/internal/recommender"
)

const bidColumnsB = `b.id, b.job_id, b.bidder_id, u.name, u.rating, b.amount,
	b.estimated_days, b.message, b.status, b.created_at`

func scanBid(row interface{ Scan(...any) error }) (bid.BidResponse, error) {
	var b bid.BidResponse
	err := row.Scan(
		&b.Id, &b.JobId, &b.BidderId, &b.BidderName, &b.BidderRating,
		&b.Amount, &b.EstimatedDays, &b.Message, &b.Status, &b.CreatedAt,
	)
	return b, err
}

// SaveBid records a bid against an OPEN PROJECT job. The amount must fall
// within the job's budget range and each bidder gets at most one bid per
// job; the composite unique key is the authority, the pre-check only makes
// the common case fail fast.
func (s *Storage) SaveBid(req bid.BidRequest, username string) (bid.BidResponse, error) {
	const op = "storage.postgres.SaveBid"

	bidder, err := s.FetchUser(username)
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if !bidder.Role.CanBid() {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: only contractors and traders can bid", op, ErrForbidden)
	}

	j, err := s.ReadJob(req.JobId)
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: job not found", op, ErrNotFound)
	}
	if j.Category != string(job.CategoryProject) {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: only PROJECT jobs accept bids", op, ErrBadRequest)
	}
	if j.Status != string(job.StatusOpen) {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: this job is no longer open for bidding", op, ErrConflict)
	}
	if req.Amount < j.BudgetMin || req.Amount > j.BudgetMax {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: bid amount must be between %.2f and %.2f",
			op, ErrBadRequest, j.BudgetMin, j.BudgetMax)
	}

	var exists bool
	err = s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM bids WHERE job_id = $1 AND bidder_id = $2)`,
		req.JobId, bidder.Id).Scan(&exists)
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: you have already submitted a bid for this job", op, ErrConflict)
	}

	var b bid.BidResponse
	err = s.db.QueryRow(`
	INSERT INTO bids (job_id, bidder_id, amount, estimated_days, message)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, job_id, bidder_id, amount, estimated_days, message, status, created_at
	`, req.JobId, bidder.Id, req.Amount, req.EstimatedDays, req.Message).Scan(
		&b.Id, &b.JobId, &b.BidderId, &b.Amount, &b.EstimatedDays, &b.Message, &b.Status, &b.CreatedAt,
	)
	if isUniqueViolation(err) {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: you have already submitted a bid for this job", op, ErrConflict)
	}
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	b.BidderName = bidder.Name
	b.BidderRating = bidder.Rating
	return b, nil
}

func (s *Storage) ReadMyBids(username string, limit, offset int) ([]bid.BidResponse, error) {
	const op = "storage.postgres.ReadMyBids"
	result := make([]bid.BidResponse, 0)

	rows, err := s.db.Query(`
	SELECT `+bidColumnsB+`
	FROM bids b
	INNER JOIN users u ON u.id = b.bidder_id
	WHERE u.username = $1
	ORDER BY b.created_at DESC
	LIMIT $2
	OFFSET $3
	`, username, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, b)
	}

	return result, nil
}

// ReadJobBids lists the bids on a job for its owner, cheapest first.
func (s *Storage) ReadJobBids(jobId int64, username string, limit, offset int) ([]bid.BidResponse, error) {
	const op = "storage.postgres.ReadJobBids"

	if _, err := s.ReadJobForOwner(jobId, username); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]bid.BidResponse, 0)
	rows, err := s.db.Query(`
	SELECT `+bidColumnsB+`
	FROM bids b
	INNER JOIN users u ON u.id = b.bidder_id
	WHERE b.job_id = $1
	ORDER BY b.amount, b.created_at DESC
	LIMIT $2
	OFFSET $3
	`, jobId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, b)
	}

	return result, nil
}

// AcceptBid accepts a bid on behalf of the job owner. The bid acceptance,
// job assignment, job status change and sibling rejections land in one
// transaction; the job row is locked so two concurrent accepts serialize and
// the loser fails the OPEN guard.
func (s *Storage) AcceptBid(bidId int64, username string) (bid.BidResponse, error) {
	const op = "storage.postgres.AcceptBid"

	tx, err := s.db.Begin()
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var (
		jobId     int64
		bidderId  int64
		bidStatus string
	)
	err = tx.QueryRow(`SELECT job_id, bidder_id, status FROM bids WHERE id = $1`, bidId).
		Scan(&jobId, &bidderId, &bidStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: bid not found", op, ErrNotFound)
	}
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}

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
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if owner != username {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: you do not have permission to accept this bid", op, ErrForbidden)
	}
	if jobStatus != string(job.StatusOpen) {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: this job is no longer open", op, ErrConflict)
	}
	if bidStatus != string(bid.StatusPending) {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: only pending bids can be accepted", op, ErrConflict)
	}

	var b bid.BidResponse
	err = tx.QueryRow(`
	UPDATE bids
	SET status = 'ACCEPTED', updated_at = CURRENT_TIMESTAMP
	WHERE id = $1
	RETURNING id, job_id, bidder_id, amount, estimated_days, message, status, created_at
	`, bidId).Scan(
		&b.Id, &b.JobId, &b.BidderId, &b.Amount, &b.EstimatedDays, &b.Message, &b.Status, &b.CreatedAt,
	)
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(`
	UPDATE jobs
	SET selected_provider_id = $1, status = 'IN_PROGRESS', updated_at = CURRENT_TIMESTAMP
	WHERE id = $2
	`, bidderId, jobId)
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(`
	UPDATE bids
	SET status = 'REJECTED', updated_at = CURRENT_TIMESTAMP
	WHERE job_id = $1 AND id <> $2 AND status = 'PENDING'
	`, jobId, bidId)
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// RejectBid marks a bid rejected on behalf of the job owner. The job itself
// is untouched.
func (s *Storage) RejectBid(bidId int64, username string) (bid.BidResponse, error) {
	const op = "storage.postgres.RejectBid"

	var owner string
	err := s.db.QueryRow(`
	SELECT u.username
	FROM bids b
	INNER JOIN jobs j ON j.id = b.job_id
	INNER JOIN users u ON u.id = j.consumer_id
	WHERE b.id = $1
	`, bidId).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: bid not found", op, ErrNotFound)
	}
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	if owner != username {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: you do not have permission to reject this bid", op, ErrForbidden)
	}

	var b bid.BidResponse
	err = s.db.QueryRow(`
	UPDATE bids
	SET status = 'REJECTED', updated_at = CURRENT_TIMESTAMP
	WHERE id = $1
	RETURNING id, job_id, bidder_id, amount, estimated_days, message, status, created_at
	`, bidId).Scan(
		&b.Id, &b.JobId, &b.BidderId, &b.Amount, &b.EstimatedDays, &b.Message, &b.Status, &b.CreatedAt,
	)
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// WithdrawBid lets a bidder pull their own bid while it is still pending.
func (s *Storage) WithdrawBid(bidId int64, username string) (bid.BidResponse, error) {
	const op = "storage.postgres.WithdrawBid"

	var status string
	err := s.db.QueryRow(`
	SELECT b.status
	FROM bids b
	INNER JOIN users u ON u.id = b.bidder_id
	WHERE b.id = $1 AND u.username = $2
	`, bidId, username).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: bid not found or you do not have permission", op, ErrNotFound)
	}
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	if status != string(bid.StatusPending) {
		return bid.BidResponse{}, fmt.Errorf("%s: %w: only pending bids can be withdrawn", op, ErrConflict)
	}

	var b bid.BidResponse
	err = s.db.QueryRow(`
	UPDATE bids
	SET status = 'WITHDRAWN', updated_at = CURRENT_TIMESTAMP
	WHERE id = $1
	RETURNING id, job_id, bidder_id, amount, estimated_days, message, status, created_at
	`, bidId).Scan(
		&b.Id, &b.JobId, &b.BidderId, &b.Amount, &b.EstimatedDays, &b.Message, &b.Status, &b.CreatedAt,
	)
	if err != nil {
		return bid.BidResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// ReadPendingBidCandidates loads the PENDING bids on a job together with the
// bidder attributes the recommender scores on. A bidder without any role
// profile counts as unavailable.
func (s *Storage) ReadPendingBidCandidates(jobId int64) ([]recommender.Candidate, error) {
	const op = "storage.postgres.ReadPendingBidCandidates"
	result := make([]recommender.Candidate, 0)

	rows, err := s.db.Query(`
	SELECT `+bidColumnsB+`, u.latitude, u.longitude,
	       COALESCE(cp.is_available, tp.is_available, FALSE)
	FROM bids b
	INNER JOIN users u ON u.id = b.bidder_id
	LEFT JOIN contractor_profiles cp ON cp.user_id = u.id
	LEFT JOIN trader_profiles tp ON tp.user_id = u.id
	WHERE b.job_id = $1 AND b.status = 'PENDING'
	`, jobId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c recommender.Candidate
		err := rows.Scan(
			&c.Bid.Id, &c.Bid.JobId, &c.Bid.BidderId, &c.Bid.BidderName, &c.Bid.BidderRating,
			&c.Bid.Amount, &c.Bid.EstimatedDays, &c.Bid.Message, &c.Bid.Status, &c.Bid.CreatedAt,
			&c.Latitude, &c.Longitude, &c.Available,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c.Rating = c.Bid.BidderRating
		result = append(result, c)
	}

	return result, nil
}
