package postgres

import (
	"os"
	"testing"

	"github.com/sonam1711/innerve-mistribazaar/internal/models/bid"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The tests below need a throwaway postgres database and wipe its tables.
// They are skipped unless POSTGRES_TEST_CONN points at one.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	conn := os.Getenv("POSTGRES_TEST_CONN")
	if conn == "" {
		t.Skip("POSTGRES_TEST_CONN not set")
	}

	s, err := New(conn, true)
	require.NoError(t, err)

	_, err = s.db.Exec(`TRUNCATE job_acceptances, bids, jobs,
		mistri_profiles, trader_profiles, contractor_profiles, users
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	t.Cleanup(func() { s.db.Close() })
	return s
}

func seedUser(t *testing.T, s *Storage, username string, role user.Role, rating float64) int64 {
	t.Helper()

	var id int64
	err := s.db.QueryRow(`
	INSERT INTO users (username, name, phone, role, rating, latitude, longitude)
	VALUES ($1, $1, '', $2, $3, 28.61, 77.21)
	RETURNING id
	`, username, role, rating).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedJob(t *testing.T, s *Storage, creator string, category job.Category, budgetMin, budgetMax float64) job.JobResponse {
	t.Helper()

	lat, lon := 28.61, 77.21
	j, err := s.SaveJob(job.JobRequest{
		Category:        string(category),
		JobType:         "REPAIR",
		Title:           "bathroom repair",
		BudgetMin:       budgetMin,
		BudgetMax:       budgetMax,
		Latitude:        &lat,
		Longitude:       &lon,
		CreatorUsername: creator,
	})
	require.NoError(t, err)
	return j
}

func bidStatus(t *testing.T, s *Storage, bidId int64) string {
	t.Helper()

	var status string
	require.NoError(t, s.db.QueryRow(`SELECT status FROM bids WHERE id = $1`, bidId).Scan(&status))
	return status
}

func TestSaveBid_Guards(t *testing.T) {
	s := newTestStorage(t)

	seedUser(t, s, "owner", user.RoleConsumer, 0)
	seedUser(t, s, "builder", user.RoleContractor, 4.5)
	seedUser(t, s, "handyman", user.RoleMistri, 4)
	project := seedJob(t, s, "owner", job.CategoryProject, 10000, 50000)
	direct := seedJob(t, s, "owner", job.CategoryJob, 1000, 5000)

	t.Run("mistri cannot bid", func(t *testing.T) {
		_, err := s.SaveBid(bid.BidRequest{JobId: project.Id, Amount: 20000, EstimatedDays: 10}, "handyman")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := s.SaveBid(bid.BidRequest{JobId: 99999, Amount: 20000, EstimatedDays: 10}, "builder")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("JOB category takes no bids", func(t *testing.T) {
		_, err := s.SaveBid(bid.BidRequest{JobId: direct.Id, Amount: 2000, EstimatedDays: 3}, "builder")
		assert.ErrorIs(t, err, ErrBadRequest)
	})

	t.Run("amount outside budget range", func(t *testing.T) {
		_, err := s.SaveBid(bid.BidRequest{JobId: project.Id, Amount: 5000, EstimatedDays: 10}, "builder")
		assert.ErrorIs(t, err, ErrBadRequest)

		_, err = s.SaveBid(bid.BidRequest{JobId: project.Id, Amount: 60000, EstimatedDays: 10}, "builder")
		assert.ErrorIs(t, err, ErrBadRequest)
	})

	t.Run("valid bid lands pending", func(t *testing.T) {
		b, err := s.SaveBid(bid.BidRequest{JobId: project.Id, Amount: 20000, EstimatedDays: 10}, "builder")
		require.NoError(t, err)
		assert.Equal(t, string(bid.StatusPending), b.Status)
		assert.Equal(t, "builder", b.BidderName)
	})

	t.Run("second bid on the same job conflicts", func(t *testing.T) {
		_, err := s.SaveBid(bid.BidRequest{JobId: project.Id, Amount: 25000, EstimatedDays: 8}, "builder")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestSaveBid_ZeroAmountOnZeroFloorBudget(t *testing.T) {
	s := newTestStorage(t)

	seedUser(t, s, "owner", user.RoleConsumer, 0)
	seedUser(t, s, "builder", user.RoleContractor, 4.5)
	j := seedJob(t, s, "owner", job.CategoryProject, 0, 10000)

	b, err := s.SaveBid(bid.BidRequest{JobId: j.Id, Amount: 0, EstimatedDays: 5}, "builder")
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.Amount)
}

func TestAcceptBid_AtomicOutcome(t *testing.T) {
	s := newTestStorage(t)

	seedUser(t, s, "owner", user.RoleConsumer, 0)
	builderId := seedUser(t, s, "builder", user.RoleContractor, 4.5)
	seedUser(t, s, "trader", user.RoleTrader, 4)
	j := seedJob(t, s, "owner", job.CategoryProject, 10000, 50000)

	winner, err := s.SaveBid(bid.BidRequest{JobId: j.Id, Amount: 20000, EstimatedDays: 10}, "builder")
	require.NoError(t, err)
	loser, err := s.SaveBid(bid.BidRequest{JobId: j.Id, Amount: 30000, EstimatedDays: 12}, "trader")
	require.NoError(t, err)

	t.Run("only the owner may accept", func(t *testing.T) {
		_, err := s.AcceptBid(winner.Id, "trader")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("accept assigns the job and rejects siblings", func(t *testing.T) {
		accepted, err := s.AcceptBid(winner.Id, "owner")
		require.NoError(t, err)
		assert.Equal(t, string(bid.StatusAccepted), accepted.Status)

		updated, err := s.ReadJob(j.Id)
		require.NoError(t, err)
		assert.Equal(t, string(job.StatusInProgress), updated.Status)
		require.NotNil(t, updated.SelectedProviderId)
		assert.Equal(t, builderId, *updated.SelectedProviderId)

		assert.Equal(t, string(bid.StatusRejected), bidStatus(t, s, loser.Id))
	})

	t.Run("accepting on a closed job conflicts", func(t *testing.T) {
		_, err := s.AcceptBid(loser.Id, "owner")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestWithdrawBid(t *testing.T) {
	s := newTestStorage(t)

	seedUser(t, s, "owner", user.RoleConsumer, 0)
	seedUser(t, s, "builder", user.RoleContractor, 4.5)
	seedUser(t, s, "trader", user.RoleTrader, 4)
	j := seedJob(t, s, "owner", job.CategoryProject, 10000, 50000)

	b, err := s.SaveBid(bid.BidRequest{JobId: j.Id, Amount: 20000, EstimatedDays: 10}, "builder")
	require.NoError(t, err)

	t.Run("only the bidder sees their bid", func(t *testing.T) {
		_, err := s.WithdrawBid(b.Id, "trader")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("pending bid withdraws", func(t *testing.T) {
		withdrawn, err := s.WithdrawBid(b.Id, "builder")
		require.NoError(t, err)
		assert.Equal(t, string(bid.StatusWithdrawn), withdrawn.Status)
	})

	t.Run("withdrawn bid cannot withdraw again", func(t *testing.T) {
		_, err := s.WithdrawBid(b.Id, "builder")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("withdrawn bid cannot be accepted", func(t *testing.T) {
		_, err := s.AcceptBid(b.Id, "owner")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestSaveAcceptance_Guards(t *testing.T) {
	s := newTestStorage(t)

	seedUser(t, s, "owner", user.RoleConsumer, 0)
	seedUser(t, s, "builder", user.RoleContractor, 4.5)
	seedUser(t, s, "handyman", user.RoleMistri, 4)
	seedUser(t, s, "handyman2", user.RoleMistri, 4)
	direct := seedJob(t, s, "owner", job.CategoryJob, 1000, 5000)
	project := seedJob(t, s, "owner", job.CategoryProject, 10000, 50000)

	t.Run("contractor cannot respond directly", func(t *testing.T) {
		_, err := s.SaveAcceptance(direct.Id, "builder", bid.StatusAccepted, "")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("PROJECT jobs cannot be accepted directly", func(t *testing.T) {
		_, err := s.SaveAcceptance(project.Id, "handyman", bid.StatusAccepted, "")
		assert.ErrorIs(t, err, ErrBadRequest)
	})

	t.Run("acceptance lands in decided state", func(t *testing.T) {
		a, err := s.SaveAcceptance(direct.Id, "handyman", bid.StatusAccepted, "can start tomorrow")
		require.NoError(t, err)
		assert.Equal(t, string(bid.StatusAccepted), a.Status)
	})

	t.Run("second response conflicts", func(t *testing.T) {
		_, err := s.SaveAcceptance(direct.Id, "handyman", bid.StatusRejected, "")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("select-mistri assigns and closes", func(t *testing.T) {
		a, err := s.ReadAcceptances("handyman", direct.Id, 20, 0)
		require.NoError(t, err)
		require.Len(t, a, 1)

		assigned, err := s.SelectMistri(direct.Id, a[0].Id, "owner")
		require.NoError(t, err)
		assert.Equal(t, string(job.StatusInProgress), assigned.Status)
		require.NotNil(t, assigned.SelectedProviderId)
		assert.Equal(t, a[0].MistriId, *assigned.SelectedProviderId)
	})

	t.Run("rejection recorded even on a closed job", func(t *testing.T) {
		a, err := s.SaveAcceptance(direct.Id, "handyman2", bid.StatusRejected, "too far")
		require.NoError(t, err)
		assert.Equal(t, string(bid.StatusRejected), a.Status)
	})
}

func TestUpdateJobStatus_StrictTransitions(t *testing.T) {
	s := newTestStorage(t)

	seedUser(t, s, "owner", user.RoleConsumer, 0)
	j := seedJob(t, s, "owner", job.CategoryProject, 10000, 50000)

	t.Run("skip-level transition conflicts", func(t *testing.T) {
		_, err := s.UpdateJobStatus(j.Id, job.StatusCompleted, "owner")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("stranger sees no job", func(t *testing.T) {
		_, err := s.UpdateJobStatus(j.Id, job.StatusCancelled, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cancel from open", func(t *testing.T) {
		updated, err := s.UpdateJobStatus(j.Id, job.StatusCancelled, "owner")
		require.NoError(t, err)
		assert.Equal(t, string(job.StatusCancelled), updated.Status)
	})

	t.Run("terminal state is closed", func(t *testing.T) {
		_, err := s.UpdateJobStatus(j.Id, job.StatusInProgress, "owner")
		assert.ErrorIs(t, err, ErrConflict)
	})
}
