package jobs_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sonam1711/innerve-mistribazaar/internal/http-server/handlers/api/jobs"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/user"
	"github.com/sonam1711/innerve-mistribazaar/internal/storage/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func ptr(v float64) *float64 { return &v }

type stubNearbySource struct {
	user    user.User
	userErr error
	jobs    []job.JobResponse
}

func (s *stubNearbySource) FetchUser(username string) (user.User, error) {
	return s.user, s.userErr
}

func (s *stubNearbySource) ReadJobs(status, category, jobType string, limit, offset int) ([]job.JobResponse, error) {
	return s.jobs, nil
}

func TestGetNearbyJobs(t *testing.T) {
	openJobs := []job.JobResponse{
		{Id: 1, Title: "close", Status: string(job.StatusOpen), Latitude: ptr(28.62), Longitude: ptr(77.21)},
		{Id: 2, Title: "far", Status: string(job.StatusOpen), Latitude: ptr(19.07), Longitude: ptr(72.87)},
		{Id: 3, Title: "no location", Status: string(job.StatusOpen)},
	}

	t.Run("filters and sorts by distance", func(t *testing.T) {
		src := &stubNearbySource{
			user: user.User{Username: "ramesh", Latitude: ptr(28.61), Longitude: ptr(77.21)},
			jobs: openJobs,
		}
		handler := jobs.NewGetNearbyJobs(testLog, src)

		req := httptest.NewRequest(http.MethodGet, "/jobs/nearby/?username=ramesh", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Count int             `json:"count"`
			Jobs  []job.NearbyJob `json:"jobs"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		require.Equal(t, 1, resp.Count)
		assert.Equal(t, int64(1), resp.Jobs[0].Id)
		assert.Less(t, resp.Jobs[0].DistanceKm, 50.0)
	})

	t.Run("caller without location gets a hint", func(t *testing.T) {
		src := &stubNearbySource{user: user.User{Username: "ramesh"}, jobs: openJobs}
		handler := jobs.NewGetNearbyJobs(testLog, src)

		req := httptest.NewRequest(http.MethodGet, "/jobs/nearby/?username=ramesh", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Count   int    `json:"count"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Count)
		assert.NotEmpty(t, resp.Message)
	})

	t.Run("wide radius includes everything located", func(t *testing.T) {
		src := &stubNearbySource{
			user: user.User{Username: "ramesh", Latitude: ptr(28.61), Longitude: ptr(77.21)},
			jobs: openJobs,
		}
		handler := jobs.NewGetNearbyJobs(testLog, src)

		req := httptest.NewRequest(http.MethodGet, "/jobs/nearby/?username=ramesh&radius=2000", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("unknown user", func(t *testing.T) {
		src := &stubNearbySource{userErr: postgres.ErrUserNotFound}
		handler := jobs.NewGetNearbyJobs(testLog, src)

		req := httptest.NewRequest(http.MethodGet, "/jobs/nearby/?username=ghost", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

type stubStatusUpdater struct {
	resp job.JobResponse
	err  error

	gotJobId  int64
	gotStatus job.Status
}

func (s *stubStatusUpdater) UpdateJobStatus(jobId int64, status job.Status, username string) (job.JobResponse, error) {
	s.gotJobId = jobId
	s.gotStatus = status
	return s.resp, s.err
}

func TestPatchJobStatus(t *testing.T) {
	router := func(updater *stubStatusUpdater) *chi.Mux {
		r := chi.NewRouter()
		r.Patch("/jobs/{jobId}/status/", jobs.NewPatchJobStatus(testLog, updater))
		return r
	}

	t.Run("ok", func(t *testing.T) {
		updater := &stubStatusUpdater{resp: job.JobResponse{Id: 9, Status: string(job.StatusCancelled)}}

		req := httptest.NewRequest(http.MethodPatch, "/jobs/9/status/?username=asha", strings.NewReader(`{"status":"CANCELLED"}`))
		w := httptest.NewRecorder()
		router(updater).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(9), updater.gotJobId)
		assert.Equal(t, job.StatusCancelled, updater.gotStatus)
	})

	t.Run("invalid status value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/jobs/9/status/?username=asha", strings.NewReader(`{"status":"DONE"}`))
		w := httptest.NewRecorder()
		router(&stubStatusUpdater{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("illegal transition", func(t *testing.T) {
		updater := &stubStatusUpdater{err: postgres.ErrConflict}

		req := httptest.NewRequest(http.MethodPatch, "/jobs/9/status/?username=asha", strings.NewReader(`{"status":"COMPLETED"}`))
		w := httptest.NewRecorder()
		router(updater).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("not the creator", func(t *testing.T) {
		updater := &stubStatusUpdater{err: postgres.ErrForbidden}

		req := httptest.NewRequest(http.MethodPatch, "/jobs/9/status/?username=rival", strings.NewReader(`{"status":"CANCELLED"}`))
		w := httptest.NewRecorder()
		router(updater).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
