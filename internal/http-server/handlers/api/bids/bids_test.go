package bids_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sonam1711/innerve-mistribazaar/internal/http-server/handlers/api/bids"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/bid"
	"github.com/sonam1711/innerve-mistribazaar/internal/storage/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubBidStore struct {
	saved    bid.BidResponse
	accepted bid.BidResponse
	err      error

	gotReq      bid.BidRequest
	gotUsername string
	gotBidId    int64
}

func (s *stubBidStore) SaveBid(req bid.BidRequest, username string) (bid.BidResponse, error) {
	s.gotReq = req
	s.gotUsername = username
	return s.saved, s.err
}

func (s *stubBidStore) AcceptBid(bidId int64, username string) (bid.BidResponse, error) {
	s.gotBidId = bidId
	s.gotUsername = username
	return s.accepted, s.err
}

func TestPostBid_Created(t *testing.T) {
	store := &stubBidStore{saved: bid.BidResponse{Id: 11, JobId: 3, Amount: 50000, Status: string(bid.StatusPending)}}
	handler := bids.NewPostBid(testLog, store)

	body := `{"job":3,"bid_amount":50000,"estimated_days":14,"message":"can start monday"}`
	req := httptest.NewRequest(http.MethodPost, "/bids/create/?username=ramesh", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ramesh", store.gotUsername)
	assert.Equal(t, int64(3), store.gotReq.JobId)

	var resp bid.BidResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(11), resp.Id)
	assert.Equal(t, string(bid.StatusPending), resp.Status)
}

func TestPostBid_MissingUsername(t *testing.T) {
	handler := bids.NewPostBid(testLog, &stubBidStore{})

	req := httptest.NewRequest(http.MethodPost, "/bids/create/", strings.NewReader(`{"job":3,"bid_amount":1,"estimated_days":1}`))
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostBid_ValidationFailures(t *testing.T) {
	handler := bids.NewPostBid(testLog, &stubBidStore{})

	bodies := []string{
		`{"bid_amount":50000,"estimated_days":14}`,         // no job
		`{"job":3,"bid_amount":-5,"estimated_days":14}`,    // negative amount
		`{"job":3,"bid_amount":50000}`,                     // no estimated_days
		`{"job":3,"bid_amount":50000,"unexpected":"field"}`, // unknown field
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/bids/create/?username=ramesh", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func TestPostBid_ZeroAmountReachesStorage(t *testing.T) {
	// A zero bid is valid on a job whose budget floor is zero; the budget
	// range guard in storage decides, not request validation.
	store := &stubBidStore{saved: bid.BidResponse{Id: 12, JobId: 3, Status: string(bid.StatusPending)}}
	handler := bids.NewPostBid(testLog, store)

	body := `{"job":3,"bid_amount":0,"estimated_days":7}`
	req := httptest.NewRequest(http.MethodPost, "/bids/create/?username=ramesh", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0.0, store.gotReq.Amount)
}

func TestPostBid_StorageErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "bad request", err: postgres.ErrBadRequest, want: http.StatusBadRequest},
		{name: "unknown user", err: postgres.ErrUserNotFound, want: http.StatusUnauthorized},
		{name: "wrong role", err: postgres.ErrForbidden, want: http.StatusForbidden},
		{name: "missing job", err: postgres.ErrNotFound, want: http.StatusNotFound},
		{name: "duplicate or closed", err: postgres.ErrConflict, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := bids.NewPostBid(testLog, &stubBidStore{err: tt.err})

			body := `{"job":3,"bid_amount":50000,"estimated_days":14}`
			req := httptest.NewRequest(http.MethodPost, "/bids/create/?username=ramesh", strings.NewReader(body))
			w := httptest.NewRecorder()
			handler(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAcceptBid(t *testing.T) {
	router := func(store *stubBidStore) *chi.Mux {
		r := chi.NewRouter()
		r.Post("/bids/{bidId}/accept/", bids.NewAcceptBid(testLog, store))
		return r
	}

	t.Run("ok", func(t *testing.T) {
		store := &stubBidStore{accepted: bid.BidResponse{Id: 5, Status: string(bid.StatusAccepted)}}
		req := httptest.NewRequest(http.MethodPost, "/bids/5/accept/?username=owner", nil)
		w := httptest.NewRecorder()
		router(store).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(5), store.gotBidId)

		var resp bid.BidResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(bid.StatusAccepted), resp.Status)
	})

	t.Run("not the job owner", func(t *testing.T) {
		store := &stubBidStore{err: postgres.ErrForbidden}
		req := httptest.NewRequest(http.MethodPost, "/bids/5/accept/?username=rival", nil)
		w := httptest.NewRecorder()
		router(store).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("job already closed", func(t *testing.T) {
		store := &stubBidStore{err: postgres.ErrConflict}
		req := httptest.NewRequest(http.MethodPost, "/bids/5/accept/?username=owner", nil)
		w := httptest.NewRecorder()
		router(store).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid bid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/bids/abc/accept/?username=owner", nil)
		w := httptest.NewRecorder()
		router(&stubBidStore{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
