// Package ai exposes the rule-based helper endpoints: bid recommendations
// and budget estimation.
package ai

import (
	"encoding/json"
	serrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sonam1711/innerve-mistribazaar/internal/estimator"
	"github.com/sonam1711/innerve-mistribazaar/internal/lib/errors"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"
	"github.com/sonam1711/innerve-mistribazaar/internal/recommender"
	"github.com/sonam1711/innerve-mistribazaar/internal/storage/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type RecommendationSource interface {
	ReadJobForOwner(jobId int64, username string) (job.JobResponse, error)
	ReadPendingBidCandidates(jobId int64) ([]recommender.Candidate, error)
}

type recommendResponse struct {
	JobId           int64                   `json:"job_id"`
	TotalBids       int                     `json:"total_bids"`
	Message         string                  `json:"message,omitempty"`
	Recommendations []recommender.ScoredBid `json:"recommendations"`
}

// NewRecommendProviders ranks the pending bids on the caller's job. Rankings
// are computed fresh on every request and never cached.
func NewRecommendProviders(log *slog.Logger, src RecommendationSource, rec *recommender.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobId, err := strconv.ParseInt(chi.URLParam(r, "jobId"), 10, 64)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The job id is invalid"))
			return
		}

		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		j, err := src.ReadJobForOwner(jobId, username)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		cands, err := src.ReadPendingBidCandidates(jobId)
		if err != nil {
			log.Error("Failed to read pending bids", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			render.Status(r, 500)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		resp := recommendResponse{
			JobId:           jobId,
			Recommendations: rec.Score(j, cands),
		}
		resp.TotalBids = len(resp.Recommendations)
		if resp.TotalBids == 0 {
			resp.Message = "No bids available yet"
		}

		render.JSON(w, r, resp)
	}
}

type estimateRequest struct {
	WorkType string   `json:"work_type"`
	AreaSqft *float64 `json:"area_sqft"`
	Quality  string   `json:"quality"`
	CityTier string   `json:"city_tier"`
	Urgency  string   `json:"urgency"`
}

// NewBudgetEstimate computes a direct budget estimate. Only work_type and
// area_sqft are required; quality, city tier and urgency have defaults.
func NewBudgetEstimate(log *slog.Logger, est *estimator.Estimator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req estimateRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Error decoding request body")
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("Error decoding request body"))
			return
		}

		if req.WorkType == "" || req.AreaSqft == nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("work_type and area_sqft are required"))
			return
		}
		if *req.AreaSqft <= 0 {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("area_sqft must be positive"))
			return
		}

		quality := estimator.Quality(req.Quality)
		if req.Quality == "" {
			quality = estimator.QualityStandard
		}
		cityTier := estimator.CityTier(req.CityTier)
		if req.CityTier == "" {
			cityTier = estimator.Tier2
		}
		urgency := estimator.Urgency(req.Urgency)
		if req.Urgency == "" {
			urgency = estimator.UrgencyNormal
		}

		resp := est.Estimate(estimator.WorkType(req.WorkType), *req.AreaSqft, quality, cityTier, urgency)
		render.JSON(w, r, resp)
	}
}

type conversationRequest struct {
	Step json.RawMessage   `json:"step"`
	Data map[string]string `json:"data"`
}

type conversationComplete struct {
	Status   string             `json:"status"`
	Estimate estimator.Estimate `json:"estimate"`
}

// NewBudgetConversation walks the step-by-step estimation flow. GET returns
// the opening question; POST advances with {"step": N|"complete", "data": {…}}.
func NewBudgetConversation(log *slog.Logger, est *estimator.Estimator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			render.JSON(w, r, est.Step(1))
			return
		}

		var req conversationRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Error decoding request body")
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("Error decoding request body"))
			return
		}

		var stepStr string
		if err := json.Unmarshal(req.Step, &stepStr); err == nil && stepStr == estimator.FlowComplete {
			render.JSON(w, r, conversationComplete{
				Status:   estimator.FlowComplete,
				Estimate: estimateFromFlowData(est, req.Data),
			})
			return
		}

		var step int
		if err := json.Unmarshal(req.Step, &step); err != nil {
			step = 1
		}
		render.JSON(w, r, est.Step(step))
	}
}

// estimateFromFlowData applies the same defaults the original flow used for
// partially collected answers.
func estimateFromFlowData(est *estimator.Estimator, data map[string]string) estimator.Estimate {
	area := 100.0
	if raw, ok := data["area_sqft"]; ok {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			area = parsed
		}
	}

	quality := estimator.Quality(data["quality"])
	if data["quality"] == "" {
		quality = estimator.QualityStandard
	}
	cityTier := estimator.CityTier(data["city_tier"])
	if data["city_tier"] == "" {
		cityTier = estimator.Tier2
	}
	urgency := estimator.Urgency(data["urgency"])
	if data["urgency"] == "" {
		urgency = estimator.UrgencyNormal
	}

	return est.Estimate(estimator.WorkType(data["work_type"]), area, quality, cityTier, urgency)
}

func writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case serrors.Is(err, postgres.ErrBadRequest):
		render.Status(r, 400)
	case serrors.Is(err, postgres.ErrUserNotFound):
		render.Status(r, 401)
	case serrors.Is(err, postgres.ErrForbidden):
		render.Status(r, 403)
	case serrors.Is(err, postgres.ErrNotFound):
		render.Status(r, 404)
	case serrors.Is(err, postgres.ErrConflict):
		render.Status(r, 409)
	default:
		render.Status(r, 400)
	}
	render.JSON(w, r, errors.NewHttpError(err.Error()))
}
