package jobs

import (
	"encoding/json"
	serrors "errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/sonam1711/innerve-mistribazaar/internal/lib/errors"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/user"
	"github.com/sonam1711/innerve-mistribazaar/internal/notify"
	"github.com/sonam1711/innerve-mistribazaar/internal/recommender"
	"github.com/sonam1711/innerve-mistribazaar/internal/storage/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const defaultNotifyRadiusKm = 50

type JobSaver interface {
	SaveJob(req job.JobRequest) (job.JobResponse, error)
	ReadAvailableMistris() ([]user.User, error)
}

type JobsReader interface {
	ReadJobs(status, category, jobType string, limit, offset int) ([]job.JobResponse, error)
}

type MyJobsReader interface {
	ReadMyJobs(username string, limit, offset int) ([]job.JobResponse, error)
}

type JobReader interface {
	ReadJob(jobId int64) (job.JobResponse, error)
}

type NearbyJobsSource interface {
	FetchUser(username string) (user.User, error)
	ReadJobs(status, category, jobType string, limit, offset int) ([]job.JobResponse, error)
}

type JobStatusUpdater interface {
	UpdateJobStatus(jobId int64, status job.Status, username string) (job.JobResponse, error)
}

func NewPostJob(log *slog.Logger, jobSaver JobSaver, dispatcher notify.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req job.JobRequest

		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(&req); err != nil {
			log.Error("Error decoding request body")
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("Error decoding request body"))
			return
		}

		if err := validate.Struct(req); err != nil {
			log.Error(err.Error())
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		resp, err := jobSaver.SaveJob(req)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		// Alert nearby mistris off the request path; delivery failures only log.
		if resp.Category == string(job.CategoryJob) {
			go func() {
				mistris, err := jobSaver.ReadAvailableMistris()
				if err != nil {
					log.Error("failed to load mistris for notification",
						slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
					return
				}
				sent := notify.NotifyNearbyMistris(log, dispatcher, resp, mistris, defaultNotifyRadiusKm)
				log.Info("job notifications dispatched",
					slog.Int64("job_id", resp.Id), slog.Int("sent", sent))
			}()
		}

		render.Status(r, 201)
		render.JSON(w, r, resp)
	}
}

func NewGetJobs(log *slog.Logger, jobsReader JobsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status != "" {
			if _, err := job.ParseStatus(status); err != nil {
				render.Status(r, 400)
				render.JSON(w, r, errors.NewHttpError("Incorrect status value"))
				return
			}
		}
		category := r.URL.Query().Get("category")
		if category != "" {
			if _, err := job.ParseCategory(category); err != nil {
				render.Status(r, 400)
				render.JSON(w, r, errors.NewHttpError("Incorrect category value"))
				return
			}
		}
		jobType := r.URL.Query().Get("job_type")

		limit, offset, err := parseLimitOffset(r)
		if err != nil {
			log.Error(err.Error())
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		resp, err := jobsReader.ReadJobs(status, category, jobType, limit, offset)
		if err != nil {
			log.Error("Failed to read jobs", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			render.Status(r, 500)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetMyJobs(log *slog.Logger, myJobsReader MyJobsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		limit, offset, err := parseLimitOffset(r)
		if err != nil {
			log.Error(err.Error())
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		resp, err := myJobsReader.ReadMyJobs(username, limit, offset)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetJob(log *slog.Logger, jobReader JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobId, err := parseId(r, "jobId")
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The job id is invalid"))
			return
		}

		resp, err := jobReader.ReadJob(jobId)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

// NewGetNearbyJobs lists OPEN jobs within a radius of the caller's location,
// closest first. Callers without a location get an empty list and a hint
// rather than an error.
func NewGetNearbyJobs(log *slog.Logger, src NearbyJobsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		usr, err := src.FetchUser(username)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		if usr.Latitude == nil || usr.Longitude == nil {
			render.JSON(w, r, map[string]any{
				"count":   0,
				"jobs":    []job.NearbyJob{},
				"message": "Please update your location in profile to see nearby jobs",
			})
			return
		}

		radiusKm := 50.0
		if raw := r.URL.Query().Get("radius"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				render.Status(r, 400)
				render.JSON(w, r, errors.NewHttpError("Incorrect radius value"))
				return
			}
			radiusKm = parsed
		}

		category := r.URL.Query().Get("category")
		open, err := src.ReadJobs(string(job.StatusOpen), category, "", 1000, 0)
		if err != nil {
			log.Error("Failed to read jobs", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			render.Status(r, 500)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		nearby := make([]job.NearbyJob, 0)
		for _, j := range open {
			distance := recommender.Distance(usr.Latitude, usr.Longitude, j.Latitude, j.Longitude)
			if distance <= radiusKm {
				nearby = append(nearby, job.NearbyJob{
					JobResponse: j,
					DistanceKm:  math.Round(distance*100) / 100,
				})
			}
		}
		sort.Slice(nearby, func(i, j int) bool { return nearby[i].DistanceKm < nearby[j].DistanceKm })

		render.JSON(w, r, map[string]any{
			"count": len(nearby),
			"jobs":  nearby,
		})
	}
}

func NewPatchJobStatus(log *slog.Logger, updater JobStatusUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobId, err := parseId(r, "jobId")
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

		var req job.StatusPatchRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error(err.Error())
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		status, err := job.ParseStatus(req.Status)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("Invalid status"))
			return
		}

		resp, err := updater.UpdateJobStatus(jobId, status, username)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func parseId(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}

func parseLimitOffset(r *http.Request) (int, int, error) {
	limit, offset := 20, 0
	var err error
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("Incorrect limit value")
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("Incorrect offset value")
		}
	}
	return limit, offset, nil
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
