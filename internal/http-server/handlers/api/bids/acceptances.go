package bids

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sonam1711/innerve-mistribazaar/internal/lib/errors"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/bid"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"

	"github.com/go-chi/render"
)

type AcceptanceSaver interface {
	SaveAcceptance(jobId int64, username string, status bid.Status, note string) (bid.AcceptanceResponse, error)
}

type AcceptancesReader interface {
	ReadAcceptances(username string, jobId int64, limit, offset int) ([]bid.AcceptanceResponse, error)
}

type MistriSelector interface {
	SelectMistri(jobId, acceptanceId int64, username string) (job.JobResponse, error)
}

// acceptanceNote is the optional request body of the accept-job and
// reject-job endpoints.
type acceptanceNote struct {
	Note string `json:"note"`
}

func NewPostAcceptance(log *slog.Logger, saver AcceptanceSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		var req bid.AcceptanceRequest

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

		resp, err := saver.SaveAcceptance(req.JobId, username, bid.Status(req.Status), req.Note)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.Status(r, 201)
		render.JSON(w, r, resp)
	}
}

func NewGetAcceptances(log *slog.Logger, reader AcceptancesReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		var jobId int64
		if raw := r.URL.Query().Get("job_id"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				render.Status(r, 400)
				render.JSON(w, r, errors.NewHttpError("Incorrect job_id value"))
				return
			}
			jobId = parsed
		}

		limit, offset, err := parseLimitOffset(r)
		if err != nil {
			log.Error(err.Error())
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		resp, err := reader.ReadAcceptances(username, jobId, limit, offset)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

// NewAcceptJob records a mistri's acceptance of a JOB-category job. The
// consumer later picks one acceptance via select-mistri.
func NewAcceptJob(log *slog.Logger, saver AcceptanceSaver) http.HandlerFunc {
	return newDirectResponse(log, saver, bid.StatusAccepted)
}

// NewRejectJob records a mistri's decline. Declines are recorded even for
// closed jobs so the consumer can see who passed.
func NewRejectJob(log *slog.Logger, saver AcceptanceSaver) http.HandlerFunc {
	return newDirectResponse(log, saver, bid.StatusRejected)
}

func newDirectResponse(log *slog.Logger, saver AcceptanceSaver, status bid.Status) http.HandlerFunc {
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

		var body acceptanceNote
		if r.Body != nil && r.ContentLength != 0 {
			if err := render.DecodeJSON(r.Body, &body); err != nil {
				log.Error(err.Error())
				render.Status(r, 400)
				render.JSON(w, r, errors.NewHttpError(err.Error()))
				return
			}
		}

		resp, err := saver.SaveAcceptance(jobId, username, status, body.Note)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.Status(r, 201)
		render.JSON(w, r, resp)
	}
}

func NewSelectMistri(log *slog.Logger, selector MistriSelector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobId, err := parseId(r, "jobId")
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The job id is invalid"))
			return
		}

		acceptanceId, err := parseId(r, "acceptanceId")
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The acceptance id is invalid"))
			return
		}

		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		resp, err := selector.SelectMistri(jobId, acceptanceId, username)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}
