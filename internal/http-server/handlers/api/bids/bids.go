package bids

import (
	"encoding/json"
	serrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sonam1711/innerve-mistribazaar/internal/lib/errors"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/bid"
	"github.com/sonam1711/innerve-mistribazaar/internal/storage/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type BidSaver interface {
	SaveBid(req bid.BidRequest, username string) (bid.BidResponse, error)
}

type MyBidsReader interface {
	ReadMyBids(username string, limit, offset int) ([]bid.BidResponse, error)
}

type JobBidsReader interface {
	ReadJobBids(jobId int64, username string, limit, offset int) ([]bid.BidResponse, error)
}

type BidAccepter interface {
	AcceptBid(bidId int64, username string) (bid.BidResponse, error)
}

type BidRejecter interface {
	RejectBid(bidId int64, username string) (bid.BidResponse, error)
}

type BidWithdrawer interface {
	WithdrawBid(bidId int64, username string) (bid.BidResponse, error)
}

func NewPostBid(log *slog.Logger, bidSaver BidSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		var req bid.BidRequest

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

		resp, err := bidSaver.SaveBid(req, username)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.Status(r, 201)
		render.JSON(w, r, resp)
	}
}

func NewGetMyBids(log *slog.Logger, myBidsReader MyBidsReader) http.HandlerFunc {
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

		resp, err := myBidsReader.ReadMyBids(username, limit, offset)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetJobBids(log *slog.Logger, jobBidsReader JobBidsReader) http.HandlerFunc {
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

		limit, offset, err := parseLimitOffset(r)
		if err != nil {
			log.Error(err.Error())
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		resp, err := jobBidsReader.ReadJobBids(jobId, username, limit, offset)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewAcceptBid(log *slog.Logger, bidAccepter BidAccepter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidId, err := parseId(r, "bidId")
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The bid id is invalid"))
			return
		}

		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		resp, err := bidAccepter.AcceptBid(bidId, username)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewRejectBid(log *slog.Logger, bidRejecter BidRejecter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidId, err := parseId(r, "bidId")
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The bid id is invalid"))
			return
		}

		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		resp, err := bidRejecter.RejectBid(bidId, username)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewWithdrawBid(log *slog.Logger, bidWithdrawer BidWithdrawer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidId, err := parseId(r, "bidId")
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The bid id is invalid"))
			return
		}

		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("The Username is empty"))
			return
		}

		resp, err := bidWithdrawer.WithdrawBid(bidId, username)
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
