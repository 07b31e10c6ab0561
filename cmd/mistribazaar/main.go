package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonam1711/innerve-mistribazaar/internal/config"
	"github.com/sonam1711/innerve-mistribazaar/internal/estimator"
	"github.com/sonam1711/innerve-mistribazaar/internal/http-server/handlers/api/ai"
	"github.com/sonam1711/innerve-mistribazaar/internal/http-server/handlers/api/bids"
	"github.com/sonam1711/innerve-mistribazaar/internal/http-server/handlers/api/jobs"
	"github.com/sonam1711/innerve-mistribazaar/internal/http-server/handlers/api/ping"
	"github.com/sonam1711/innerve-mistribazaar/internal/notify"
	"github.com/sonam1711/innerve-mistribazaar/internal/recommender"
	"github.com/sonam1711/innerve-mistribazaar/internal/storage/postgres"

	"github.com/go-chi/chi/v5"
)

func main() {

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
		os.Exit(1)
	}

	storage, err := postgres.New(cfg.PostgresConn, cfg.StrictStatusTransitions)
	if err != nil {
		log.Error("Failed to connect to postgresql", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
		os.Exit(1)
	}

	rec := recommender.New(recommender.DefaultWeights())
	est := estimator.New(estimator.DefaultConfig())
	dispatcher := notify.NewConsole(log)

	router := chi.NewRouter()

	router.Get("/ping", ping.New(log))
	router.Route("/jobs", func(r chi.Router) {
		r.Post("/create/", jobs.NewPostJob(log, storage, dispatcher))
		r.Get("/", jobs.NewGetJobs(log, storage))
		r.Get("/my/", jobs.NewGetMyJobs(log, storage))
		r.Get("/nearby/", jobs.NewGetNearbyJobs(log, storage))
		r.Get("/{jobId}/", jobs.NewGetJob(log, storage))
		r.Patch("/{jobId}/status/", jobs.NewPatchJobStatus(log, storage))
	})
	router.Route("/bids", func(r chi.Router) {
		r.Post("/create/", bids.NewPostBid(log, storage))
		r.Get("/my/", bids.NewGetMyBids(log, storage))
		r.Get("/job/{jobId}/", bids.NewGetJobBids(log, storage))
		r.Post("/{bidId}/accept/", bids.NewAcceptBid(log, storage))
		r.Post("/{bidId}/reject/", bids.NewRejectBid(log, storage))
		r.Post("/{bidId}/withdraw/", bids.NewWithdrawBid(log, storage))
		r.Route("/acceptances", func(r chi.Router) {
			r.Post("/create/", bids.NewPostAcceptance(log, storage))
			r.Get("/", bids.NewGetAcceptances(log, storage))
			r.Post("/accept-job/{jobId}/", bids.NewAcceptJob(log, storage))
			r.Post("/reject-job/{jobId}/", bids.NewRejectJob(log, storage))
			r.Post("/select-mistri/{jobId}/{acceptanceId}/", bids.NewSelectMistri(log, storage))
		})
	})
	router.Route("/ai", func(r chi.Router) {
		r.Get("/recommend/{jobId}/", ai.NewRecommendProviders(log, storage, rec))
		r.Post("/budget/estimate/", ai.NewBudgetEstimate(log, est))
		r.Get("/budget/conversation/", ai.NewBudgetConversation(log, est))
		r.Post("/budget/conversation/", ai.NewBudgetConversation(log, est))
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Error("failed to start the server")
		}
	}()

	log.Info("starting server", slog.String("addr", cfg.HTTPAddr))
	<-done
	log.Info("server stopped")
}
