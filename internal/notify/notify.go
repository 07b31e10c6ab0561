// Package notify dispatches job alerts to nearby providers. Delivery is
// fire-and-forget: failures are logged and never surfaced to the caller.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/user"
	"github.com/sonam1711/innerve-mistribazaar/internal/recommender"

	"github.com/google/uuid"
)

// JobSummary is the structured payload handed to the SMS/voice gateway.
type JobSummary struct {
	Title     string
	JobType   string
	Address   string
	BudgetMin float64
	BudgetMax float64
}

type Delivery struct {
	Id        string
	Phone     string
	Delivered bool
	SentAt    time.Time
}

// Dispatcher sends one job notification to one phone number.
type Dispatcher interface {
	SendJobNotification(phone string, summary JobSummary) (Delivery, error)
}

// ConsoleDispatcher logs notifications instead of calling an SMS gateway.
// It stands in for the external delivery provider in development.
type ConsoleDispatcher struct {
	log *slog.Logger
}

func NewConsole(log *slog.Logger) *ConsoleDispatcher {
	return &ConsoleDispatcher{log: log}
}

func (d *ConsoleDispatcher) SendJobNotification(phone string, summary JobSummary) (Delivery, error) {
	delivery := Delivery{
		Id:        uuid.NewString(),
		Phone:     phone,
		Delivered: true,
		SentAt:    time.Now(),
	}
	d.log.Info("job notification",
		slog.String("delivery_id", delivery.Id),
		slog.String("phone", phone),
		slog.String("message", FormatJobSMS(summary)),
	)
	return delivery, nil
}

// FormatJobSMS renders the short-message body for a job alert.
func FormatJobSMS(summary JobSummary) string {
	return fmt.Sprintf("New %s job: %s at %s. Budget %.0f-%.0f. Open the app to respond.",
		summary.JobType, summary.Title, summary.Address, summary.BudgetMin, summary.BudgetMax)
}

// NotifyNearbyMistris fans a freshly posted job out to every available
// mistri within radiusKm of the job site. Returns the number of deliveries
// attempted.
func NotifyNearbyMistris(log *slog.Logger, d Dispatcher, j job.JobResponse, mistris []user.User, radiusKm float64) int {
	summary := JobSummary{
		Title:     j.Title,
		JobType:   j.JobType,
		Address:   j.Address,
		BudgetMin: j.BudgetMin,
		BudgetMax: j.BudgetMax,
	}

	sent := 0
	for _, m := range mistris {
		if m.Phone == "" {
			continue
		}
		if recommender.Distance(j.Latitude, j.Longitude, m.Latitude, m.Longitude) > radiusKm {
			continue
		}
		if _, err := d.SendJobNotification(m.Phone, summary); err != nil {
			log.Error("failed to notify mistri",
				slog.String("phone", m.Phone),
				slog.Attr{Key: "error", Value: slog.StringValue(err.Error())},
			)
			continue
		}
		sent++
	}
	return sent
}
