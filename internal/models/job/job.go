package job

import (
	"fmt"
	"time"
)

// Category decides which workflow applies to a posting: PROJECT jobs collect
// competitive bids, JOB jobs collect direct accept/reject responses.
type Category string

const (
	CategoryProject Category = "PROJECT"
	CategoryJob     Category = "JOB"
)

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	switch c {
	case CategoryProject, CategoryJob:
		return c, nil
	}
	return "", fmt.Errorf("unknown job category %q", s)
}

type JobRequest struct {
	Category        string   `json:"category" validate:"required,oneof=PROJECT JOB"`
	JobType         string   `json:"job_type" validate:"required,oneof=REPAIR CONSTRUCTION"`
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description"`
	BudgetMin       float64  `json:"budget_min" validate:"gte=0"`
	BudgetMax       float64  `json:"budget_max" validate:"gtefield=BudgetMin"`
	Latitude        *float64 `json:"latitude" validate:"required"`
	Longitude       *float64 `json:"longitude" validate:"required"`
	Address         string   `json:"address"`
	Deadline        string   `json:"deadline,omitempty"`
	CreatorUsername string   `json:"creatorUsername" validate:"required"`
}

type JobResponse struct {
	Id                 int64     `json:"id"`
	Category           string    `json:"category"`
	JobType            string    `json:"job_type"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	BudgetMin          float64   `json:"budget_min"`
	BudgetMax          float64   `json:"budget_max"`
	Latitude           *float64  `json:"latitude"`
	Longitude          *float64  `json:"longitude"`
	Address            string    `json:"address"`
	Status             string    `json:"status"`
	SelectedProviderId *int64    `json:"selected_provider_id,omitempty"`
	Deadline           *string   `json:"deadline,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type StatusPatchRequest struct {
	Status string `json:"status" validate:"required"`
}

// NearbyJob is a listing entry annotated with the distance to the caller.
type NearbyJob struct {
	JobResponse
	DistanceKm float64 `json:"distance_km"`
}
