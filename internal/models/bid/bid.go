package bid

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusWithdrawn Status = "WITHDRAWN"
)

type BidRequest struct {
	JobId         int64   `json:"job" validate:"required"`
	Amount        float64 `json:"bid_amount" validate:"gte=0"`
	EstimatedDays int     `json:"estimated_days" validate:"required,gt=0"`
	Message       string  `json:"message"`
}

type BidResponse struct {
	Id            int64     `json:"id"`
	JobId         int64     `json:"job"`
	BidderId      int64     `json:"bidder"`
	BidderName    string    `json:"bidder_name,omitempty"`
	BidderRating  float64   `json:"bidder_rating"`
	Amount        float64   `json:"bid_amount"`
	EstimatedDays int       `json:"estimated_days"`
	Message       string    `json:"message"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// AcceptanceRequest is a mistri's direct accept/reject response to a
// JOB-category job. There is no price negotiation, so acceptances are created
// already in their decided state.
type AcceptanceRequest struct {
	JobId  int64  `json:"job" validate:"required"`
	Status string `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
	Note   string `json:"note"`
}

type AcceptanceResponse struct {
	Id         int64     `json:"id"`
	JobId      int64     `json:"job"`
	MistriId   int64     `json:"mistri"`
	MistriName string    `json:"mistri_name,omitempty"`
	Status     string    `json:"status"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}
