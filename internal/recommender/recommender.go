// Package recommender ranks the pending bids on a job with a weighted,
// explainable score over rating, price, distance and availability.
package recommender

import (
	"math"
	"sort"

	"github.com/sonam1711/innerve-mistribazaar/internal/models/bid"
	"github.com/sonam1711/innerve-mistribazaar/internal/models/job"
)

const earthRadiusKm = 6371

// MissingDistanceKm stands in for bidders without coordinates so that ranking
// sorts them last instead of failing on nulls.
const MissingDistanceKm = 999999

// Weights holds the relative importance of each scoring criterion. The four
// values must sum to 1.
type Weights struct {
	Rating       float64
	Price        float64
	Distance     float64
	Availability float64
}

func DefaultWeights() Weights {
	return Weights{
		Rating:       0.4,
		Price:        0.3,
		Distance:     0.2,
		Availability: 0.1,
	}
}

// Candidate is one pending bid together with the bidder attributes the
// scorer needs. Latitude/Longitude may be nil when the bidder has no
// location on file.
type Candidate struct {
	Bid       bid.BidResponse
	Rating    float64
	Latitude  *float64
	Longitude *float64
	Available bool
}

// ComponentScores are the per-criterion scores on a 0-100 scale.
type ComponentScores struct {
	Rating       float64 `json:"rating"`
	Price        float64 `json:"price"`
	Distance     float64 `json:"distance"`
	Availability float64 `json:"availability"`
}

// ScoredBid is computed fresh on every ranking request and never persisted.
type ScoredBid struct {
	Bid        bid.BidResponse `json:"bid"`
	Score      float64         `json:"score"`
	Scores     ComponentScores `json:"scores"`
	DistanceKm float64         `json:"distance_km"`
	Reason     string          `json:"reason"`
}

type Recommender struct {
	w Weights
}

func New(w Weights) *Recommender {
	return &Recommender{w: w}
}

// Distance returns the great-circle distance between two points in
// kilometers using the Haversine formula. Any missing coordinate yields
// MissingDistanceKm.
func Distance(lat1, lon1, lat2, lon2 *float64) float64 {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return MissingDistanceKm
	}

	rlat1 := *lat1 * math.Pi / 180
	rlon1 := *lon1 * math.Pi / 180
	rlat2 := *lat2 * math.Pi / 180
	rlon2 := *lon2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusKm * c
}

// Normalize scales value into [0,1] against the cohort's min and max. With
// invert, lower values score higher. A degenerate cohort (min == max) is
// neutral 0.5.
func Normalize(value, min, max float64, invert bool) float64 {
	if max == min {
		return 0.5
	}

	n := (value - min) / (max - min)
	if invert {
		n = 1 - n
	}

	return math.Max(0, math.Min(1, n))
}

// Score annotates every candidate with a 0-100 composite score and a
// one-line reason, sorted best first. An empty candidate set returns an
// empty ranking.
func (r *Recommender) Score(j job.JobResponse, cands []Candidate) []ScoredBid {
	if len(cands) == 0 {
		return []ScoredBid{}
	}

	ratings := make([]float64, len(cands))
	prices := make([]float64, len(cands))
	distances := make([]float64, len(cands))
	for i, c := range cands {
		ratings[i] = c.Rating
		prices[i] = c.Bid.Amount
		distances[i] = Distance(j.Latitude, j.Longitude, c.Latitude, c.Longitude)
	}

	minRating, maxRating := minMax(ratings)
	minPrice, maxPrice := minMax(prices)
	minDistance, maxDistance := minMax(distances)

	scored := make([]ScoredBid, 0, len(cands))
	for i, c := range cands {
		ratingScore := Normalize(ratings[i], minRating, maxRating, false)
		priceScore := Normalize(prices[i], minPrice, maxPrice, true)
		distanceScore := Normalize(distances[i], minDistance, maxDistance, true)

		// Unavailable providers are penalized, never excluded.
		availabilityScore := 0.5
		if c.Available {
			availabilityScore = 1.0
		}

		total := ratingScore*r.w.Rating +
			priceScore*r.w.Price +
			distanceScore*r.w.Distance +
			availabilityScore*r.w.Availability

		scored = append(scored, ScoredBid{
			Bid:   c.Bid,
			Score: round2(total * 100),
			Scores: ComponentScores{
				Rating:       round2(ratingScore * 100),
				Price:        round2(priceScore * 100),
				Distance:     round2(distanceScore * 100),
				Availability: round2(availabilityScore * 100),
			},
			DistanceKm: round2(distances[i]),
			Reason:     reason(ratingScore, priceScore, distanceScore, availabilityScore),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// reason names the strongest criterion; when two or more score above 0.7 the
// first two in rating, price, distance, availability order are joined with
// "&".
func reason(rating, price, distance, availability float64) string {
	type criterion struct {
		label string
		score float64
	}
	crits := []criterion{
		{"Highest rated", rating},
		{"Best value", price},
		{"Nearest", distance},
		{"Available now", availability},
	}

	high := make([]string, 0, 2)
	top := crits[0]
	for _, c := range crits {
		if c.score > top.score {
			top = c
		}
		if c.score > 0.7 && len(high) < 2 {
			high = append(high, c.label)
		}
	}

	if len(high) > 1 {
		return high[0] + " & " + high[1]
	}

	return top.label
}

func minMax(vals []float64) (float64, float64) {
	min, max := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
