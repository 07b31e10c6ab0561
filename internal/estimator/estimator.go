// Package estimator produces indicative construction cost estimates from a
// static rate table. All computation is deterministic and side-effect free.
package estimator

import "math"

type WorkType string

const (
	NewConstruction WorkType = "NEW_CONSTRUCTION"
	Renovation      WorkType = "RENOVATION"
	Repair          WorkType = "REPAIR"
	Painting        WorkType = "PAINTING"
	Plumbing        WorkType = "PLUMBING"
	Electrical      WorkType = "ELECTRICAL"
	Flooring        WorkType = "FLOORING"
	Roofing         WorkType = "ROOFING"
)

type Quality string

const (
	QualityBasic    Quality = "basic"
	QualityStandard Quality = "standard"
	QualityPremium  Quality = "premium"
)

type CityTier string

const (
	Tier1 CityTier = "tier1"
	Tier2 CityTier = "tier2"
	Tier3 CityTier = "tier3"
)

type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyNormal    Urgency = "normal"
	UrgencyFlexible  Urgency = "flexible"
)

// Config holds the rate and multiplier tables. They are injected at
// construction time so tests can substitute their own tables.
type Config struct {
	BaseRates          map[WorkType]map[Quality]float64
	CityMultipliers    map[CityTier]float64
	UrgencyMultipliers map[Urgency]float64
	Skills             map[WorkType][]string
}

// DefaultConfig returns the production rate tables, in local currency.
// PAINTING/FLOORING/ROOFING rates are per sq ft, PLUMBING is a flat bathroom
// rate and ELECTRICAL is per room.
func DefaultConfig() Config {
	return Config{
		BaseRates: map[WorkType]map[Quality]float64{
			NewConstruction: {QualityBasic: 1200, QualityStandard: 1800, QualityPremium: 2500},
			Renovation:      {QualityBasic: 800, QualityStandard: 1200, QualityPremium: 1800},
			Repair:          {QualityBasic: 500, QualityStandard: 700, QualityPremium: 1000},
			Painting:        {QualityBasic: 15, QualityStandard: 25, QualityPremium: 40},
			Plumbing:        {QualityBasic: 5000, QualityStandard: 8000, QualityPremium: 15000},
			Electrical:      {QualityBasic: 3000, QualityStandard: 5000, QualityPremium: 8000},
			Flooring:        {QualityBasic: 80, QualityStandard: 150, QualityPremium: 300},
			Roofing:         {QualityBasic: 100, QualityStandard: 180, QualityPremium: 300},
		},
		CityMultipliers: map[CityTier]float64{
			Tier1: 1.5, // metro cities
			Tier2: 1.2,
			Tier3: 1.0, // tier 3 and rural
		},
		UrgencyMultipliers: map[Urgency]float64{
			UrgencyImmediate: 1.3,
			UrgencyUrgent:    1.15,
			UrgencyNormal:    1.0,
			UrgencyFlexible:  0.95,
		},
		Skills: map[WorkType][]string{
			NewConstruction: {"masonry", "carpentry", "plumbing", "electrical", "painting"},
			Renovation:      {"masonry", "carpentry", "painting", "plumbing"},
			Repair:          {"masonry", "plastering"},
			Painting:        {"painting"},
			Plumbing:        {"plumbing"},
			Electrical:      {"electrical"},
			Flooring:        {"tiling", "flooring"},
			Roofing:         {"roofing", "waterproofing"},
		},
	}
}

type Breakdown struct {
	BaseRatePerSqft   float64 `json:"base_rate_per_sqft"`
	TotalAreaSqft     float64 `json:"total_area_sqft"`
	BaseCost          float64 `json:"base_cost"`
	CityMultiplier    float64 `json:"city_multiplier"`
	UrgencyMultiplier float64 `json:"urgency_multiplier"`
}

type Estimate struct {
	BudgetMin             float64   `json:"budget_min"`
	BudgetMax             float64   `json:"budget_max"`
	EstimatedCost         float64   `json:"estimated_cost"`
	Breakdown             Breakdown `json:"breakdown"`
	RequiredSkills        []string  `json:"required_skills"`
	EstimatedDurationDays int       `json:"estimated_duration_days"`
	Disclaimer            string    `json:"disclaimer"`
}

const disclaimer = "This is an indicative budget estimate. Actual costs may vary based on material choices, site conditions, and contractor rates."

type Estimator struct {
	cfg Config
}

func New(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate computes a cost range, duration and skill list for a work
// request. Unknown work types fall back to RENOVATION and unknown quality to
// standard; the output range is a fixed ±15% band around the adjusted cost.
func (e *Estimator) Estimate(workType WorkType, areaSqft float64, quality Quality, cityTier CityTier, urgency Urgency) Estimate {
	rates, ok := e.cfg.BaseRates[workType]
	if !ok {
		workType = Renovation
		rates = e.cfg.BaseRates[workType]
	}

	rate, ok := rates[quality]
	if !ok {
		rate = rates[QualityStandard]
	}

	baseCost := rate * areaSqft

	cityMult, ok := e.cfg.CityMultipliers[cityTier]
	if !ok {
		cityMult = 1.0
	}
	urgencyMult, ok := e.cfg.UrgencyMultipliers[urgency]
	if !ok {
		urgencyMult = 1.0
	}

	total := baseCost * cityMult * urgencyMult

	return Estimate{
		BudgetMin:     round2(total * 0.85),
		BudgetMax:     round2(total * 1.15),
		EstimatedCost: round2(total),
		Breakdown: Breakdown{
			BaseRatePerSqft:   rate,
			TotalAreaSqft:     areaSqft,
			BaseCost:          round2(baseCost),
			CityMultiplier:    cityMult,
			UrgencyMultiplier: urgencyMult,
		},
		RequiredSkills:        e.RequiredSkills(workType),
		EstimatedDurationDays: e.Duration(workType, areaSqft),
		Disclaimer:            disclaimer,
	}
}

// RequiredSkills returns the trades a work type calls for.
func (e *Estimator) RequiredSkills(workType WorkType) []string {
	if skills, ok := e.cfg.Skills[workType]; ok {
		return skills
	}
	return []string{"general masonry"}
}

// Duration estimates the project length in days, never below 7.
func (e *Estimator) Duration(workType WorkType, areaSqft float64) int {
	var days float64
	switch workType {
	case NewConstruction:
		days = areaSqft / 100 * 30
	case Renovation, Repair:
		days = areaSqft / 100 * 15
	default:
		days = areaSqft / 100 * 7
	}

	d := int(days)
	if d < 7 {
		return 7
	}
	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
