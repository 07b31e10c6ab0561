package estimator

// FlowComplete is the step value that ends the conversational flow.
const FlowComplete = "complete"

type FlowOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type FlowStep struct {
	Question  string       `json:"question"`
	Options   []FlowOption `json:"options,omitempty"`
	InputType string       `json:"input_type,omitempty"`
	Field     string       `json:"field"`
	NextStep  string       `json:"next_step"`
}

var flowSteps = map[int]FlowStep{
	1: {
		Question: "What type of work do you need?",
		Options: []FlowOption{
			{Value: "NEW_CONSTRUCTION", Label: "New Construction"},
			{Value: "RENOVATION", Label: "Renovation"},
			{Value: "REPAIR", Label: "Repair"},
			{Value: "PAINTING", Label: "Painting"},
			{Value: "PLUMBING", Label: "Plumbing"},
			{Value: "ELECTRICAL", Label: "Electrical"},
			{Value: "FLOORING", Label: "Flooring"},
			{Value: "ROOFING", Label: "Roofing"},
		},
		Field:    "work_type",
		NextStep: "2",
	},
	2: {
		Question:  "What is the approximate area in square feet?",
		InputType: "number",
		Field:     "area_sqft",
		NextStep:  "3",
	},
	3: {
		Question: "What quality level do you prefer?",
		Options: []FlowOption{
			{Value: "basic", Label: "Basic (Budget-friendly)"},
			{Value: "standard", Label: "Standard (Good quality)"},
			{Value: "premium", Label: "Premium (High-end)"},
		},
		Field:    "quality",
		NextStep: "4",
	},
	4: {
		Question: "Which city/area is this for?",
		Options: []FlowOption{
			{Value: "tier1", Label: "Metro City (Mumbai, Delhi, Bangalore, etc.)"},
			{Value: "tier2", Label: "Tier 2 City (Pune, Jaipur, Lucknow, etc.)"},
			{Value: "tier3", Label: "Tier 3 City / Rural"},
		},
		Field:    "city_tier",
		NextStep: "5",
	},
	5: {
		Question: "How urgent is this project?",
		Options: []FlowOption{
			{Value: "immediate", Label: "Immediate (Within 1 week)"},
			{Value: "urgent", Label: "Urgent (2-4 weeks)"},
			{Value: "normal", Label: "Normal (1-3 months)"},
			{Value: "flexible", Label: "Flexible (Can wait)"},
		},
		Field:    "urgency",
		NextStep: FlowComplete,
	},
}

// Step returns the question for the given flow step. Unknown steps restart
// the flow at the first question.
func (e *Estimator) Step(step int) FlowStep {
	if s, ok := flowSteps[step]; ok {
		return s
	}
	return flowSteps[1]
}
