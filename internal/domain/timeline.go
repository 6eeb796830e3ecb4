package domain

import "math"

const (
	// MaxTasksPerPhase caps the tasks kept for a single phase.
	MaxTasksPerPhase = 6
	// DefaultTimelineConfidence is used when the model omits confidence.
	DefaultTimelineConfidence = 0.7
	// MaxTimelineMonths bounds every month value of a timeline.
	MaxTimelineMonths = 1200
)

// Timeline is the structured plan derived from a narrative.
type Timeline struct {
	Headline        string      `json:"headline"`
	BudgetTotalUSD  float64     `json:"budget_total_usd"`
	TimeframeMonths int         `json:"timeframe_months"`
	Phases          []Phase     `json:"phases"`
	Milestones      []Milestone `json:"milestones"`
	Notes           string      `json:"notes"`
	Confidence      float64     `json:"confidence"`
}

type Phase struct {
	Name       string `json:"name"`
	StartMonth int    `json:"start_month"`
	EndMonth   int    `json:"end_month"`
	Summary    string `json:"summary"`
	Tasks      []Task `json:"tasks"`
}

type Task struct {
	Title         string  `json:"title"`
	Desc          string  `json:"desc"`
	CostUSD       float64 `json:"cost_usd"`
	DurationWeeks float64 `json:"duration_weeks"`
	Milestone     bool    `json:"milestone"`
}

type Milestone struct {
	Title string  `json:"title"`
	Month float64 `json:"month"`
	Note  string  `json:"note"`
}

// RawTimeline mirrors Timeline with loose numeric types, as returned by a model.
type RawTimeline struct {
	Headline        string         `json:"headline"`
	BudgetTotalUSD  *float64       `json:"budget_total_usd"`
	TimeframeMonths *float64       `json:"timeframe_months"`
	Phases          []RawPhase     `json:"phases"`
	Milestones      []RawMilestone `json:"milestones"`
	Notes           string         `json:"notes"`
	Confidence      *float64       `json:"confidence"`
}

type RawPhase struct {
	Name       string    `json:"name"`
	StartMonth *float64  `json:"start_month"`
	EndMonth   *float64  `json:"end_month"`
	Summary    string    `json:"summary"`
	Tasks      []RawTask `json:"tasks"`
}

type RawTask struct {
	Title         string   `json:"title"`
	Desc          string   `json:"desc"`
	CostUSD       *float64 `json:"cost_usd"`
	DurationWeeks *float64 `json:"duration_weeks"`
	Milestone     bool     `json:"milestone"`
}

type RawMilestone struct {
	Title string   `json:"title"`
	Month *float64 `json:"month"`
	Note  string   `json:"note"`
}

// Normalize clamps negative numbers to zero, months to MaxTimelineMonths, and rounds the
// integer fields. A phase ending before it starts is collapsed onto its start month.
func (r RawTimeline) Normalize() Timeline {
	t := Timeline{
		Headline:        r.Headline,
		BudgetTotalUSD:  nonNegative(r.BudgetTotalUSD),
		TimeframeMonths: monthInt(r.TimeframeMonths),
		Phases:          make([]Phase, 0, len(r.Phases)),
		Milestones:      make([]Milestone, 0, len(r.Milestones)),
		Notes:           r.Notes,
		Confidence:      DefaultTimelineConfidence,
	}
	if r.Confidence != nil {
		t.Confidence = ClampUnit(*r.Confidence)
	}

	for _, rp := range r.Phases {
		p := Phase{
			Name:       rp.Name,
			StartMonth: monthInt(rp.StartMonth),
			EndMonth:   monthInt(rp.EndMonth),
			Summary:    rp.Summary,
			Tasks:      make([]Task, 0, len(rp.Tasks)),
		}
		if p.EndMonth < p.StartMonth {
			p.EndMonth = p.StartMonth
		}
		for i, rt := range rp.Tasks {
			if i == MaxTasksPerPhase {
				break
			}
			p.Tasks = append(p.Tasks, Task{
				Title:         rt.Title,
				Desc:          rt.Desc,
				CostUSD:       nonNegative(rt.CostUSD),
				DurationWeeks: nonNegative(rt.DurationWeeks),
				Milestone:     rt.Milestone,
			})
		}
		t.Phases = append(t.Phases, p)
	}

	for _, rm := range r.Milestones {
		t.Milestones = append(t.Milestones, Milestone{
			Title: rm.Title,
			Month: month(rm.Month),
			Note:  rm.Note,
		})
	}

	return t
}

// nonNegative maps nil, NaN, infinities and negatives to zero.
func nonNegative(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0
	}
	return *v
}

// month is v clamped to [0, MaxTimelineMonths]; +Inf becomes the ceiling.
func month(v *float64) float64 {
	if v != nil && math.IsInf(*v, 1) {
		return MaxTimelineMonths
	}
	return math.Min(nonNegative(v), MaxTimelineMonths)
}

func monthInt(v *float64) int {
	return int(math.Round(month(v)))
}
