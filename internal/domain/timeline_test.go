package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestRawTimelineNormalize(t *testing.T) {
	raw := RawTimeline{
		Headline:        "Lisbon in six months",
		BudgetTotalUSD:  f(-100),
		TimeframeMonths: f(5.6),
		Phases: []RawPhase{
			{Name: "Prep", StartMonth: f(-1), EndMonth: f(1.4)},
			{Name: "Move", StartMonth: f(4), EndMonth: f(2)},
			{Name: "Settle", StartMonth: f(2.5), EndMonth: nil},
		},
		Milestones: []RawMilestone{{Title: "Visa", Month: f(-3)}},
	}

	tl := raw.Normalize()

	assert.Equal(t, 0.0, tl.BudgetTotalUSD)
	assert.Equal(t, 6, tl.TimeframeMonths)
	assert.Equal(t, DefaultTimelineConfidence, tl.Confidence)
	require.Len(t, tl.Phases, 3)
	assert.Equal(t, 0, tl.Phases[0].StartMonth)
	assert.Equal(t, 1, tl.Phases[0].EndMonth)
	assert.Equal(t, 4, tl.Phases[1].StartMonth)
	assert.Equal(t, 4, tl.Phases[1].EndMonth)
	assert.Equal(t, 3, tl.Phases[2].StartMonth)
	assert.Equal(t, 3, tl.Phases[2].EndMonth)
	assert.Equal(t, 0.0, tl.Milestones[0].Month)

	for _, p := range tl.Phases {
		assert.GreaterOrEqual(t, p.StartMonth, 0)
		assert.GreaterOrEqual(t, p.EndMonth, p.StartMonth)
	}
}

func TestRawTimelineNormalize_MonthCeiling(t *testing.T) {
	tests := []struct {
		name      string
		raw       RawTimeline
		timeframe int
		start     int
		end       int
	}{
		{
			name: "huge values",
			raw: RawTimeline{
				TimeframeMonths: f(1e20),
				Phases:          []RawPhase{{StartMonth: f(1e20), EndMonth: f(-3)}},
			},
			timeframe: MaxTimelineMonths,
			start:     MaxTimelineMonths,
			end:       MaxTimelineMonths,
		},
		{
			name: "infinities",
			raw: RawTimeline{
				TimeframeMonths: f(math.Inf(1)),
				Phases:          []RawPhase{{StartMonth: f(math.Inf(-1)), EndMonth: f(math.Inf(1))}},
			},
			timeframe: MaxTimelineMonths,
			start:     0,
			end:       MaxTimelineMonths,
		},
		{
			name: "just over the ceiling",
			raw: RawTimeline{
				Phases: []RawPhase{{StartMonth: f(3), EndMonth: f(MaxTimelineMonths + 0.9)}},
			},
			start: 3,
			end:   MaxTimelineMonths,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := tt.raw.Normalize()

			assert.Equal(t, tt.timeframe, tl.TimeframeMonths)
			require.Len(t, tl.Phases, 1)
			p := tl.Phases[0]
			assert.Equal(t, tt.start, p.StartMonth)
			assert.Equal(t, tt.end, p.EndMonth)
			assert.GreaterOrEqual(t, p.StartMonth, 0)
			assert.GreaterOrEqual(t, p.EndMonth, p.StartMonth)
		})
	}
}

func TestRawTimelineNormalize_MilestoneMonthCeiling(t *testing.T) {
	tl := RawTimeline{Milestones: []RawMilestone{{Title: "Far", Month: f(5000)}}}.Normalize()

	assert.Equal(t, float64(MaxTimelineMonths), tl.Milestones[0].Month)
}

func TestRawTimelineNormalize_TaskCapAndClamp(t *testing.T) {
	tasks := make([]RawTask, 9)
	for i := range tasks {
		tasks[i] = RawTask{Title: "t", CostUSD: f(-5), DurationWeeks: f(-1)}
	}
	raw := RawTimeline{
		Phases:     []RawPhase{{Name: "Prep", StartMonth: f(0), EndMonth: f(1), Tasks: tasks}},
		Confidence: f(3),
	}

	tl := raw.Normalize()

	require.Len(t, tl.Phases[0].Tasks, MaxTasksPerPhase)
	assert.Equal(t, 0.0, tl.Phases[0].Tasks[0].CostUSD)
	assert.Equal(t, 0.0, tl.Phases[0].Tasks[0].DurationWeeks)
	assert.Equal(t, 1.0, tl.Confidence)
}

func TestRawTimelineNormalize_Empty(t *testing.T) {
	tl := RawTimeline{}.Normalize()

	assert.NotNil(t, tl.Phases)
	assert.NotNil(t, tl.Milestones)
	assert.Equal(t, 0, tl.TimeframeMonths)
}
