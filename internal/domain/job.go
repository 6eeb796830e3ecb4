package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the status of a search job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusError:
		return true
	}
	return false
}

// SearchParams is the immutable request snapshot of a job.
type SearchParams struct {
	OriginCity         string   `json:"originCity"`
	OriginCountry      string   `json:"originCountry,omitempty"`
	DestinationCity    string   `json:"destinationCity"`
	DestinationCountry string   `json:"destinationCountry,omitempty"`
	BudgetMin          *int     `json:"budgetMin,omitempty"`
	BudgetMax          *int     `json:"budgetMax,omitempty"`
	MoveMonth          string   `json:"moveMonth,omitempty"`
	Context            string   `json:"context,omitempty"`
	Scenario           Scenario `json:"scenario"`
}

// Validate checks required fields and normalizes the scenario.
func (p *SearchParams) Validate() error {
	p.OriginCity = strings.TrimSpace(p.OriginCity)
	p.DestinationCity = strings.TrimSpace(p.DestinationCity)
	if p.OriginCity == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "originCity is required", ErrMissingRequiredField)
	}
	if p.DestinationCity == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "destinationCity is required", ErrMissingRequiredField)
	}
	scenario, err := ParseScenario(string(p.Scenario))
	if err != nil {
		return err
	}
	p.Scenario = scenario
	if p.BudgetMin != nil && p.BudgetMax != nil && *p.BudgetMin > *p.BudgetMax {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("budgetMin %d exceeds budgetMax %d", *p.BudgetMin, *p.BudgetMax))
	}
	return nil
}

// SearchJob is one asynchronous multi-category search run.
type SearchJob struct {
	ID        string                    `json:"id"`
	Status    JobStatus                 `json:"status"`
	Params    SearchParams              `json:"params"`
	Results   map[string][]SourceRecord `json:"results"`
	Errors    map[string]string         `json:"errors"`
	CreatedAt time.Time                 `json:"createdAt"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// NewSearchJob creates a pending job
func NewSearchJob(id string, params SearchParams, now time.Time) *SearchJob {
	return &SearchJob{
		ID:        id,
		Status:    JobStatusPending,
		Params:    params,
		Results:   map[string][]SourceRecord{},
		Errors:    map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy safe to hand out of a store.
func (j *SearchJob) Clone() *SearchJob {
	c := *j
	c.Results = make(map[string][]SourceRecord, len(j.Results))
	for k, v := range j.Results {
		c.Results[k] = append([]SourceRecord{}, v...)
	}
	c.Errors = make(map[string]string, len(j.Errors))
	for k, v := range j.Errors {
		c.Errors[k] = v
	}
	if j.Params.BudgetMin != nil {
		v := *j.Params.BudgetMin
		c.Params.BudgetMin = &v
	}
	if j.Params.BudgetMax != nil {
		v := *j.Params.BudgetMax
		c.Params.BudgetMax = &v
	}
	return &c
}

// JobUpdateKind says which part of a job changed.
type JobUpdateKind string

const (
	JobUpdateStatus   JobUpdateKind = "status"
	JobUpdateCategory JobUpdateKind = "category"
	JobUpdateError    JobUpdateKind = "error"
)

// JobUpdate is published after every job mutation.
type JobUpdate struct {
	JobID  string        `json:"jobId"`
	Kind   JobUpdateKind `json:"kind"`
	Key    string        `json:"key,omitempty"`
	Status JobStatus     `json:"status,omitempty"`
	At     time.Time     `json:"at"`
}
