package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/telemetry"
)

const (
	reportContentType  = "text/markdown; charset=utf-8"
	reportKeyPrefix    = "reports/"
	reportSourcesLimit = 5
	// DefaultReportURLTTL is how long a presigned report link stays valid.
	DefaultReportURLTTL = 24 * time.Hour
)

// ReportRequest collects what goes into a relocation report. When JobID is set and
// Sources is empty, the job's results become the sources.
type ReportRequest struct {
	Params    domain.SearchParams
	JobID     string
	Narrative string
	Timeline  *domain.Timeline
	Sources   map[string][]domain.SourceRecord
}

// Report points at an uploaded report artifact.
type Report struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
	Bytes     int       `json:"bytes"`
}

// ReportService renders Markdown relocation reports and stores them in object storage.
type ReportService struct {
	store   ObjectStore
	jobs    SearchJobRepository
	uuidGen UUIDGenerator
	ttl     time.Duration
	now     func() time.Time
}

// NewReportService creates a ReportService. jobs may be nil.
func NewReportService(store ObjectStore, jobs SearchJobRepository) *ReportService {
	return &ReportService{
		store:   store,
		jobs:    jobs,
		uuidGen: &DefaultUUIDGenerator{},
		ttl:     DefaultReportURLTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewReportServiceWithUUIDGen creates a ReportService with custom UUID generator (for testing)
func NewReportServiceWithUUIDGen(store ObjectStore, jobs SearchJobRepository, uuidGen UUIDGenerator) *ReportService {
	s := NewReportService(store, jobs)
	s.uuidGen = uuidGen
	return s
}

func (s *ReportService) CreateReport(ctx context.Context, req ReportRequest) (*Report, error) {
	if s.store == nil {
		return nil, domain.ErrServiceNotConfigured
	}

	ctx, span := telemetry.StartSpan(ctx, "Report.Create", telemetry.SpanAttributes{
		JobID:     req.JobID,
		Operation: "report",
	})
	defer span.End()

	if req.JobID != "" && s.jobs != nil {
		job, err := s.jobs.GetByID(ctx, req.JobID)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.Params.DestinationCity) == "" {
			req.Params = job.Params
		}
		if len(req.Sources) == 0 {
			req.Sources = job.Results
		}
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Narrative) == "" && req.Timeline == nil && len(req.Sources) == 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "report needs a narrative, a timeline or sources", domain.ErrMissingRequiredField)
	}

	body := []byte(RenderReport(req, s.now()))
	key := reportKeyPrefix + s.uuidGen.NewString() + ".md"
	if err := s.store.PutObject(ctx, key, reportContentType, body); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("upload report: %w", err)
	}
	url, err := s.store.PresignDownload(ctx, key, s.ttl)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("presign report: %w", err)
	}

	return &Report{Key: key, URL: url, ExpiresAt: s.now().Add(s.ttl), Bytes: len(body)}, nil
}

// RenderReport formats a report as Markdown.
func RenderReport(req ReportRequest, generatedAt time.Time) string {
	p := req.Params
	var b strings.Builder
	fmt.Fprintf(&b, "# Relocation report: %s to %s\n\n", place(p.OriginCity, p.OriginCountry), place(p.DestinationCity, p.DestinationCountry))
	fmt.Fprintf(&b, "_Scenario: %s (%s). Generated %s._\n\n", p.Scenario.Label(), p.Scenario, generatedAt.Format(time.RFC1123))

	if budget := budgetRange(p.BudgetMin, p.BudgetMax); budget != "" {
		fmt.Fprintf(&b, "- Budget: %s\n", budget)
	}
	if p.MoveMonth != "" {
		fmt.Fprintf(&b, "- Move month: %s\n", p.MoveMonth)
	}
	if p.Context != "" {
		fmt.Fprintf(&b, "- Context: %s\n", p.Context)
	}
	b.WriteString("\n")

	if n := strings.TrimSpace(req.Narrative); n != "" {
		b.WriteString("## Simulation\n\n")
		b.WriteString(n)
		b.WriteString("\n\n")
	}

	if tl := req.Timeline; tl != nil {
		b.WriteString("## Timeline\n\n")
		if tl.Headline != "" {
			fmt.Fprintf(&b, "**%s**\n\n", tl.Headline)
		}
		fmt.Fprintf(&b, "Total budget: $%s. Timeframe: %d months. Confidence: %.0f%%.\n\n",
			GroupThousands(int(tl.BudgetTotalUSD)), tl.TimeframeMonths, tl.Confidence*100)
		if len(tl.Phases) > 0 {
			b.WriteString("| Phase | Months | Summary |\n|---|---|---|\n")
			for _, ph := range tl.Phases {
				fmt.Fprintf(&b, "| %s | %d-%d | %s |\n", cell(ph.Name), ph.StartMonth, ph.EndMonth, cell(ph.Summary))
			}
			b.WriteString("\n")
		}
		for _, m := range tl.Milestones {
			fmt.Fprintf(&b, "- Month %g: %s", m.Month, m.Title)
			if m.Note != "" {
				fmt.Fprintf(&b, " (%s)", m.Note)
			}
			b.WriteString("\n")
		}
		if tl.Notes != "" {
			fmt.Fprintf(&b, "\n%s\n", tl.Notes)
		}
		b.WriteString("\n")
	}

	if len(req.Sources) > 0 {
		b.WriteString("## Sources\n\n")
		for _, c := range domain.CategorySetExtended.Categories() {
			items := req.Sources[string(c)]
			if len(items) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n", c)
			for _, r := range top(items, reportSourcesLimit) {
				title := r.Title
				if title == "" {
					title = r.URL
				}
				fmt.Fprintf(&b, "- [%s](%s)\n", title, r.URL)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", "/"), "\n", " ")
}
