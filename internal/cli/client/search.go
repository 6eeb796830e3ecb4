package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/movewise/internal/domain"
)

type enrichedSearchResponse struct {
	Search   *domain.RelocationSearchOutput `json:"search"`
	Insights domain.EnrichedInsights        `json:"insights"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		pf     paramsFlags
		lite   bool
		enrich bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a one-off relocation search",
		Long: `Runs the analyzed structured search and prints the condensed analysis.
With --lite the faster relocation search runs instead; --enrich adds the top sources.`,
		Example: `  movewise search --from London --to Lisbon --scenario fastest
  movewise search --from London --to Lisbon --lite --enrich`,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			out := cmd.OutOrStdout()

			if !lite {
				resp, err := api.Post("/search", pf.params())
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				var result domain.StructuredSearchOutput
				if err := json.Unmarshal(resp.Data, &result); err != nil {
					return fmt.Errorf("failed to parse search results: %w", err)
				}
				if outputJSON {
					return writeJSON(out, result)
				}
				printAnalysis(out, &result)
				return nil
			}

			path := "/search/relocation"
			if enrich {
				path += "?enrich=true"
			}
			resp, err := api.Post(path, pf.params())
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if outputJSON {
				var raw json.RawMessage = resp.Data
				return writeJSON(out, raw)
			}

			if enrich {
				var result enrichedSearchResponse
				if err := json.Unmarshal(resp.Data, &result); err != nil {
					return fmt.Errorf("failed to parse search results: %w", err)
				}
				if result.Search != nil {
					printLiteSummary(out, result.Search)
				}
				printInsights(out, result.Insights)
				return nil
			}
			var result domain.RelocationSearchOutput
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse search results: %w", err)
			}
			printLiteSummary(out, &result)
			return nil
		},
	}

	pf.register(cmd)
	cmd.Flags().BoolVar(&lite, "lite", false, "Use the lite relocation search")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "With --lite, include top sources and confidence")

	return cmd
}

func printAnalysis(out io.Writer, result *domain.StructuredSearchOutput) {
	a := result.Analysis
	fmt.Fprintf(out, "Found %d sources (confidence %.0f%%)\n\n", result.Metadata.TotalResultsFound, a.ConfidenceScore*100)
	lines := []struct{ label, value string }{
		{"Visa", a.VisaSummary},
		{"Housing", a.HousingSummary},
		{"Cost", a.CostSummary},
		{"Transport", a.TransportSummary},
		{"Education", a.EducationSummary},
		{"Pets", a.PetSummary},
		{"Total cost", a.TotalEstimatedCost},
		{"Timeline", a.EstimatedTimeline},
	}
	for _, l := range lines {
		if l.value != "" {
			fmt.Fprintf(out, "%-11s %s\n", l.label+":", l.value)
		}
	}
}

func printLiteSummary(out io.Writer, result *domain.RelocationSearchOutput) {
	s := result.Summary
	fmt.Fprintf(out, "Scenario: %s (%d sources)\n", result.ScenarioKey, result.Metadata.TotalResultsFound)
	if s.TotalCost != "" {
		fmt.Fprintf(out, "Total cost: %s\n", s.TotalCost)
	}
	if s.Timeline != "" {
		fmt.Fprintf(out, "Timeline: %s\n", s.Timeline)
	}
	fmt.Fprintf(out, "Visa: %s\n", s.VisaPath)
	fmt.Fprintf(out, "Housing: %s\n", s.HousingStrategy)
	if s.PetProcess != "" {
		fmt.Fprintf(out, "Pets: %s\n", s.PetProcess)
	}
}

func printInsights(out io.Writer, in domain.EnrichedInsights) {
	fmt.Fprintf(out, "\nConfidence: %.0f%%\n", in.Confidence*100)
	groups := []struct {
		label   string
		sources []domain.SourceRecord
	}{
		{"Visa sources", in.TopVisaSources},
		{"Housing sources", in.TopHousingSources},
		{"Cost sources", in.TopCostSources},
	}
	for _, g := range groups {
		if len(g.sources) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s:\n", g.label)
		for _, src := range g.sources {
			fmt.Fprintf(out, "  - %s\n    %s\n", src.Title, src.URL)
		}
	}
}
