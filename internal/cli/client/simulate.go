package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/movewise/internal/domain"
)

type narrativeRequest struct {
	domain.SearchParams
	BudgetRange string `json:"budgetRange,omitempty"`
	Enrich      bool   `json:"enrich"`
}

type narrativeResult struct {
	Scenario    string                           `json:"scenario"`
	Label       string                           `json:"label"`
	Narrative   string                           `json:"narrative"`
	TopSources  map[string][]domain.SourceRecord `json:"topSources,omitempty"`
	Analysis    *domain.Analysis                 `json:"analysis,omitempty"`
	SearchError string                           `json:"searchError,omitempty"`
}

type timelineRequest struct {
	ScenarioKey   string         `json:"scenarioKey"`
	ScenarioTitle string         `json:"scenarioTitle,omitempty"`
	Narrative     string         `json:"narrative"`
	Preferences   map[string]any `json:"preferences,omitempty"`
}

// NarrativeCmd creates the narrative command.
func NarrativeCmd() *cobra.Command {
	var (
		pf          paramsFlags
		budgetRange string
		enrich      bool
	)

	cmd := &cobra.Command{
		Use:   "narrative",
		Short: "Stream a relocation simulation for one scenario",
		Long:  "Streams the scenario narrative as it is written. --enrich grounds it in a live search first.",
		Example: `  movewise narrative --from London --to Lisbon --scenario luxury --enrich
  movewise narrative --from Leeds --to Porto --budget-range "£5k-£8k" > plan.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			out := cmd.OutOrStdout()

			req := narrativeRequest{SearchParams: pf.params(), BudgetRange: budgetRange, Enrich: enrich}
			return api.Stream(http.MethodPost, "/simulations/narrative", req, func(event string, data []byte) error {
				switch event {
				case "chunk":
					if outputJSON {
						return nil
					}
					var chunk struct {
						Text string `json:"text"`
					}
					if err := json.Unmarshal(data, &chunk); err != nil {
						return fmt.Errorf("failed to parse chunk: %w", err)
					}
					_, err := io.WriteString(out, chunk.Text)
					return err
				case "result":
					var result narrativeResult
					if err := json.Unmarshal(data, &result); err != nil {
						return fmt.Errorf("failed to parse narrative: %w", err)
					}
					if outputJSON {
						return writeJSON(out, result)
					}
					fmt.Fprintln(out)
					printTopSources(cmd.ErrOrStderr(), result)
				case "error":
					var e struct {
						Error string `json:"error"`
					}
					_ = json.Unmarshal(data, &e)
					return fmt.Errorf("narrative failed: %s", e.Error)
				}
				return nil
			})
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&budgetRange, "budget-range", "", "Budget range text, overrides --budget-min/--budget-max")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "Run a structured search first and cite it")

	return cmd
}

func printTopSources(out io.Writer, result narrativeResult) {
	if result.SearchError != "" {
		fmt.Fprintf(out, "\n(enrichment failed: %s)\n", result.SearchError)
	}
	if len(result.TopSources) == 0 {
		return
	}
	fmt.Fprintln(out, "\nSources:")
	for _, key := range sortedKeys(result.TopSources) {
		for _, src := range result.TopSources[key] {
			fmt.Fprintf(out, "  [%s] %s\n", key, src.URL)
		}
	}
}

// TimelineCmd creates the timeline command.
func TimelineCmd() *cobra.Command {
	var (
		scenario      string
		title         string
		narrativeFile string
		prefs         map[string]string
	)

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Extract a phased timeline from a narrative",
		Long:  "Reads a narrative from a file (or stdin with -) and prints the structured timeline.",
		Example: `  movewise narrative --from London --to Lisbon | movewise timeline --scenario balanced -f -
  movewise timeline -f plan.md --pref pets=true --pref family_size=3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			narrative, err := readTextArg(cmd.InOrStdin(), narrativeFile)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/simulations/timeline", timelineRequest{
				ScenarioKey:   scenario,
				ScenarioTitle: title,
				Narrative:     narrative,
				Preferences:   parsePreferences(prefs),
			})
			if err != nil {
				return fmt.Errorf("timeline failed: %w", err)
			}
			var timeline domain.Timeline
			if err := json.Unmarshal(resp.Data, &timeline); err != nil {
				return fmt.Errorf("failed to parse timeline: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				return writeJSON(out, timeline)
			}
			printTimeline(out, &timeline)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenario, "scenario", "s", string(domain.ScenarioBalanced), "Scenario key")
	cmd.Flags().StringVar(&title, "title", "", "Scenario title (defaults to the scenario label)")
	cmd.Flags().StringVarP(&narrativeFile, "file", "f", "", "Narrative file, - for stdin (required)")
	cmd.Flags().StringToStringVar(&prefs, "pref", nil, "Preference key=value, repeatable")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// parsePreferences keeps booleans and numbers typed so the model sees JSON values.
func parsePreferences(raw map[string]string) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	prefs := make(map[string]any, len(raw))
	for k, v := range raw {
		var typed any
		if err := json.Unmarshal([]byte(v), &typed); err == nil {
			if _, isString := typed.(string); !isString && typed != nil {
				prefs[k] = typed
				continue
			}
		}
		prefs[k] = v
	}
	return prefs
}

func printTimeline(out io.Writer, t *domain.Timeline) {
	fmt.Fprintf(out, "%s\n", t.Headline)
	fmt.Fprintf(out, "Timeframe: %d months, budget about $%.0f (confidence %.0f%%)\n",
		t.TimeframeMonths, t.BudgetTotalUSD, t.Confidence*100)
	for _, p := range t.Phases {
		fmt.Fprintf(out, "\n%s (month %d-%d)\n", p.Name, p.StartMonth, p.EndMonth)
		for _, task := range p.Tasks {
			fmt.Fprintf(out, "  - %s (%.0f weeks)\n", task.Title, task.DurationWeeks)
		}
	}
	if len(t.Milestones) > 0 {
		fmt.Fprintln(out, "\nMilestones:")
		for _, m := range t.Milestones {
			fmt.Fprintf(out, "  month %g: %s\n", m.Month, m.Title)
		}
	}
	if strings.TrimSpace(t.Notes) != "" {
		fmt.Fprintf(out, "\nNotes: %s\n", t.Notes)
	}
}

func readTextArg(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
