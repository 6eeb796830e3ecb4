package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/movewise/internal/domain"
)

type createReportRequest struct {
	Params    domain.SearchParams `json:"params"`
	JobID     string              `json:"jobId,omitempty"`
	Narrative string              `json:"narrative,omitempty"`
	Timeline  *domain.Timeline    `json:"timeline,omitempty"`
}

type reportResponse struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
	Bytes     int    `json:"bytes"`
}

// ReportCmd creates the report command.
func ReportCmd() *cobra.Command {
	var (
		jobID         string
		from, to      string
		scenario      string
		narrativeFile string
		timelineFile  string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a Markdown relocation report and get a download link",
		Long: `Uploads a report built from a narrative, a timeline (JSON from 'movewise timeline --output')
and sources. With --job the job's parameters and results are used.`,
		Example: `  movewise report --job 3f2c... -f plan.md
  movewise report --from London --to Lisbon -f plan.md --timeline timeline.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := createReportRequest{
				JobID: jobID,
				Params: domain.SearchParams{
					OriginCity:      from,
					DestinationCity: to,
					Scenario:        domain.Scenario(scenario),
				},
			}
			if narrativeFile != "" {
				text, err := readTextArg(cmd.InOrStdin(), narrativeFile)
				if err != nil {
					return err
				}
				req.Narrative = text
			}
			if timelineFile != "" {
				raw, err := readTextArg(cmd.InOrStdin(), timelineFile)
				if err != nil {
					return err
				}
				var timeline domain.Timeline
				if err := json.Unmarshal([]byte(raw), &timeline); err != nil {
					return fmt.Errorf("failed to parse timeline: %w", err)
				}
				req.Timeline = &timeline
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post("/reports", req)
			if err != nil {
				return fmt.Errorf("report failed: %w", err)
			}
			var report reportResponse
			if err := json.Unmarshal(resp.Data, &report); err != nil {
				return fmt.Errorf("failed to parse report: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				return writeJSON(out, report)
			}
			fmt.Fprintf(out, "Report %s (%d bytes)\n", report.Key, report.Bytes)
			fmt.Fprintf(out, "Download (until %s):\n%s\n", report.ExpiresAt, report.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "Use this job's parameters and results")
	cmd.Flags().StringVar(&from, "from", "", "Origin city (when no --job)")
	cmd.Flags().StringVar(&to, "to", "", "Destination city (when no --job)")
	cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "Scenario key")
	cmd.Flags().StringVarP(&narrativeFile, "file", "f", "", "Narrative file, - for stdin")
	cmd.Flags().StringVar(&timelineFile, "timeline", "", "Timeline JSON file")

	return cmd
}
