package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/movewise/internal/domain"
)

type createJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

type jobListResponse struct {
	Items   []*domain.SearchJob `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

// JobsCmd creates the jobs parent command.
func JobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Create and follow multi-category search jobs",
	}

	cmd.AddCommand(jobsCreateCmd())
	cmd.AddCommand(jobsGetCmd())
	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsRunCmd())
	cmd.AddCommand(jobsWatchCmd())

	return cmd
}

func jobsCreateCmd() *cobra.Command {
	var (
		pf    paramsFlags
		run   bool
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pending search job",
		Long:  "Creates a search job. Without --run the job waits for a worker to claim it.",
		Example: `  movewise jobs create --from London --to Lisbon --scenario cheapest --run --watch
  movewise jobs create --from Leeds --to Porto -c "moving with my partner and a cat"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			resp, err := api.Post("/jobs", pf.params())
			if err != nil {
				return fmt.Errorf("failed to create job: %w", err)
			}
			var created createJobResponse
			if err := json.Unmarshal(resp.Data, &created); err != nil {
				return fmt.Errorf("failed to parse job: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON && !watch {
				if err := writeJSON(out, created); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Created job %s (%s)\n", created.JobID, created.Status)
			}

			if run {
				if _, err := api.Post("/jobs/"+url.PathEscape(created.JobID)+"/run", nil); err != nil {
					return fmt.Errorf("failed to start job: %w", err)
				}
			}
			if watch {
				return watchJob(api, out, created.JobID, outputJSON)
			}
			return nil
		},
	}

	pf.register(cmd)
	cmd.Flags().BoolVar(&run, "run", false, "Start the job right away instead of waiting for a worker")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it finishes")

	return cmd
}

func jobsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <job_id>",
		Aliases: []string{"view"},
		Short:   "Show a job with its results",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get("/jobs/" + url.PathEscape(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get job: %w", err)
			}
			var job domain.SearchJob
			if err := json.Unmarshal(resp.Data, &job); err != nil {
				return fmt.Errorf("failed to parse job: %w", err)
			}

			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				return writeJSON(cmd.OutOrStdout(), job)
			}
			printJob(cmd.OutOrStdout(), &job, true)
			return nil
		},
	}
}

func jobsListCmd() *cobra.Command {
	var (
		status string
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if status != "" {
				q.Set("status", status)
			}
			if cursor != "" {
				q.Set("cursor", cursor)
			}
			resp, err := api.Get("/jobs?" + q.Encode())
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}
			var list jobListResponse
			if err := json.Unmarshal(resp.Data, &list); err != nil {
				return fmt.Errorf("failed to parse jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				return writeJSON(out, list)
			}
			if len(list.Items) == 0 {
				fmt.Fprintln(out, "No jobs found.")
				return nil
			}
			for _, job := range list.Items {
				fmt.Fprintf(out, "%s  %-9s  %s -> %s (%s)  %s\n",
					job.ID, job.Status, job.Params.OriginCity, job.Params.DestinationCity,
					job.Params.Scenario, job.CreatedAt.Format("2006-01-02 15:04"))
			}
			if list.HasMore {
				fmt.Fprintf(out, "\nMore results: --cursor %s\n", list.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, running, completed, error)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func jobsRunCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <job_id>",
		Short: "Start a pending job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Post("/jobs/"+url.PathEscape(args[0])+"/run", nil); err != nil {
				return fmt.Errorf("failed to start job: %w", err)
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			if watch {
				return watchJob(api, cmd.OutOrStdout(), args[0], outputJSON)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s accepted\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it finishes")

	return cmd
}

func jobsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job_id>",
		Short: "Follow a job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return watchJob(api, cmd.OutOrStdout(), args[0], outputJSON)
		},
	}
}

// watchJob prints a progress line per snapshot and the full job once it is terminal.
func watchJob(api *APIClient, out io.Writer, id string, outputJSON bool) error {
	var last *domain.SearchJob
	err := api.Stream(http.MethodGet, "/jobs/"+url.PathEscape(id)+"/events", nil, func(event string, data []byte) error {
		switch event {
		case "job":
			var job domain.SearchJob
			if err := json.Unmarshal(data, &job); err != nil {
				return fmt.Errorf("failed to parse job event: %w", err)
			}
			last = &job
			if !outputJSON {
				fmt.Fprintf(out, "%s  %d categories done, %d failed\n", job.Status, len(job.Results), len(job.Errors))
			}
		case "error":
			return fmt.Errorf("job stream failed: %s", data)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if last == nil {
		return nil
	}
	if outputJSON {
		return writeJSON(out, last)
	}
	fmt.Fprintln(out)
	printJob(out, last, true)
	return nil
}

func printJob(out io.Writer, job *domain.SearchJob, withResults bool) {
	fmt.Fprintf(out, "Job: %s\n", job.ID)
	fmt.Fprintf(out, "Status: %s\n", job.Status)
	fmt.Fprintf(out, "Route: %s -> %s (%s)\n", job.Params.OriginCity, job.Params.DestinationCity, job.Params.Scenario)
	if job.Params.Context != "" {
		fmt.Fprintf(out, "Context: %s\n", job.Params.Context)
	}
	fmt.Fprintf(out, "Created: %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
	if !withResults {
		return
	}

	for _, key := range sortedKeys(job.Results) {
		items := job.Results[key]
		fmt.Fprintf(out, "\n[%s] %d sources\n", key, len(items))
		for i, item := range items {
			if i == 3 {
				fmt.Fprintf(out, "  ... %d more\n", len(items)-3)
				break
			}
			fmt.Fprintf(out, "  - %s\n    %s\n", strings.TrimSpace(item.Title), item.URL)
		}
	}
	if len(job.Errors) > 0 {
		fmt.Fprintln(out, "\nErrors:")
		for _, k := range sortedKeys(job.Errors) {
			fmt.Fprintf(out, "  %s: %s\n", k, job.Errors[k])
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
