package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/movewise/internal/cli"
	"github.com/cloo-solutions/movewise/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "movewise",
		Short: "Movewise CLI - relocation research from the terminal",
		Long: `Movewise CLI talks to a movewised server: search jobs, scenario narratives,
timelines, reports and the voice assistant tools.

Environment variables:
  MOVEWISE_API_KEY   API key, when the server requires one
  MOVEWISE_API_URL   API base URL (default: http://localhost:8080)`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.JobsCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.NarrativeCmd())
	rootCmd.AddCommand(client.TimelineCmd())
	rootCmd.AddCommand(client.ReportCmd())
	rootCmd.AddCommand(client.ToolCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
