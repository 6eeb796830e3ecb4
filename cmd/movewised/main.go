package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/movewise/internal/cli"
	"github.com/cloo-solutions/movewise/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "movewised",
		Short: "Movewise daemon",
		Long:  "Movewise daemon running the relocation API, the search job worker and maintenance tasks",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
