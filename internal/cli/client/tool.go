package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

type toolResponse struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

// ToolCmd creates the tool command.
func ToolCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "tool <name> [key=value ...]",
		Short: "Call a voice assistant tool",
		Long: `Calls one of the voice assistant tools and prints its spoken-style answer.
Arguments are key=value pairs; numbers and booleans are sent typed.`,
		Example: `  movewise tool --list
  movewise tool visa_requirements origin_country=UK destination_country=Portugal
  movewise tool estimate_costs origin_city=London destination_city=Lisbon family_size=3 include_pets=true`,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			outputJSON, _ := cmd.Flags().GetBool("output")

			if list {
				resp, err := api.Get("/tools")
				if err != nil {
					return fmt.Errorf("failed to list tools: %w", err)
				}
				var names []string
				if err := json.Unmarshal(resp.Data, &names); err != nil {
					return fmt.Errorf("failed to parse tools: %w", err)
				}
				if outputJSON {
					return writeJSON(out, names)
				}
				fmt.Fprintln(out, strings.Join(names, "\n"))
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("tool name required (see --list)")
			}
			toolArgs, err := parseToolArgs(args[1:])
			if err != nil {
				return err
			}

			resp, err := api.Post("/tools/"+url.PathEscape(args[0]), toolArgs)
			if err != nil {
				return fmt.Errorf("tool %s failed: %w", args[0], err)
			}
			var result toolResponse
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse tool result: %w", err)
			}
			if outputJSON {
				return writeJSON(out, result)
			}
			fmt.Fprintln(out, result.Result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List available tools")

	return cmd
}

func parseToolArgs(pairs []string) (map[string]any, error) {
	raw := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value", pair)
		}
		raw[k] = v
	}
	args := parsePreferences(raw)
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
