package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage API credentials",
		Long:  "Login, logout, and check which movewise API the CLI talks to",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the API key and URL",
		Long:  "Store API key and URL in the global config (~/.config/movewise/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				fmt.Print("Enter API key: ")
				input, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read API key: %w", err)
				}
				apiKey = strings.TrimSpace(input)
			}
			return runAuthLogin(apiKey, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key (the server's MOVEWISE_API_KEY)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout()
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display where the current credentials come from",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			return runAuthStatus(cmd.OutOrStdout(), flagKey, flagURL, outputJSON)
		},
	}
}

func runAuthLogin(apiKey, apiURL string) error {
	if !IsValidAPIKey(apiKey) {
		return fmt.Errorf("invalid API key format (expected at least %d characters without spaces)", minAPIKeyLength)
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Println("Successfully logged in")
	return nil
}

func runAuthLogout() error {
	if err := DeleteGlobalConfig(); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	fmt.Println("Successfully logged out")
	return nil
}

func runAuthStatus(w io.Writer, flagKey, flagURL string, outputJSON bool) error {
	source, apiKey, apiURL := GetCredentialSource(flagKey, flagURL)

	if outputJSON {
		status := map[string]interface{}{
			"authenticated": source != SourceNone,
			"source":        string(source),
		}
		if source != SourceNone {
			status["api_key"] = maskAPIKey(apiKey)
			status["api_url"] = apiURL
		}
		return writeJSON(w, status)
	}

	if source == SourceNone {
		fmt.Fprintln(w, "Not authenticated")
		fmt.Fprintln(w, "Run 'movewise auth login' to authenticate")
		return nil
	}

	fmt.Fprintf(w, "Authenticated: yes\n")
	fmt.Fprintf(w, "Source: %s\n", source)
	fmt.Fprintf(w, "API Key: %s\n", maskAPIKey(apiKey))
	fmt.Fprintf(w, "API URL: %s\n", apiURL)
	return nil
}

func maskAPIKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
