// Package cli provides shared CLI utilities for movewise and movewised.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

// FlagSchema describes one command flag.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Persistent  bool   `json:"persistent,omitempty"`
}

// CommandSchema describes a command and its subcommands, for agents driving the CLI.
type CommandSchema struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Use         string          `json:"use,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Example     string          `json:"example,omitempty"`
	Runnable    bool            `json:"runnable"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Inherited   []string        `json:"inheritedFlags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// GenerateSchema walks cmd and its visible subcommands.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:        cmd.Name(),
		Path:        cmd.CommandPath(),
		Use:         cmd.Use,
		Aliases:     cmd.Aliases,
		Description: cmd.Short,
		Long:        cmd.Long,
		Example:     cmd.Example,
		Runnable:    cmd.Runnable(),
		Flags:       localFlags(cmd),
		Inherited:   inheritedFlags(cmd),
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Name() == "completion" || sub.Hidden {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}

	return schema
}

func localFlags(cmd *cobra.Command) []FlagSchema {
	persistent := cmd.PersistentFlags()
	var flags []FlagSchema
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if skipFlag(f) {
			return
		}
		fs := flagToSchema(f)
		fs.Persistent = persistent.Lookup(f.Name) != nil
		flags = append(flags, fs)
	})
	return flags
}

func inheritedFlags(cmd *cobra.Command) []string {
	var names []string
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		if !skipFlag(f) {
			names = append(names, f.Name)
		}
	})
	sort.Strings(names)
	return names
}

func skipFlag(f *pflag.Flag) bool {
	return f.Hidden || f.Name == helpJSONFlag || f.Name == "help" || f.Name == "version"
}

// flagToSchema reads the required marker that cobra's MarkFlagRequired stores on the flag.
func flagToSchema(f *pflag.Flag) FlagSchema {
	fs := FlagSchema{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Default:     f.DefValue,
		Description: f.Usage,
	}
	if v, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; ok && len(v) > 0 && v[0] == "true" {
		fs.Required = true
	}
	return fs
}

// WriteSchema writes the schema of cmd as indented JSON.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	out, err := json.MarshalIndent(GenerateSchema(cmd), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// AddHelpJSONFlag adds the --help-json flag to a command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(helpJSONFlag, false, "Output command schema as JSON")
}

// HandleHelpJSON prints the schema of the command addressed by args when args contain
// --help-json, and reports whether it did. It runs before Execute so required flags and
// positional args are not validated.
func HandleHelpJSON(root *cobra.Command, args []string, w io.Writer) (bool, error) {
	for i, arg := range args {
		if arg == "--"+helpJSONFlag {
			return true, WriteSchema(w, findTargetCommand(root, args[:i]))
		}
	}
	return false, nil
}

// CheckHelpJSON is HandleHelpJSON over os.Args; it exits once the schema is printed.
func CheckHelpJSON(root *cobra.Command) {
	handled, err := HandleHelpJSON(root, os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}
	if handled {
		os.Exit(0)
	}
}

func findTargetCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return findTargetCommand(sub, args[1:])
		}
	}

	// flags and positional values between command names
	return findTargetCommand(cmd, args[1:])
}
