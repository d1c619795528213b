package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andy/casetrail/internal/app"
	"github.com/andy/casetrail/internal/domain"
	"github.com/spf13/cobra"
)

var appInstance *app.App

var rootCmd = &cobra.Command{
	Use:   "casetrail",
	Short: "Track tickets, case logs and their change history",
	Long: `Casetrail keeps business objects such as user requests, incidents and
servers, records every change made to them, and shows each object's
activity: its case log messages followed by its edit history.

By default, running casetrail without arguments launches the interactive TUI.
Use subcommands for CLI operations.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior: launch TUI
		launchTUI(cmd, args)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

func init() {
	rootCmd.AddCommand(objectsCmd)
	rootCmd.AddCommand(caselogCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(classesCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(tuiCmd)
}

// parseRef parses the <class> <id> argument pair
func parseRef(class, id string) (domain.ObjectRef, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return domain.ObjectRef{}, fmt.Errorf("invalid object ID %q: %w", id, err)
	}
	ref := domain.ObjectRef{Class: class, ID: key}
	return ref, ref.Validate()
}

// parseAssignments parses code=value arguments
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		code, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("expected code=value, got %q", arg)
		}
		values[strings.TrimSpace(code)] = value
	}
	return values, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
