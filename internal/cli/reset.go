package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andy/casetrail/internal/db"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset data in the database",
	Long: `Reset data in the database.

Examples:
  casetrail reset history    # Delete the change history, keep objects and case logs
  casetrail reset all        # Wipe everything: objects, case logs, history`,
}

var resetHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Delete the change history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete the ENTIRE change history. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := appInstance.DB.ClearTables(context.Background(), db.HistoryTables...); err != nil {
			return err
		}

		fmt.Println("The change history has been deleted.")
		return nil
	},
}

var resetAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete ALL data: objects, case logs, history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL data (objects, case logs, history). Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := appInstance.DB.ClearTables(context.Background(), db.ResetTables...); err != nil {
			return err
		}

		fmt.Println("All data has been deleted.")
		return nil
	},
}

func confirmPrompt(message string) bool {
	fmt.Printf("%s [y/N] ", message)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func init() {
	resetCmd.AddCommand(resetHistoryCmd)
	resetCmd.AddCommand(resetAllCmd)
}
