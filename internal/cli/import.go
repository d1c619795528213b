package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import objects from a CSV or XLSX file",
	Long: `Import objects from a CSV or XLSX file. The first row holds the column
headers, matched against attribute codes or labels; a "name" column is required.
Existing objects are matched by name and updated, others are created.
The whole file is recorded as a single change.

Examples:
  casetrail import servers.xlsx --class Server
  casetrail import requests.csv -c UserRequest`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		class, _ := cmd.Flags().GetString("class")

		result, err := appInstance.ImportService.ImportFile(ctx, args[0], class)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Import complete: %d created, %d updated, %d unchanged\n",
			result.Created, result.Updated, result.Unchanged)
		if result.ChangeID > 0 {
			fmt.Printf("  Recorded as change #%d\n", result.ChangeID)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringP("class", "c", "", "Class of the imported objects (required)")
	_ = importCmd.MarkFlagRequired("class")
}
