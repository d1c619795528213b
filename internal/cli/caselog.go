package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/casetrail/internal/domain"
	"github.com/spf13/cobra"
)

var caselogCmd = &cobra.Command{
	Use:   "caselog",
	Short: "Post to case logs",
}

var caselogAddCmd = &cobra.Command{
	Use:   "add [class] [id] [message...]",
	Short: "Add a message to a case log",
	Long: `Add a message to a case log of an object.
Without --log the message goes to the first case log of the class.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		ref, err := parseRef(args[0], args[1])
		if err != nil {
			return err
		}

		attCode, _ := cmd.Flags().GetString("log")
		if attCode == "" {
			class, err := appInstance.Classes.Get(ref.Class)
			if err != nil {
				return err
			}
			codes := class.CaseLogAttCodes()
			if len(codes) == 0 {
				return fmt.Errorf("class %s has no case log", ref.Class)
			}
			attCode = codes[0]
		}

		message := strings.Join(args[2:], " ")
		if _, err := appInstance.ObjectService.AppendCaseLog(ctx, ref, attCode, message, domain.OriginCLI); err != nil {
			return fmt.Errorf("failed to add case log entry: %w", err)
		}

		fmt.Printf("✓ Message added to %s of %s\n", attCode, ref)
		return nil
	},
}

func init() {
	caselogCmd.AddCommand(caselogAddCmd)

	caselogAddCmd.Flags().StringP("log", "l", "", "Case log attribute code (e.g. public_log)")
}
