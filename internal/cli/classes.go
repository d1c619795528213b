package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Show the known classes",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, class := range appInstance.Classes.List() {
			fmt.Printf("%s (%s)\n", class.Name, class.Label)
			for _, att := range class.Attributes {
				marker := ""
				if att.Code == class.StateAttCode {
					marker = " [lifecycle]"
				}
				fmt.Printf("  %-16s %-8s %s%s\n", att.Code, att.Type, att.DisplayLabel(), marker)
				if len(att.Values) > 0 {
					fmt.Printf("  %-16s %-8s %v\n", "", "", att.Values)
				}
			}
			fmt.Println()
		}
		return nil
	},
}
