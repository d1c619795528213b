package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/andy/casetrail/internal/domain"
	"github.com/spf13/cobra"
)

var objectsCmd = &cobra.Command{
	Use:     "objects",
	Aliases: []string{"obj"},
	Short:   "Manage objects",
	Long:    `List, add, show, modify and delete objects. Every modification is recorded in the change history.`,
}

var objectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List objects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		class, _ := cmd.Flags().GetString("class")

		objects, err := appInstance.ObjectService.List(ctx, class)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}

		if len(objects) == 0 {
			fmt.Println("No objects found")
			return nil
		}

		fmt.Printf("%-6s %-14s %-30s %-12s %-16s\n", "ID", "Class", "Name", "Status", "Updated")
		fmt.Println("----------------------------------------------------------------------------------")

		for _, obj := range objects {
			fmt.Printf("%-6d %-14s %-30s %-12s %-16s\n",
				obj.ID,
				truncate(obj.Class, 14),
				truncate(obj.Name, 30),
				truncate(obj.Attributes["status"], 12),
				obj.UpdatedAt.Local().Format("2006-01-02 15:04"),
			)
		}

		fmt.Printf("\nTotal: %d object(s)\n", len(objects))
		return nil
	},
}

var objectsAddCmd = &cobra.Command{
	Use:   "add [class] [name] [code=value...]",
	Short: "Add a new object",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		attrs, err := parseAssignments(args[2:])
		if err != nil {
			return err
		}

		obj, err := appInstance.ObjectService.Create(ctx, args[0], args[1], attrs, domain.OriginCLI)
		if err != nil {
			return fmt.Errorf("failed to create object: %w", err)
		}

		fmt.Printf("✓ %s created: %s (ID: %d)\n", obj.Class, obj.Name, obj.ID)
		return nil
	},
}

var objectsShowCmd = &cobra.Command{
	Use:   "show [class] [id]",
	Short: "Show an object's attributes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		ref, err := parseRef(args[0], args[1])
		if err != nil {
			return err
		}

		obj, err := appInstance.ObjectService.Get(ctx, ref)
		if err != nil {
			return fmt.Errorf("failed to get object: %w", err)
		}
		class, err := appInstance.Classes.Get(obj.Class)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n", obj.Name, obj)
		fmt.Println("----------------------------------------")
		for _, att := range class.Attributes {
			if att.IsCaseLog() {
				continue
			}
			fmt.Printf("%-16s %s\n", att.DisplayLabel()+":", obj.Attributes[att.Code])
		}

		// attributes stored before a class definition changed
		extra := make([]string, 0)
		for code := range obj.Attributes {
			if _, ok := class.Attribute(code); !ok {
				extra = append(extra, code)
			}
		}
		sort.Strings(extra)
		for _, code := range extra {
			fmt.Printf("%-16s %s\n", code+":", obj.Attributes[code])
		}

		fmt.Printf("\nCreated: %s\n", obj.CreatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Printf("Updated: %s\n", obj.UpdatedAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var objectsSetCmd = &cobra.Command{
	Use:   "set [class] [id] [code=value...]",
	Short: "Modify attributes of an object",
	Long: `Modify attributes of an object. Use name=... to rename it and code= to clear an attribute.
All modifications of one call are recorded as a single change.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		ref, err := parseRef(args[0], args[1])
		if err != nil {
			return err
		}
		values, err := parseAssignments(args[2:])
		if err != nil {
			return err
		}

		ops, err := appInstance.ObjectService.SetAttributes(ctx, ref, values, domain.OriginCLI)
		if err != nil {
			return fmt.Errorf("failed to update object: %w", err)
		}

		if len(ops) == 0 {
			fmt.Println("Nothing changed")
			return nil
		}
		fmt.Printf("✓ %s updated (%d attribute(s), change #%d)\n", ref, len(ops), ops[0].ChangeID)
		return nil
	},
}

var objectsDeleteCmd = &cobra.Command{
	Use:   "delete [class] [id]",
	Short: "Delete an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		ref, err := parseRef(args[0], args[1])
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		if !force && !confirmPrompt(fmt.Sprintf("Delete %s?", ref)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := appInstance.ObjectService.Delete(ctx, ref, domain.OriginCLI); err != nil {
			return fmt.Errorf("failed to delete object: %w", err)
		}

		fmt.Printf("✓ %s deleted\n", ref)
		return nil
	},
}

func init() {
	objectsCmd.AddCommand(objectsListCmd)
	objectsCmd.AddCommand(objectsAddCmd)
	objectsCmd.AddCommand(objectsShowCmd)
	objectsCmd.AddCommand(objectsSetCmd)
	objectsCmd.AddCommand(objectsDeleteCmd)

	objectsListCmd.Flags().StringP("class", "c", "", "Only list objects of this class")
	objectsDeleteCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
}
