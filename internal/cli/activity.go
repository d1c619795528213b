package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andy/casetrail/internal/activity"
	"github.com/andy/casetrail/internal/domain"
	"github.com/spf13/cobra"
)

var activityCmd = &cobra.Command{
	Use:   "activity [class] [id]",
	Short: "Show the activity panel of an object",
	Long: `Show the case log messages of an object followed by its change history.
Consecutive modifications made in one change by one author are shown as one entry.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		ref, err := parseRef(args[0], args[1])
		if err != nil {
			return err
		}

		obj, timeline, err := appInstance.ActivityService.GetTimeline(ctx, ref)
		if err != nil {
			return fmt.Errorf("failed to load activity: %w", err)
		}

		tab, _ := cmd.Flags().GetString("log")
		printTimeline(os.Stdout, obj, timeline, tab)
		return nil
	},
}

func printTimeline(w io.Writer, obj *domain.Object, timeline *domain.Timeline, tab string) {
	fmt.Fprintf(w, "%s (%s)\n", obj.Name, obj)

	tabs := timeline.CaseLogTabs()
	if len(tabs) > 0 {
		parts := make([]string, len(tabs))
		for i, t := range tabs {
			parts[i] = fmt.Sprintf("%s (%d)", t.Label, t.MessageCount)
		}
		fmt.Fprintf(w, "Case logs: %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintln(w, strings.Repeat("-", 70))

	entries := activity.FilterByCaseLog(timeline.Entries(), tab)
	if len(entries) == 0 {
		fmt.Fprintln(w, "No activity")
		return
	}

	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-10s %s\n",
			e.Date.Local().Format("2006-01-02 15:04"),
			e.Kind,
			activity.Headline(e),
		)
		for _, line := range activity.Details(e) {
			fmt.Fprintf(w, "%28s%s\n", "", line)
		}
	}

	if form := timeline.NewEntryForm(); form != nil {
		fmt.Fprintf(w, "\nPost with: casetrail caselog add %s %d --log %s <message>\n",
			obj.Class, obj.ID, form.DefaultTarget)
	}
}

func init() {
	activityCmd.Flags().StringP("log", "l", "", "Only show messages of this case log")
}
