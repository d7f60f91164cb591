package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shelfwise/internal/cli"
	"github.com/Veraticus/shelfwise/internal/common"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daily feedback and activity counts",
		RunE:  runStats,
	}

	cmd.Flags().Int("days", 7, "Number of days to cover, ending today")

	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")
	if days < 1 {
		return common.NewUserError("--days must be at least 1", nil)
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := initStorage(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	wf, err := newWorkflow(settings, store, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	feedback, err := wf.FeedbackCounts(ctx, days)
	if err != nil {
		return err
	}
	activity, err := wf.ActivityCounts(ctx, days)
	if err != nil {
		return err
	}
	rates, err := wf.Rates(ctx, days)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(feedback))
	for i, day := range feedback {
		rows = append(rows, []string{day.Date, strconv.Itoa(day.Count), strconv.Itoa(activity[i].Count)})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.RenderTable([]string{"Date", "Feedback", "Activity"}, rows))
	_, err = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf(
		"Per day over %d days: %.2f feedback, %.2f activity", rates.Days, rates.Feedback, rates.Activity)))
	return err
}
