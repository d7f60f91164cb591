package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shelfwise/internal/cli"
	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/service"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Search submitted feedback",
	}

	cmd.AddCommand(feedbackListCmd())
	cmd.AddCommand(feedbackShowCmd())

	return cmd
}

func feedbackListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback, newest first",
		Long: `List feedback submissions, newest first. --since and --until take dates
(YYYY-MM-DD) in the feedback time zone; --until includes the whole day.`,
		RunE: runFeedbackList,
	}

	cmd.Flags().String("roll-no", "", "Match roll numbers containing this text")
	cmd.Flags().String("keyword", "", "Match answers containing this text")
	cmd.Flags().String("since", "", "Earliest submission date (YYYY-MM-DD)")
	cmd.Flags().String("until", "", "Latest submission date (YYYY-MM-DD)")
	cmd.Flags().Int("limit", 50, "Maximum rows to show (0 for all)")

	return cmd
}

func runFeedbackList(cmd *cobra.Command, _ []string) error {
	rollNo, _ := cmd.Flags().GetString("roll-no")
	keyword, _ := cmd.Flags().GetString("keyword")
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")
	limit, _ := cmd.Flags().GetInt("limit")

	if limit < 0 {
		return common.NewUserError("Limit cannot be negative", nil)
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	loc, err := settings.Feedback.Location()
	if err != nil {
		return err
	}

	filter := service.FeedbackFilter{RollNo: rollNo, Keyword: keyword, Limit: limit}
	if since != "" {
		start, err := time.ParseInLocation(time.DateOnly, since, loc)
		if err != nil {
			return common.NewUserError("--since must be YYYY-MM-DD", err)
		}
		filter.Start = &start
	}
	if until != "" {
		day, err := time.ParseInLocation(time.DateOnly, until, loc)
		if err != nil {
			return common.NewUserError("--until must be YYYY-MM-DD", err)
		}
		end := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.End = &end
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

	feedback, err := wf.SearchFeedback(cmd.Context(), filter)
	if err != nil {
		return err
	}
	if len(feedback) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No feedback found"))
		return nil
	}

	rows := make([][]string, 0, len(feedback))
	for _, f := range feedback {
		issue := "-"
		if f.IssuePresence {
			issue = "yes"
		}
		rows = append(rows, []string{
			f.ID,
			f.SubmittedAt.In(loc).Format("2006-01-02 15:04"),
			f.RollNo,
			strconv.Itoa(f.FloorNo),
			issue,
			f.LastAnswer(),
		})
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(
		[]string{"ID", "Submitted", "Roll no", "Floor", "Issue", "Comment"}, rows))
	return err
}

func feedbackShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <feedback-id>",
		Short: "Show every answer of one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openAdmin(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			f, err := store.GetFeedback(cmd.Context(), args[0])
			if err != nil {
				return common.NewUserError("Could not load feedback "+args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%s from %s on %s (floor %d, %.0fs)",
				f.ID, f.RollNo, f.SubmittedAt.Format("2006-01-02 15:04"), f.FloorNo, f.TimeTakenSeconds)))
			if f.IssueID != nil {
				fmt.Fprintln(out, cli.FormatInfo("Filed issue "+*f.IssueID))
			}

			rows := make([][]string, 0, len(f.Answers))
			for _, a := range f.Answers {
				rows = append(rows, []string{a.Question, strings.TrimSpace(a.Answer)})
			}
			_, err = fmt.Fprint(out, cli.RenderTable([]string{"Question", "Answer"}, rows))
			return err
		},
	}
}
