package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shelfwise/internal/cli"
	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
	"github.com/Veraticus/shelfwise/internal/storage"
)

func issuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Review and update filed issues",
	}

	cmd.AddCommand(issuesListCmd())
	cmd.AddCommand(issuesShowCmd())
	cmd.AddCommand(issuesSetStatusCmd())
	cmd.AddCommand(issuesCountsCmd())

	return cmd
}

func openAdmin(cmd *cobra.Command) (*storage.SQLiteStorage, func(), error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	store, err := initStorage(cmd.Context(), settings)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func issuesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statusFlag, _ := cmd.Flags().GetString("status")
			categoryFlag, _ := cmd.Flags().GetString("category")
			query, _ := cmd.Flags().GetString("query")

			filter := model.IssueFilter{Category: categoryFlag, Query: query}
			if statusFlag != "" {
				status, err := model.ParseIssueStatus(statusFlag)
				if err != nil {
					return common.NewUserError("Status must be PENDING, RESOLVED or SUSPENDED", err)
				}
				filter.Status = status
			}

			store, closeStore, err := openAdmin(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			issues, err := store.ListIssues(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No issues found"))
				return nil
			}

			rows := make([][]string, 0, len(issues))
			for _, issue := range issues {
				rows = append(rows, []string{
					issue.ID,
					issue.RaisedAt.Format("2006-01-02 15:04"),
					issue.RollNo,
					cli.FormatStatus(issue.Status),
					issue.Category,
					fmt.Sprintf("%.2f", issue.UserScore),
					issue.Text,
				})
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(
				[]string{"ID", "Raised", "Roll no", "Status", "Category", "Score", "Issue"}, rows))
			return err
		},
	}

	cmd.Flags().String("status", "", "Filter by status")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("query", "", "Match email or roll number")

	return cmd
}

func issuesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <issue-id>",
		Short: "Show one issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openAdmin(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			issue, err := store.GetIssue(cmd.Context(), args[0])
			if err != nil {
				return common.NewUserError("Could not load issue "+args[0], err)
			}

			resolved := "-"
			if issue.ResolvedAt != nil {
				resolved = issue.ResolvedAt.Format("2006-01-02 15:04")
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable([]string{"Field", "Value"}, [][]string{
				{"ID", issue.ID},
				{"Raised by", issue.RaisedBy},
				{"Roll no", issue.RollNo},
				{"Raised", issue.RaisedAt.Format("2006-01-02 15:04")},
				{"Resolved", resolved},
				{"Status", cli.FormatStatus(issue.Status)},
				{"Category", issue.Category},
				{"Score", fmt.Sprintf("%.2f", issue.UserScore)},
				{"Issue", issue.Text},
			}))
			return err
		},
	}
}

func issuesSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <issue-id> <PENDING|RESOLVED|SUSPENDED>",
		Short: "Change an issue's status and notify the member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := model.ParseIssueStatus(args[1])
			if err != nil {
				return common.NewUserError("Status must be PENDING, RESOLVED or SUSPENDED", err)
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

			issue, err := wf.SetIssueStatus(cmd.Context(), args[0], status)
			if err != nil {
				return common.NewUserError("Could not update issue "+args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Issue %s is now %s", issue.ID, issue.Status)))
			return nil
		},
	}
}

func issuesCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Summarize issues by status and category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openAdmin(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx := cmd.Context()
			counts, err := store.CountIssues(ctx)
			if err != nil {
				return err
			}
			byCategory, err := store.CountIssuesByCategory(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderTable(
				[]string{"Total", "Pending", "Resolved", "Suspended"},
				[][]string{{
					strconv.Itoa(counts.Total),
					strconv.Itoa(counts.Pending),
					strconv.Itoa(counts.Resolved),
					strconv.Itoa(counts.Suspended),
				}}))

			names := make([]string, 0, len(byCategory))
			for name := range byCategory {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, strconv.Itoa(byCategory[name])})
			}
			_, err = fmt.Fprint(out, cli.RenderTable([]string{"Category", "Issues"}, rows))
			return err
		},
	}
}
