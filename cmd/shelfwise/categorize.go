package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shelfwise/internal/cli"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize <text>",
		Short: "Assign issue text to a category by keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showScores, _ := cmd.Flags().GetBool("scores")

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			categorizer, err := loadCategorizer(settings)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(out, cli.BoldStyle.Render("Category:"), categorizer.Categorize(text)); err != nil {
				return err
			}
			if !showScores {
				return nil
			}

			var rows [][]string
			for _, s := range categorizer.Scores(text) {
				rows = append(rows, []string{s.Category, strconv.Itoa(s.Hits)})
			}
			_, err = fmt.Fprint(out, cli.RenderTable([]string{"Category", "Keyword hits"}, rows))
			return err
		},
	}

	cmd.Flags().Bool("scores", false, "Show keyword hits per category")
	return cmd
}
