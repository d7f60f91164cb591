package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shelfwise/internal/cli"
)

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <card-number>...",
		Short: "Compute trust scores from lending history",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScore,
	}

	cmd.Flags().Bool("explain", false, "Show the metric breakdown behind each score")

	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	explain, _ := cmd.Flags().GetBool("explain")

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	_, engine, err := loadTrust(settings)
	if err != nil {
		return err
	}

	headers := []string{"Card", "Score", "Priority"}
	if explain {
		headers = append(headers, "Activity", "Engagement", "Responsibility", "Financial", "Recency")
	}

	rows := make([][]string, 0, len(args))
	for _, card := range args {
		score := engine.Score(card)
		row := []string{card, cli.FormatScore(score.Score), cli.FormatPriority(score.Priority)}

		if explain {
			switch metrics, ok := engine.Metrics(card); {
			case engine.IsFaculty(card):
				row = append(row, "faculty", "", "", "", "")
			case !ok:
				row = append(row, "no history", "", "", "", "")
			default:
				row = append(row,
					fmt.Sprintf("%.2f", metrics.Activity),
					fmt.Sprintf("%.2f", metrics.Engagement),
					fmt.Sprintf("%.2f", metrics.Responsibility),
					fmt.Sprintf("%.2f", metrics.Financial),
					fmt.Sprintf("%.2f", metrics.Recency))
			}
		}
		rows = append(rows, row)
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(headers, rows))
	return err
}
