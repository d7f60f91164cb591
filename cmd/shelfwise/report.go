package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shelfwise/internal/cli"
	"github.com/Veraticus/shelfwise/internal/model"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Score every card in the lending history",
		Long: `Compute the trust score of every card in the lending history and print the
priority distribution, optionally with the lowest-scoring cards.`,
		RunE: runReport,
	}

	cmd.Flags().Int("lowest", 10, "Number of lowest-scoring cards to list (0 to skip)")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	lowest, _ := cmd.Flags().GetInt("lowest")

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	history, engine, err := loadTrust(settings)
	if err != nil {
		return err
	}

	ctx := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Report interrupted!").HandleInterrupts(cmd.Context())

	cards := history.Cards()
	bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(cards), "Scoring cards...")

	type scored struct {
		card  string
		score model.TrustScore
	}
	results := make([]scored, 0, len(cards))
	distribution := map[model.Priority]int{}

	for _, card := range cards {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s := engine.Score(card)
		results = append(results, scored{card: card, score: s})
		distribution[s.Priority]++
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	out := cmd.OutOrStdout()
	summary := fmt.Sprintf("Cards scored: %d\n", len(results))
	for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		summary += fmt.Sprintf("  • %s: %d\n", cli.FormatPriority(p), distribution[p])
	}
	fmt.Fprintln(out, cli.RenderBox(cli.ChartIcon+" Trust Report", summary))

	if lowest <= 0 || len(results) == 0 {
		return nil
	}

	// Score ascending, then card.
	sort.Slice(results, func(i, j int) bool {
		if results[i].score.Score != results[j].score.Score {
			return results[i].score.Score < results[j].score.Score
		}
		return results[i].card < results[j].card
	})
	if lowest > len(results) {
		lowest = len(results)
	}

	rows := make([][]string, 0, lowest)
	for _, r := range results[:lowest] {
		rows = append(rows, []string{r.card, strconv.FormatFloat(r.score.Score, 'f', 2, 64), cli.FormatPriority(r.score.Priority)})
	}
	_, err = fmt.Fprint(out, cli.RenderTable([]string{"Card", "Score", "Priority"}, rows))
	return err
}
