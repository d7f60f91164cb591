package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shelfwise/internal/cli"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify feedback text as ISSUE, COMPLIMENT or NEUTRAL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			classifier, err := loadClassifier(settings)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			verdict, err := classifier.Classify(cmd.Context(), text)
			if err != nil {
				return fmt.Errorf("failed to classify: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (confidence %.3f)\n",
				cli.BoldStyle.Render("Label:"), verdict.Label, verdict.Confidence)
			return err
		},
	}
}
