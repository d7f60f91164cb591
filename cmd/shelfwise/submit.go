package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Veraticus/shelfwise/internal/cli"
	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
	"github.com/Veraticus/shelfwise/internal/workflow"
)

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit feedback on behalf of a member",
		Long: `Run one feedback submission through the full workflow: eligibility checks,
scoring, classification, storage and email.

Answers come from a JSON file ([{"question": "...", "answer": "..."}]) or,
without --file, are asked interactively using the configured questions.`,
		RunE: runSubmit,
	}

	cmd.Flags().String("email", "", "Submitter's institutional email (required)")
	cmd.Flags().String("file", "", "JSON file with the answers")
	cmd.Flags().Int("floor", 0, "Floor the member visited")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	file, _ := cmd.Flags().GetString("file")
	floor, _ := cmd.Flags().GetInt("floor")
	ctx := cmd.Context()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	components, err := loadComponents(settings)
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	wf, err := newWorkflow(settings, store, components.orchestrator())
	if err != nil {
		return err
	}

	// Fail before asking questions if the member cannot submit.
	if err := wf.CheckEligibility(ctx, email); err != nil {
		return common.NewUserError("Cannot accept feedback from "+email, err)
	}

	started := time.Now()
	var answers []model.Answer
	if file != "" {
		answers, err = readAnswers(file)
	} else {
		answers, err = cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).AskForm(ctx, settings.Feedback.Questions)
	}
	if err != nil {
		return err
	}

	result, err := wf.Submit(ctx, workflow.Request{
		Email:     email,
		Answers:   answers,
		StartedAt: started,
		FloorNo:   floor,
	})
	if err != nil {
		return common.NewUserError("Feedback was not saved", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatSuccess("Feedback "+result.Feedback.ID+" saved"))
	if result.Issue != nil {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Issue %s filed under %s (score %.2f)",
			result.Issue.ID, result.Issue.Category, result.Issue.UserScore)))
	}
	return nil
}

func readAnswers(path string) ([]model.Answer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	var answers []model.Answer
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, common.NewUserError("Answers file must be a JSON list of question/answer objects", err)
	}
	if len(answers) == 0 {
		return nil, common.NewUserError("Answers file is empty", nil)
	}
	return answers, nil
}
