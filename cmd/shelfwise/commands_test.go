package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
)

// useTestConfig points viper at the repository's categories and at
// a temporary database and history file.
func useTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	recent := time.Now().Add(-48 * time.Hour).Format("2006-01-02 15:04:05")
	history := "Card number,Transaction,Amount,Date\n" +
		"22Z201,CheckIn,," + recent + "\n" +
		"22Z201,CheckOut,," + recent + "\n" +
		"22Z202,Payment,500," + recent + "\n"
	historyPath := filepath.Join(dir, "history.csv")
	require.NoError(t, os.WriteFile(historyPath, []byte(history), 0600))

	overrides := map[string]any{
		"database.path":        filepath.Join(dir, "shelfwise.db"),
		"lending.history_path": historyPath,
		"categories.path":      "../../config/categories.json",
		"mail.enabled":         false,
	}
	for k, v := range overrides {
		viper.Set(k, v)
	}
	t.Cleanup(func() {
		for k := range overrides {
			viper.Set(k, nil)
		}
	})
	return dir
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	useTestConfig(t)

	out, err := run(t, scoreCmd(), "--explain", "22z201", "C1001", "99X999")
	require.NoError(t, err)
	assert.Contains(t, out, "22z201")
	assert.Contains(t, out, "faculty")
	assert.Contains(t, out, "no history")
}

func TestClassifyCommand(t *testing.T) {
	useTestConfig(t)

	out, err := run(t, classifyCmd(), "this", "is", "broken", "and", "not", "working")
	require.NoError(t, err)
	assert.Contains(t, out, string(model.LabelIssue))
}

func TestCategorizeCommand(t *testing.T) {
	useTestConfig(t)

	out, err := run(t, categorizeCmd(), "--scores", "the wifi keeps disconnecting")
	require.NoError(t, err)
	assert.Contains(t, out, "Network & IT")
	assert.Contains(t, out, "Keyword hits")
}

func TestSubmitAndIssuesCommands(t *testing.T) {
	dir := useTestConfig(t)

	answers := filepath.Join(dir, "answers.json")
	require.NoError(t, os.WriteFile(answers, []byte(`[
		{"question": "Rate us", "answer": "3"},
		{"question": "Comments", "answer": "The wifi is broken"}
	]`), 0600))

	out, err := run(t, submitCmd(), "--email", "22z201@psgtech.ac.in", "--file", answers)
	require.NoError(t, err)
	assert.Contains(t, out, "Network & IT")

	out, err = run(t, issuesCmd(), "list", "--status", "PENDING")
	require.NoError(t, err)
	assert.Contains(t, out, "22Z201")

	out, err = run(t, issuesCmd(), "counts")
	require.NoError(t, err)
	assert.Contains(t, out, "Network & IT")

	// The cooldown blocks a second submission.
	_, err = run(t, submitCmd(), "--email", "22z201@psgtech.ac.in", "--file", answers)
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
}

func TestFeedbackIssueAndStatsCommands(t *testing.T) {
	dir := useTestConfig(t)
	viper.Set("feedback.timezone", "UTC")
	t.Cleanup(func() { viper.Set("feedback.timezone", nil) })

	answers := filepath.Join(dir, "answers.json")
	require.NoError(t, os.WriteFile(answers, []byte(`[
		{"question": "Rate us", "answer": "2"},
		{"question": "Comments", "answer": "I could not find the journals I needed"}
	]`), 0600))

	out, err := run(t, submitCmd(), "--email", "22z201@psgtech.ac.in", "--file", answers)
	require.NoError(t, err)
	feedbackID := regexp.MustCompile(`Feedback (\S+) saved`).FindStringSubmatch(out)
	require.Len(t, feedbackID, 2, out)
	issueID := regexp.MustCompile(`Issue (\S+) filed`).FindStringSubmatch(out)
	require.Len(t, issueID, 2, out)

	out, err = run(t, feedbackCmd(), "list", "--keyword", "journals", "--roll-no", "22z2")
	require.NoError(t, err)
	assert.Contains(t, out, feedbackID[1])
	assert.Contains(t, out, "journals I needed")

	today := time.Now().UTC().Format(time.DateOnly)
	out, err = run(t, feedbackCmd(), "list", "--since", today, "--until", today)
	require.NoError(t, err)
	assert.Contains(t, out, feedbackID[1])

	out, err = run(t, feedbackCmd(), "list", "--keyword", "chairs")
	require.NoError(t, err)
	assert.Contains(t, out, "No feedback found")

	_, err = run(t, feedbackCmd(), "list", "--since", "last week")
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)

	out, err = run(t, feedbackCmd(), "show", feedbackID[1])
	require.NoError(t, err)
	assert.Contains(t, out, "Rate us")
	assert.Contains(t, out, issueID[1])

	_, err = run(t, feedbackCmd(), "show", "missing")
	require.ErrorAs(t, err, &userErr)

	out, err = run(t, issuesCmd(), "show", issueID[1])
	require.NoError(t, err)
	assert.Contains(t, out, "22z201@psgtech.ac.in")
	assert.Contains(t, out, "PENDING")

	out, err = run(t, statsCmd(), "--days", "3")
	require.NoError(t, err)
	assert.Contains(t, out, today)
	assert.Contains(t, out, "Per day over 3 days: 0.33 feedback, 0.33 activity")

	_, err = run(t, statsCmd(), "--days", "0")
	require.ErrorAs(t, err, &userErr)
}

func TestSubmitCommand_ForeignDomain(t *testing.T) {
	useTestConfig(t)

	_, err := run(t, submitCmd(), "--email", "someone@gmail.com", "--file", "unused.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestMigrateCommand(t *testing.T) {
	useTestConfig(t)

	out, err := run(t, migrateCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 3")

	out, err = run(t, migrateCmd(), "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "version 3 (latest 3)")
}

func TestReadAnswers(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	answers, err := readAnswers(write("ok.json", `[{"question":"Q","answer":"A"}]`))
	require.NoError(t, err)
	assert.Equal(t, []model.Answer{{Question: "Q", Answer: "A"}}, answers)

	_, err = readAnswers(write("empty.json", `[]`))
	assert.Error(t, err)

	_, err = readAnswers(write("bad.json", `{"question":"Q"}`))
	assert.Error(t, err)

	_, err = readAnswers(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
