package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/shelfwise/internal/model"
)

// FixedNow is the reference instant used by fixtures.
var FixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

var fixtureSeq atomic.Int64

// Submission pairs a feedback record with the issue it raised, if any.
type Submission struct {
	Feedback *model.Feedback
	Issue    *model.Issue
}

// SubmissionBuilder provides a fluent interface for constructing test submissions.
type SubmissionBuilder struct {
	t        *testing.T
	feedback model.Feedback
	issue    *model.Issue
}

// NewSubmission starts a complimentary submission from a default student.
func NewSubmission(t *testing.T) *SubmissionBuilder {
	t.Helper()
	n := fixtureSeq.Add(1)
	return &SubmissionBuilder{
		t: t,
		feedback: model.Feedback{
			ID:          fmt.Sprintf("fb-%04d", n),
			Email:       "22z201@psgtech.ac.in",
			RollNo:      "22z201",
			SubmittedAt: FixedNow,
			Answers: []model.Answer{
				{Question: "How often do you visit?", Answer: "Weekly"},
				{Question: "Anything else?", Answer: "The library is wonderful"},
			},
			TimeTakenSeconds: 42,
		},
	}
}

// From sets the submitter. The roll number is the email's local part.
func (b *SubmissionBuilder) From(email string) *SubmissionBuilder {
	b.feedback.Email = email
	b.feedback.RollNo, _, _ = strings.Cut(email, "@")
	return b
}

// At sets the submission time.
func (b *SubmissionBuilder) At(at time.Time) *SubmissionBuilder {
	b.feedback.SubmittedAt = at
	return b
}

// WithAnswer replaces the free-text answer.
func (b *SubmissionBuilder) WithAnswer(text string) *SubmissionBuilder {
	b.feedback.Answers[len(b.feedback.Answers)-1].Answer = text
	return b
}

// WithIssue marks the submission as raising a pending issue in category.
func (b *SubmissionBuilder) WithIssue(text, category string) *SubmissionBuilder {
	b.WithAnswer(text)
	b.issue = &model.Issue{
		ID:        "issue-" + b.feedback.ID,
		Text:      text,
		Category:  category,
		Status:    model.IssuePending,
		UserScore: 0.5,
	}
	return b
}

// WithScore sets the trust score attached to the issue.
func (b *SubmissionBuilder) WithScore(score float64) *SubmissionBuilder {
	if b.issue == nil {
		b.t.Fatalf("WithScore requires WithIssue")
	}
	b.issue.UserScore = score
	return b
}

// Build finalizes the submission, copying submitter details onto the issue.
func (b *SubmissionBuilder) Build() Submission {
	b.t.Helper()
	feedback := b.feedback
	feedback.Answers = append([]model.Answer(nil), b.feedback.Answers...)

	var issue *model.Issue
	if b.issue != nil {
		i := *b.issue
		i.RaisedBy = feedback.Email
		i.RollNo = feedback.RollNo
		i.RaisedAt = feedback.SubmittedAt
		issue = &i
		feedback.IssuePresence = true
		feedback.IssueID = &i.ID
	}
	return Submission{Feedback: &feedback, Issue: issue}
}
