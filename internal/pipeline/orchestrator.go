// Package pipeline turns one feedback submission into the records the rest
// of the system persists.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/shelfwise/internal/model"
)

// Submission is one completed feedback form.
type Submission struct {
	StartedAt   time.Time
	SubmittedAt time.Time
	UserID      string // roll or staff number
	Email       string
	Answers     []model.Answer
	FloorNo     int
}

// Orchestrator sequences trust scoring, classification and categorization.
// It keeps no per-call state and is safe for concurrent use.
type Orchestrator struct {
	trust       TrustScorer
	classifier  FeedbackClassifier
	categorizer IssueCategorizer
	newID       func() string
}

// New creates an orchestrator from its collaborators.
func New(trust TrustScorer, classifier FeedbackClassifier, categorizer IssueCategorizer) *Orchestrator {
	return &Orchestrator{
		trust:       trust,
		classifier:  classifier,
		categorizer: categorizer,
		newID:       uuid.NewString,
	}
}

// Process scores and classifies a submission. The issue is nil unless the
// final answer was classified as an issue. On error neither record is
// returned.
func (o *Orchestrator) Process(ctx context.Context, sub Submission) (*model.Feedback, *model.Issue, error) {
	score := o.trust.Score(sub.UserID)

	feedback := &model.Feedback{
		ID:               o.newID(),
		Email:            sub.Email,
		RollNo:           sub.UserID,
		Answers:          sub.Answers,
		SubmittedAt:      sub.SubmittedAt,
		TimeTakenSeconds: sub.SubmittedAt.Sub(sub.StartedAt).Seconds(),
		FloorNo:          sub.FloorNo,
	}
	text := feedback.LastAnswer()

	verdict, err := o.classifier.Classify(ctx, text)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to classify feedback from %s: %w", sub.UserID, err)
	}

	slog.Debug("Processed feedback",
		"user", sub.UserID,
		"score", score.Score,
		"priority", score.Priority,
		"label", verdict.Label,
		"confidence", verdict.Confidence)

	feedback.IssuePresence = verdict.IsIssue()
	if !verdict.IsIssue() {
		return feedback, nil, nil
	}

	issue := &model.Issue{
		ID:        o.newID(),
		RaisedBy:  sub.Email,
		RollNo:    sub.UserID,
		Text:      text,
		RaisedAt:  sub.SubmittedAt,
		UserScore: score.Score,
		Status:    model.IssuePending,
		Category:  o.categorizer.Categorize(text),
	}
	feedback.IssueID = &issue.ID

	return feedback, issue, nil
}
