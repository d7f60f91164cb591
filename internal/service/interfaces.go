// Package service defines the interfaces shared between application layers.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/shelfwise/internal/model"
)

// FeedbackFilter defines filtering options for feedback queries.
type FeedbackFilter struct {
	Start   *time.Time
	End     *time.Time
	RollNo  string
	Keyword string
	Limit   int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Submission operations
	SaveSubmission(ctx context.Context, feedback *model.Feedback, issue *model.Issue, cooldown time.Duration) error
	GetFeedback(ctx context.Context, id string) (*model.Feedback, error)
	ListFeedback(ctx context.Context, filter FeedbackFilter) ([]model.Feedback, error)
	FeedbackCountsByDay(ctx context.Context, since time.Time, loc *time.Location) (map[string]int, error)

	// Issue operations
	GetIssue(ctx context.Context, id string) (*model.Issue, error)
	ListIssues(ctx context.Context, filter model.IssueFilter) ([]model.Issue, error)
	UpdateIssueStatus(ctx context.Context, id string, status model.IssueStatus, at time.Time) (*model.Issue, error)
	CountIssues(ctx context.Context) (model.IssueCounts, error)
	CountIssuesByCategory(ctx context.Context) (map[string]int, error)

	// User operations
	GetUser(ctx context.Context, email string) (*model.User, error)
	ActivityCountsByDay(ctx context.Context, since time.Time, loc *time.Location) (map[string]int, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
