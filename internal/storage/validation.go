// Package storage provides the data persistence layer for feedback and issues.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/shelfwise/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidStatus   = errors.New("invalid issue status")
	ErrInvalidFeedback = errors.New("invalid feedback")
	ErrInvalidIssue    = errors.New("invalid issue")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateStatus ensures the status is one of the known issue statuses.
func validateStatus(status model.IssueStatus) error {
	if _, err := model.ParseIssueStatus(string(status)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return nil
}

// validateFeedback validates a feedback record before insert.
func validateFeedback(feedback *model.Feedback) error {
	if feedback == nil {
		return fmt.Errorf("%w: feedback", ErrNilParameter)
	}
	if feedback.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidFeedback)
	}
	if strings.TrimSpace(feedback.Email) == "" {
		return fmt.Errorf("%w: missing email", ErrInvalidFeedback)
	}
	if strings.TrimSpace(feedback.RollNo) == "" {
		return fmt.Errorf("%w: missing roll number", ErrInvalidFeedback)
	}
	if feedback.SubmittedAt.IsZero() {
		return fmt.Errorf("%w: missing submission date", ErrInvalidFeedback)
	}
	return nil
}

// validateIssue validates an issue record before insert.
func validateIssue(issue *model.Issue) error {
	if issue == nil {
		return fmt.Errorf("%w: issue", ErrNilParameter)
	}
	if issue.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidIssue)
	}
	if strings.TrimSpace(issue.RaisedBy) == "" {
		return fmt.Errorf("%w: missing raised_by", ErrInvalidIssue)
	}
	if strings.TrimSpace(issue.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidIssue)
	}
	if issue.RaisedAt.IsZero() {
		return fmt.Errorf("%w: missing raise date", ErrInvalidIssue)
	}
	// Scores above one are legitimate (see trust responsibility), negatives are not.
	if issue.UserScore < 0 {
		return fmt.Errorf("%w: user score cannot be negative", ErrInvalidIssue)
	}
	return validateStatus(issue.Status)
}
