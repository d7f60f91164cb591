package model

import (
	"fmt"
	"time"
)

// IssueStatus tracks an issue through administrative review.
type IssueStatus string

// Issue statuses.
const (
	IssuePending   IssueStatus = "PENDING"
	IssueResolved  IssueStatus = "RESOLVED"
	IssueSuspended IssueStatus = "SUSPENDED"
)

// ParseIssueStatus validates a status string.
func ParseIssueStatus(s string) (IssueStatus, error) {
	switch status := IssueStatus(s); status {
	case IssuePending, IssueResolved, IssueSuspended:
		return status, nil
	default:
		return "", fmt.Errorf("invalid issue status %q", s)
	}
}

// Issue is a piece of feedback routed to administrators.
type Issue struct {
	RaisedAt   time.Time   `json:"issue_raise_date"`
	ResolvedAt *time.Time  `json:"resolved_date"`
	ID         string      `json:"id"`
	RaisedBy   string      `json:"raised_by"`
	RollNo     string      `json:"roll_no"`
	Text       string      `json:"issue"`
	Status     IssueStatus `json:"status"`
	Category   string      `json:"category"`
	UserScore  float64     `json:"user_score"`
}

// IssueFilter narrows issue listings. Empty fields match everything.
type IssueFilter struct {
	Status   IssueStatus
	Category string
	Query    string // case-insensitive match on raised_by or roll_no
}

// IssueCounts summarizes issues by status.
type IssueCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Resolved  int `json:"resolved"`
	Suspended int `json:"suspended"`
}
