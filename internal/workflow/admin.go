package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/shelfwise/internal/model"
	"github.com/Veraticus/shelfwise/internal/service"
)

// Issues lists issues matching filter.
func (s *Service) Issues(ctx context.Context, filter model.IssueFilter) ([]model.Issue, error) {
	return s.store.ListIssues(ctx, filter)
}

// Issue returns one issue.
func (s *Service) Issue(ctx context.Context, id string) (*model.Issue, error) {
	return s.store.GetIssue(ctx, id)
}

// SetIssueStatus moves an issue to status and emails the submitter.
func (s *Service) SetIssueStatus(ctx context.Context, id string, status model.IssueStatus) (*model.Issue, error) {
	issue, err := s.store.UpdateIssueStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.notifier.IssueStatusChanged(ctx, issue); err != nil {
		slog.Warn("Failed to send status email", "issue_id", id, "status", status, "error", err)
	}
	return issue, nil
}

// IssueCounts summarizes issues by status.
func (s *Service) IssueCounts(ctx context.Context) (model.IssueCounts, error) {
	return s.store.CountIssues(ctx)
}

// IssueCategories counts issues per category.
func (s *Service) IssueCategories(ctx context.Context) (map[string]int, error) {
	return s.store.CountIssuesByCategory(ctx)
}

// DayCount is the number of submissions on one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Feedback returns one stored submission.
func (s *Service) Feedback(ctx context.Context, id string) (*model.Feedback, error) {
	return s.store.GetFeedback(ctx, id)
}

// SearchFeedback lists stored submissions matching filter, newest first.
func (s *Service) SearchFeedback(ctx context.Context, filter service.FeedbackFilter) ([]model.Feedback, error) {
	return s.store.ListFeedback(ctx, filter)
}

// Rates are mean daily submissions and logged sessions over a window.
type Rates struct {
	Days     int     `json:"days"`
	Feedback float64 `json:"feedback"`
	Activity float64 `json:"activity"`
}

type dayCounter func(ctx context.Context, since time.Time, loc *time.Location) (map[string]int, error)

// FeedbackCounts returns submission counts for each of the last days
// calendar days including today, oldest first. Days without feedback count
// zero.
func (s *Service) FeedbackCounts(ctx context.Context, days int) ([]DayCount, error) {
	counts, err := s.dayCounts(ctx, days, s.store.FeedbackCountsByDay)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}
	return counts, nil
}

// ActivityCounts is FeedbackCounts over the submission activity log.
func (s *Service) ActivityCounts(ctx context.Context, days int) ([]DayCount, error) {
	counts, err := s.dayCounts(ctx, days, s.store.ActivityCountsByDay)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}
	return counts, nil
}

// Rates averages FeedbackCounts and ActivityCounts over days.
func (s *Service) Rates(ctx context.Context, days int) (Rates, error) {
	feedback, err := s.FeedbackCounts(ctx, days)
	if err != nil {
		return Rates{}, err
	}
	activity, err := s.ActivityCounts(ctx, days)
	if err != nil {
		return Rates{}, err
	}
	return Rates{
		Days:     days,
		Feedback: float64(total(feedback)) / float64(days),
		Activity: float64(total(activity)) / float64(days),
	}, nil
}

func total(counts []DayCount) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}

func (s *Service) dayCounts(ctx context.Context, days int, count dayCounter) ([]DayCount, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	now := s.now().In(s.cfg.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
	start := today.AddDate(0, 0, -(days - 1))

	byDay, err := count(ctx, start, s.cfg.Location)
	if err != nil {
		return nil, err
	}

	counts := make([]DayCount, 0, days)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		counts = append(counts, DayCount{Date: key, Count: byDay[key]})
	}
	return counts, nil
}
