// Package workflow drives feedback submissions and issue administration:
// it gates submitters, runs the scoring pipeline, persists the results and
// sends the accompanying emails.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
	"github.com/Veraticus/shelfwise/internal/pipeline"
	"github.com/Veraticus/shelfwise/internal/service"
)

// Submission errors.
var (
	ErrDomainNotAllowed = errors.New("email domain not allowed")
	ErrCooldownActive   = common.ErrCooldownActive
	ErrInvalidEmail     = errors.New("invalid email address")
)

// Defaults for Config.
const (
	DefaultAllowedDomain = "psgtech.ac.in"
	DefaultCooldown      = 30 * 24 * time.Hour
)

// Processor turns a submission into feedback and an optional issue.
type Processor interface {
	Process(ctx context.Context, sub pipeline.Submission) (*model.Feedback, *model.Issue, error)
}

// Notifier sends submission and issue emails.
type Notifier interface {
	FeedbackReceived(ctx context.Context, email string) error
	IssueRaised(ctx context.Context, issue *model.Issue) error
	IssueStatusChanged(ctx context.Context, issue *model.Issue) error
}

// Config controls submission gating.
type Config struct {
	Location      *time.Location
	AllowedDomain string
	Cooldown      time.Duration
	DefaultFloor  int
}

// DefaultConfig returns the institutional defaults.
func DefaultConfig() Config {
	return Config{
		Location:      time.UTC,
		AllowedDomain: DefaultAllowedDomain,
		Cooldown:      DefaultCooldown,
	}
}

// Request is a submission as received from a client.
type Request struct {
	StartedAt time.Time
	Email     string
	Answers   []model.Answer
	FloorNo   int
}

// Result is what a successful submission stored.
type Result struct {
	Feedback *model.Feedback `json:"feedback"`
	Issue    *model.Issue    `json:"issue,omitempty"`
}

// Service coordinates storage, the pipeline and notifications.
type Service struct {
	store    service.Storage
	pipeline Processor
	notifier Notifier
	now      func() time.Time
	cfg      Config
}

// New creates a workflow service.
func New(store service.Storage, processor Processor, notifier Notifier, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.AllowedDomain = strings.ToLower(strings.TrimSpace(cfg.AllowedDomain))
	return &Service{
		store:    store,
		pipeline: processor,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RollNumber derives the roll number from an institutional email: its local
// part.
func RollNumber(email string) (string, error) {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return local, nil
}

// CheckEligibility reports whether email may submit feedback now.
func (s *Service) CheckEligibility(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := RollNumber(email); err != nil {
		return err
	}

	if s.cfg.AllowedDomain != "" {
		_, domain, _ := strings.Cut(email, "@")
		if domain != s.cfg.AllowedDomain {
			return fmt.Errorf("%w: %s", ErrDomainNotAllowed, domain)
		}
	}

	if s.cfg.Cooldown <= 0 {
		return nil
	}

	user, err := s.store.GetUser(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up submitter: %w", err)
	}

	if user.LastFeedback != nil {
		next := user.LastFeedback.Add(s.cfg.Cooldown)
		if s.now().Before(next) {
			return fmt.Errorf("%w: next submission allowed after %s", ErrCooldownActive, next.In(s.cfg.Location).Format(time.DateOnly))
		}
	}
	return nil
}

// Submit gates, processes and stores one submission, then notifies the
// submitter. Email failures are logged and do not fail the submission.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.CheckEligibility(ctx, email); err != nil {
		return nil, err
	}
	rollNo, _ := RollNumber(email)

	now := s.now()
	started := req.StartedAt
	if started.IsZero() || started.After(now) {
		started = now
	}
	floor := req.FloorNo
	if floor == 0 {
		floor = s.cfg.DefaultFloor
	}

	feedback, issue, err := s.pipeline.Process(ctx, pipeline.Submission{
		StartedAt:   started,
		SubmittedAt: now,
		UserID:      strings.ToUpper(rollNo),
		Email:       email,
		Answers:     req.Answers,
		FloorNo:     floor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process feedback: %w", err)
	}

	if err := s.store.SaveSubmission(ctx, feedback, issue, s.cfg.Cooldown); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	slog.Info("Feedback submitted",
		"feedback_id", feedback.ID,
		"roll_no", feedback.RollNo,
		"issue", issue != nil)

	if err := s.notifier.FeedbackReceived(ctx, email); err != nil {
		slog.Warn("Failed to send thank-you email", "to", email, "error", err)
	}
	if issue != nil {
		if err := s.notifier.IssueRaised(ctx, issue); err != nil {
			slog.Warn("Failed to send issue email", "issue_id", issue.ID, "error", err)
		}
	}

	return &Result{Feedback: feedback, Issue: issue}, nil
}
