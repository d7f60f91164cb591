// Package api exposes feedback submission and issue administration over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/shelfwise/internal/model"
	"github.com/Veraticus/shelfwise/internal/service"
	"github.com/Veraticus/shelfwise/internal/workflow"
)

// Workflow is the application surface the handlers drive.
type Workflow interface {
	Submit(ctx context.Context, req workflow.Request) (*workflow.Result, error)
	Issues(ctx context.Context, filter model.IssueFilter) ([]model.Issue, error)
	Issue(ctx context.Context, id string) (*model.Issue, error)
	SetIssueStatus(ctx context.Context, id string, status model.IssueStatus) (*model.Issue, error)
	IssueCounts(ctx context.Context) (model.IssueCounts, error)
	IssueCategories(ctx context.Context) (map[string]int, error)
	FeedbackCounts(ctx context.Context, days int) ([]workflow.DayCount, error)
	Feedback(ctx context.Context, id string) (*model.Feedback, error)
	SearchFeedback(ctx context.Context, filter service.FeedbackFilter) ([]model.Feedback, error)
	ActivityCounts(ctx context.Context, days int) ([]workflow.DayCount, error)
	Rates(ctx context.Context, days int) (workflow.Rates, error)
}

// Handler serves the HTTP API.
type Handler struct {
	workflow Workflow
	validate *validator.Validate
}

// NewHandler creates a handler backed by wf.
func NewHandler(wf Workflow) *Handler {
	return &Handler{
		workflow: wf,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Router builds the chi route tree. Every request times out after timeout.
func (h *Handler) Router(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)
	if timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.With(RequireIdentity).Post("/feedback", h.SubmitFeedback)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireIdentity)

			r.Get("/issues", h.ListIssues)
			r.Get("/issues/counts", h.IssueCounts)
			r.Get("/issues/categories", h.IssueCategories)
			r.Get("/issues/{id}", h.GetIssue)
			r.Put("/issues/{id}/status", h.UpdateIssueStatus)

			r.Get("/feedback", h.ListFeedback)
			r.Get("/feedback/counts", h.FeedbackCounts)
			r.Get("/feedback/{id}", h.GetFeedback)
			r.Get("/activity/counts", h.ActivityCounts)
			r.Get("/rates", h.Rates)
		})
	})

	return r
}
