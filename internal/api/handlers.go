package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
	"github.com/Veraticus/shelfwise/internal/service"
	"github.com/Veraticus/shelfwise/internal/storage"
	"github.com/Veraticus/shelfwise/internal/workflow"
)

const (
	defaultCountDays = 7
	maxCountDays     = 366
	maxFeedbackLimit = 1000
)

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	Answers   []model.Answer `json:"answers" validate:"required,min=1,dive"`
	StartTime int64          `json:"start_time" validate:"gte=0"`
	FloorNo   int            `json:"floor_no" validate:"gte=0,lte=10"`
}

// StatusRequest is the body of PUT /admin/issues/{id}/status.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING RESOLVED SUSPENDED"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitFeedback accepts a feedback form from the identified caller.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	email, _ := IdentityFromContext(r.Context())

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	var started time.Time
	if req.StartTime > 0 {
		started = time.Unix(req.StartTime, 0)
	}

	result, err := h.workflow.Submit(r.Context(), workflow.Request{
		Email:     email,
		Answers:   req.Answers,
		StartedAt: started,
		FloorNo:   req.FloorNo,
	})
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, result)
	case errors.Is(err, workflow.ErrDomainNotAllowed):
		respondError(w, http.StatusForbidden, "DOMAIN_NOT_ALLOWED", "Please use your official email address", err)
	case errors.Is(err, workflow.ErrInvalidEmail):
		respondError(w, http.StatusForbidden, "INVALID_IDENTITY", "Caller identity is not an email address", err)
	case errors.Is(err, workflow.ErrCooldownActive):
		respondError(w, http.StatusTooManyRequests, "COOLDOWN_ACTIVE", err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "SUBMIT_FAILED", "Failed to submit feedback", err)
	}
}

// ListIssues lists issues filtered by the status, category and query
// parameters.
func (h *Handler) ListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.IssueFilter{
		Category: q.Get("category"),
		Query:    q.Get("query"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := model.ParseIssueStatus(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_STATUS", err.Error(), nil)
			return
		}
		filter.Status = status
	}

	issues, err := h.workflow.Issues(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to list issues", err)
		return
	}
	if issues == nil {
		issues = []model.Issue{}
	}
	respondJSON(w, http.StatusOK, issues)
}

// IssueCounts returns issue totals by status.
func (h *Handler) IssueCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.workflow.IssueCounts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to count issues", err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// IssueCategories returns issue totals by category.
func (h *Handler) IssueCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.workflow.IssueCategories(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to count issue categories", err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// UpdateIssueStatus moves an issue to a new status.
func (h *Handler) UpdateIssueStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	issue, err := h.workflow.SetIssueStatus(r.Context(), id, model.IssueStatus(req.Status))
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, issue)
	case errors.Is(err, common.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Issue not found", nil)
	case errors.Is(err, storage.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, "INVALID_STATUS", err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update issue", err)
	}
}

// GetIssue returns one issue.
func (h *Handler) GetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := h.workflow.Issue(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, issue)
	case errors.Is(err, common.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Issue not found", nil)
	default:
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load issue", err)
	}
}

// ListFeedback searches submissions by the roll_no, keyword, start, end and
// limit parameters. Dates are RFC 3339 or YYYY-MM-DD (UTC); a date-only end
// includes that whole day.
func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.FeedbackFilter{
		RollNo:  q.Get("roll_no"),
		Keyword: q.Get("keyword"),
	}

	var err error
	if filter.Start, err = parseTimeParam(q.Get("start"), false); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_START", err.Error(), nil)
		return
	}
	if filter.End, err = parseTimeParam(q.Get("end"), true); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_END", err.Error(), nil)
		return
	}
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		respondError(w, http.StatusBadRequest, "INVALID_RANGE", "end is before start", nil)
		return
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFeedbackLimit {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 1000", nil)
			return
		}
		filter.Limit = n
	}

	feedback, err := h.workflow.SearchFeedback(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to search feedback", err)
		return
	}
	if feedback == nil {
		feedback = []model.Feedback{}
	}
	respondJSON(w, http.StatusOK, feedback)
}

// GetFeedback returns one submission.
func (h *Handler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	feedback, err := h.workflow.Feedback(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, feedback)
	case errors.Is(err, common.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Feedback not found", nil)
	default:
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load feedback", err)
	}
}

// FeedbackCounts returns submissions per day for the last ?days= days.
func (h *Handler) FeedbackCounts(w http.ResponseWriter, r *http.Request) {
	h.dayCounts(w, r, h.workflow.FeedbackCounts, "Failed to count feedback")
}

// ActivityCounts returns logged sessions per day for the last ?days= days.
func (h *Handler) ActivityCounts(w http.ResponseWriter, r *http.Request) {
	h.dayCounts(w, r, h.workflow.ActivityCounts, "Failed to count activity")
}

// Rates returns mean daily submissions and sessions for the last ?days= days.
func (h *Handler) Rates(w http.ResponseWriter, r *http.Request) {
	days, ok := parseDays(w, r)
	if !ok {
		return
	}

	rates, err := h.workflow.Rates(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to compute rates", err)
		return
	}
	respondJSON(w, http.StatusOK, rates)
}

func (h *Handler) dayCounts(w http.ResponseWriter, r *http.Request,
	count func(context.Context, int) ([]workflow.DayCount, error), failure string,
) {
	days, ok := parseDays(w, r)
	if !ok {
		return
	}

	counts, err := count(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", failure, err)
		return
	}

	byDate := make(map[string]int, len(counts))
	for _, c := range counts {
		byDate[c.Date] = c.Count
	}
	respondJSON(w, http.StatusOK, byDate)
}

// parseDays reads ?days=, writing a 400 when it is out of range.
func parseDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultCountDays, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxCountDays {
		respondError(w, http.StatusBadRequest, "INVALID_DAYS", "days must be between 1 and 366", nil)
		return 0, false
	}
	return n, true
}

func parseTimeParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
