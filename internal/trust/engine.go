// Package trust scores how much weight a user's feedback deserves, based on
// their lending history.
package trust

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/shelfwise/internal/model"
)

// Normalization constants.
const (
	RecentWindow         = 15 * 24 * time.Hour
	RecentLendsForFull   = 4
	TotalLendsForFull    = 10
	FineForZeroFinancial = 200
	RecencyDecayPerDay   = 0.05
)

// Component weights. They sum to 1.
const (
	WeightActivity       = 0.10
	WeightEngagement     = 0.50
	WeightResponsibility = 0.20
	WeightFinancial      = 0.10
	WeightRecency        = 0.10
)

// History provides the lending rows for a card number.
type History interface {
	ForCard(cardNumber string) []model.LendingTransaction
}

// Config holds configuration options for the trust engine.
type Config struct {
	Now             func() time.Time
	FacultyPrefixes []string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FacultyPrefixes: []string{"C"},
		Now:             time.Now,
	}
}

// Engine computes trust scores. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	history         History
	now             func() time.Time
	facultyPrefixes []string
}

// New creates a trust engine over the given history.
func New(history History) *Engine {
	return NewWithConfig(history, DefaultConfig())
}

// NewWithConfig creates a trust engine with custom configuration.
func NewWithConfig(history History, config Config) *Engine {
	if config.Now == nil {
		config.Now = time.Now
	}
	prefixes := make([]string, 0, len(config.FacultyPrefixes))
	for _, p := range config.FacultyPrefixes {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &Engine{
		history:         history,
		now:             config.Now,
		facultyPrefixes: prefixes,
	}
}

// IsFaculty reports whether the identifier belongs to faculty, whose
// feedback is always fully trusted.
func (e *Engine) IsFaculty(userID string) bool {
	id := normalizeID(userID)
	for _, prefix := range e.facultyPrefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// Score returns the trust score for a user. Faculty get (1.0, high) and
// users without history get (0.0, low).
func (e *Engine) Score(userID string) model.TrustScore {
	if e.IsFaculty(userID) {
		return model.TrustScore{Score: 1.0, Priority: model.PriorityHigh}
	}

	metrics, ok := e.Metrics(userID)
	if !ok {
		return model.TrustScore{Score: 0.0, Priority: model.PriorityLow}
	}

	return FromMetrics(metrics)
}

// FromMetrics combines metrics into a score rounded to 2 decimals. The
// priority follows the rounded score, so a raw 0.695 is high.
func FromMetrics(m model.TrustMetrics) model.TrustScore {
	score := roundTo2(Combine(m))
	return model.TrustScore{
		Score:    score,
		Priority: model.PriorityFor(score),
	}
}

// Metrics returns the normalized components for a user, and false when the
// user has no history.
func (e *Engine) Metrics(userID string) (model.TrustMetrics, bool) {
	rows := e.history.ForCard(normalizeID(userID))
	if len(rows) == 0 {
		return model.TrustMetrics{}, false
	}
	return ComputeMetrics(rows, e.now()), true
}

// ComputeMetrics derives the five normalized components from a user's rows
// as of now.
func ComputeMetrics(rows []model.LendingTransaction, now time.Time) model.TrustMetrics {
	var (
		recentLends int
		totalLends  int
		returns     int
		fineCount   int64
		fineTotal   = decimal.Zero
		latest      time.Time
	)

	windowStart := now.Add(-RecentWindow)

	for i, row := range rows {
		if i == 0 || row.Date.After(latest) {
			latest = row.Date
		}

		switch row.Type {
		case model.TransactionCheckIn:
			totalLends++
			if !row.Date.Before(windowStart) {
				recentLends++
			}
		case model.TransactionCheckOut:
			returns++
		case model.TransactionPayment:
			if row.HasAmount {
				fineTotal = fineTotal.Add(row.Amount.Abs())
				fineCount++
			}
		}
	}

	metrics := model.TrustMetrics{
		Activity:   math.Min(float64(recentLends)/RecentLendsForFull, 1.0),
		Engagement: math.Min(float64(totalLends)/TotalLendsForFull, 1.0),
		Financial:  1.0,
	}

	if totalLends > 0 {
		// Not clamped: more returns than lends is a valid outlier.
		metrics.Responsibility = float64(returns) / float64(totalLends)
	}

	if fineCount > 0 {
		avgFine := fineTotal.Div(decimal.NewFromInt(fineCount)).InexactFloat64()
		metrics.Financial = math.Max(0, 1-avgFine/FineForZeroFinancial)
	}

	daysInactive := math.Floor(now.Sub(latest).Hours() / 24)
	if daysInactive < 0 {
		daysInactive = 0
	}
	metrics.Recency = math.Exp(-RecencyDecayPerDay * daysInactive)

	return metrics
}

// Combine applies the component weights.
func Combine(m model.TrustMetrics) float64 {
	return m.Activity*WeightActivity +
		m.Engagement*WeightEngagement +
		m.Responsibility*WeightResponsibility +
		m.Financial*WeightFinancial +
		m.Recency*WeightRecency
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
