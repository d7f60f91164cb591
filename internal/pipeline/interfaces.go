package pipeline

import (
	"context"

	"github.com/Veraticus/shelfwise/internal/model"
)

// TrustScorer scores a submitter from their lending history.
type TrustScorer interface {
	Score(userID string) model.TrustScore
}

// FeedbackClassifier labels free-text feedback.
type FeedbackClassifier interface {
	Classify(ctx context.Context, text string) (model.FeedbackClassification, error)
}

// IssueCategorizer maps issue text to a category name.
type IssueCategorizer interface {
	Categorize(text string) string
}
