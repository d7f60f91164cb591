// Package sentiment decides whether feedback text reports an issue, praises
// the library, or neither.
package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/shelfwise/internal/model"
)

// DefaultIssueKeywords mark text as an issue regardless of sentiment.
var DefaultIssueKeywords = []string{
	"problem", "issue", "error", "fix", "broken",
	"not working", "improve", "complaint", "fail",
}

// Model is a sentiment model returning one probability per class. Models are
// loaded once and shared, so implementations must be safe for concurrent use.
type Model interface {
	Predict(ctx context.Context, text string) ([]model.SentimentScore, error)
}

// Classifier combines a sentiment model with keyword overrides.
type Classifier struct {
	model    Model
	keywords []string
}

// New creates a classifier using the default issue keywords.
func New(m Model) *Classifier {
	return NewWithKeywords(m, DefaultIssueKeywords)
}

// NewWithKeywords creates a classifier with a custom issue keyword set.
func NewWithKeywords(m Model, keywords []string) *Classifier {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(kw); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Classifier{model: m, keywords: lowered}
}

// Classify labels feedback text. Empty text is NEUTRAL with zero confidence
// and never reaches the model.
func (c *Classifier) Classify(ctx context.Context, text string) (model.FeedbackClassification, error) {
	if strings.TrimSpace(text) == "" {
		return model.FeedbackClassification{Label: model.LabelNeutral, Confidence: 0}, nil
	}

	scores, err := c.model.Predict(ctx, text)
	if err != nil {
		return model.FeedbackClassification{}, fmt.Errorf("sentiment prediction failed: %w", err)
	}
	if len(scores) == 0 {
		return model.FeedbackClassification{}, fmt.Errorf("sentiment model returned no scores")
	}

	sentiment := top(scores)

	switch {
	case c.HasIssueKeyword(text) || sentiment.Label == model.SentimentNegative:
		return model.FeedbackClassification{Label: model.LabelIssue, Confidence: sentiment.Score}, nil
	case sentiment.Label == model.SentimentPositive:
		return model.FeedbackClassification{Label: model.LabelCompliment, Confidence: sentiment.Score}, nil
	default:
		return model.FeedbackClassification{Label: model.LabelNeutral, Confidence: sentiment.Score}, nil
	}
}

// HasIssueKeyword reports whether any issue keyword occurs in text.
func (c *Classifier) HasIssueKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// top returns the highest-probability class; the first wins a tie.
func top(scores []model.SentimentScore) model.SentimentScore {
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best
}
