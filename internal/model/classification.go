// Package model defines the core domain models used throughout the application.
package model

// FeedbackLabel is the outcome of classifying feedback text.
type FeedbackLabel string

// Feedback labels.
const (
	LabelIssue      FeedbackLabel = "ISSUE"
	LabelCompliment FeedbackLabel = "COMPLIMENT"
	LabelNeutral    FeedbackLabel = "NEUTRAL"
)

// Sentiment labels produced by the binary sentiment model.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
)

// SentimentScore is the probability a model assigns to one class.
type SentimentScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// FeedbackClassification is the classifier verdict for one piece of feedback.
type FeedbackClassification struct {
	Label      FeedbackLabel
	Confidence float64
}

// IsIssue reports whether the feedback should open an issue.
func (c FeedbackClassification) IsIssue() bool {
	return c.Label == LabelIssue
}
