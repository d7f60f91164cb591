package model

// Priority is the trust tier derived from a score.
type Priority string

// Priority tiers.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Tier boundaries, inclusive at the lower edge.
const (
	HighPriorityThreshold   = 0.7
	MediumPriorityThreshold = 0.4
)

// PriorityFor maps a score onto its tier.
func PriorityFor(score float64) Priority {
	switch {
	case score >= HighPriorityThreshold:
		return PriorityHigh
	case score >= MediumPriorityThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// TrustScore is the reliability of a user's feedback. It is computed per
// submission and never stored on its own.
type TrustScore struct {
	Priority Priority
	Score    float64
}

// TrustMetrics holds the normalized components behind a TrustScore.
type TrustMetrics struct {
	Activity       float64
	Engagement     float64
	Responsibility float64 // may exceed 1 when returns outnumber lends
	Financial      float64
	Recency        float64
}
