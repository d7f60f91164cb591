package sentiment

import (
	"context"
	"fmt"

	"github.com/jonreiter/govader"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
)

// DefaultPositiveThreshold is VADER's conventional cut-off for positive text.
const DefaultPositiveThreshold = 0.05

// VaderModel is a binary sentiment model backed by the pretrained VADER
// lexicon. Text whose compound polarity reaches the positive threshold is
// POSITIVE; everything else, including text with no rated words, is NEGATIVE.
type VaderModel struct {
	analyzer  *govader.SentimentIntensityAnalyzer
	threshold float64
}

// NewVaderModel loads the VADER lexicon. threshold must lie in (-1, 1).
func NewVaderModel(threshold float64) (*VaderModel, error) {
	if threshold <= -1 || threshold >= 1 {
		return nil, fmt.Errorf("%w: positive threshold %.2f outside (-1, 1)", common.ErrInvalidConfig, threshold)
	}

	analyzer, err := loadAnalyzer()
	if err != nil {
		return nil, err
	}
	return &VaderModel{analyzer: analyzer, threshold: threshold}, nil
}

// loadAnalyzer builds the analyzer, which panics if its embedded lexicon
// cannot be read.
func loadAnalyzer() (analyzer *govader.SentimentIntensityAnalyzer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", common.ErrModelUnavailable, r)
		}
	}()
	return govader.NewSentimentIntensityAnalyzer(), nil
}

// Predict returns POSITIVE then NEGATIVE probabilities summing to 1.
func (m *VaderModel) Predict(ctx context.Context, text string) ([]model.SentimentScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compound := m.analyzer.PolarityScores(text).Compound
	positive := m.positiveProbability(compound)

	return []model.SentimentScore{
		{Label: model.SentimentPositive, Score: positive},
		{Label: model.SentimentNegative, Score: 1 - positive},
	}, nil
}

// positiveProbability maps a compound score in [-1, 1] onto [0, 1] piecewise
// linearly so that the threshold lands on 0.5.
func (m *VaderModel) positiveProbability(compound float64) float64 {
	switch {
	case compound >= 1:
		return 1
	case compound <= -1:
		return 0
	case compound >= m.threshold:
		return 0.5 + 0.5*(compound-m.threshold)/(1-m.threshold)
	default:
		return 0.5 * (compound + 1) / (m.threshold + 1)
	}
}
