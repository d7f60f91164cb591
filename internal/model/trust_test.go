package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		name  string
		want  Priority
		score float64
	}{
		{name: "perfect score", score: 1.0, want: PriorityHigh},
		{name: "high boundary is inclusive", score: 0.7, want: PriorityHigh},
		{name: "just below high", score: 0.6999, want: PriorityMedium},
		{name: "medium boundary is inclusive", score: 0.4, want: PriorityMedium},
		{name: "just below medium", score: 0.3999, want: PriorityLow},
		{name: "zero", score: 0, want: PriorityLow},
		{name: "outlier above one", score: 1.2, want: PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PriorityFor(tt.score))
		})
	}
}
