package trust

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shelfwise/internal/lending"
	"github.com/Veraticus/shelfwise/internal/model"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return fixedNow.Add(-time.Duration(n) * 24 * time.Hour)
}

func lend(card string, at time.Time) model.LendingTransaction {
	return model.LendingTransaction{CardNumber: card, Type: model.TransactionCheckIn, Date: at}
}

func giveBack(card string, at time.Time) model.LendingTransaction {
	return model.LendingTransaction{CardNumber: card, Type: model.TransactionCheckOut, Date: at}
}

func fine(card string, amount string, at time.Time) model.LendingTransaction {
	return model.LendingTransaction{
		CardNumber: card,
		Type:       model.TransactionPayment,
		Amount:     decimal.RequireFromString(amount),
		HasAmount:  true,
		Date:       at,
	}
}

func newEngine(rows ...model.LendingTransaction) *Engine {
	return NewWithConfig(lending.NewStore(rows), Config{
		FacultyPrefixes: []string{"C"},
		Now:             func() time.Time { return fixedNow },
	})
}

func TestEngine_Score_Faculty(t *testing.T) {
	engine := newEngine(
		fine("C1042", "-500", daysAgo(300)),
		giveBack("C1042", daysAgo(300)),
	)

	for _, id := range []string{"C1042", "c7781", "C"} {
		got := engine.Score(id)
		assert.Equal(t, model.TrustScore{Score: 1.0, Priority: model.PriorityHigh}, got, id)
	}
}

func TestEngine_Score_NoHistory(t *testing.T) {
	engine := newEngine(lend("23N201", daysAgo(1)))

	got := engine.Score("24Z999")
	assert.Equal(t, model.TrustScore{Score: 0.0, Priority: model.PriorityLow}, got)
}

func TestEngine_Score(t *testing.T) {
	tests := []struct {
		name         string
		rows         []model.LendingTransaction
		wantScore    float64
		wantPriority model.Priority
	}{
		{
			name: "five recent lends without fines",
			rows: []model.LendingTransaction{
				lend("23N201", daysAgo(1)),
				lend("23N201", daysAgo(2)),
				lend("23N201", daysAgo(3)),
				lend("23N201", daysAgo(4)),
				lend("23N201", daysAgo(5)),
			},
			// 0.1 + 0.25 + 0 + 0.1 + 0.1*e^-0.05
			wantScore:    0.55,
			wantPriority: model.PriorityMedium,
		},
		{
			name: "model borrower",
			rows: func() []model.LendingTransaction {
				var rows []model.LendingTransaction
				for i := 0; i < 10; i++ {
					rows = append(rows, lend("23N201", daysAgo(i)), giveBack("23N201", daysAgo(i)))
				}
				return rows
			}(),
			wantScore:    1.0,
			wantPriority: model.PriorityHigh,
		},
		{
			name: "old activity with heavy fines",
			rows: []model.LendingTransaction{
				lend("23N201", daysAgo(200)),
				fine("23N201", "-250.00", daysAgo(200)),
			},
			// 0 + 0.05 + 0 + 0 + 0.1*e^-10
			wantScore:    0.05,
			wantPriority: model.PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newEngine(tt.rows...).Score("23N201")
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantPriority, got.Priority)
		})
	}
}

func TestComputeMetrics(t *testing.T) {
	t.Run("activity counts only the trailing window", func(t *testing.T) {
		m := ComputeMetrics([]model.LendingTransaction{
			lend("A", daysAgo(14)),
			lend("A", daysAgo(16)),
			lend("A", daysAgo(40)),
		}, fixedNow)
		assert.InDelta(t, 0.25, m.Activity, 1e-9)
		assert.InDelta(t, 0.3, m.Engagement, 1e-9)
	})

	t.Run("activity and engagement cap at one", func(t *testing.T) {
		var rows []model.LendingTransaction
		for i := 0; i < 25; i++ {
			rows = append(rows, lend("A", daysAgo(0)))
		}
		m := ComputeMetrics(rows, fixedNow)
		assert.Equal(t, 1.0, m.Activity)
		assert.Equal(t, 1.0, m.Engagement)
	})

	t.Run("responsibility without lends is zero", func(t *testing.T) {
		m := ComputeMetrics([]model.LendingTransaction{giveBack("A", daysAgo(1))}, fixedNow)
		assert.Equal(t, 0.0, m.Responsibility)
	})

	t.Run("responsibility is not clamped", func(t *testing.T) {
		m := ComputeMetrics([]model.LendingTransaction{
			lend("A", daysAgo(3)),
			giveBack("A", daysAgo(2)),
			giveBack("A", daysAgo(2)),
			giveBack("A", daysAgo(1)),
		}, fixedNow)
		assert.InDelta(t, 3.0, m.Responsibility, 1e-9)
	})

	t.Run("financial uses mean absolute fine", func(t *testing.T) {
		m := ComputeMetrics([]model.LendingTransaction{
			fine("A", "-40.00", daysAgo(5)),
			fine("A", "-120.00", daysAgo(4)),
		}, fixedNow)
		assert.InDelta(t, 0.6, m.Financial, 1e-9)
	})

	t.Run("refunds do not cancel fines", func(t *testing.T) {
		m := ComputeMetrics([]model.LendingTransaction{
			fine("A", "-100.00", daysAgo(5)),
			fine("A", "100.00", daysAgo(4)),
		}, fixedNow)
		assert.InDelta(t, 0.5, m.Financial, 1e-9)
	})

	t.Run("financial floors at zero", func(t *testing.T) {
		m := ComputeMetrics([]model.LendingTransaction{fine("A", "-380", daysAgo(5))}, fixedNow)
		assert.Equal(t, 0.0, m.Financial)
	})

	t.Run("payments without amount are ignored", func(t *testing.T) {
		m := ComputeMetrics([]model.LendingTransaction{
			{CardNumber: "A", Type: model.TransactionPayment, Date: daysAgo(1)},
		}, fixedNow)
		assert.Equal(t, 1.0, m.Financial)
	})

	t.Run("recency decays by whole days", func(t *testing.T) {
		m := ComputeMetrics([]model.LendingTransaction{
			lend("A", daysAgo(10).Add(-6*time.Hour)),
		}, fixedNow)
		assert.InDelta(t, math.Exp(-0.5), m.Recency, 1e-9)
	})

	t.Run("future rows do not push recency above one", func(t *testing.T) {
		m := ComputeMetrics([]model.LendingTransaction{lend("A", fixedNow.Add(48*time.Hour))}, fixedNow)
		assert.Equal(t, 1.0, m.Recency)
	})
}

func TestEngine_ScoreStaysBounded(t *testing.T) {
	types := []model.TransactionType{model.TransactionCheckIn, model.TransactionCheckOut, model.TransactionPayment}

	for seed := 0; seed < 200; seed++ {
		var rows []model.LendingTransaction
		lends, returns := 0, 0
		for i := 0; i < seed%23+1; i++ {
			pick := (seed*7 + i*3) % len(types)
			txnType := types[pick]
			switch txnType {
			case model.TransactionCheckIn:
				lends++
			case model.TransactionCheckOut:
				if returns >= lends {
					txnType = model.TransactionCheckIn
					lends++
				} else {
					returns++
				}
			}
			age := seed * (i + 1) % 120
			row := model.LendingTransaction{
				CardNumber: "23N201",
				Type:       txnType,
				Date:       daysAgo(age),
			}
			if txnType == model.TransactionPayment {
				amount := (seed*13 + i) % 400
				row.Amount = decimal.NewFromInt(int64(-amount))
				row.HasAmount = true
			}
			rows = append(rows, row)
		}

		got := newEngine(rows...).Score("23N201")
		require.GreaterOrEqual(t, got.Score, 0.0, "seed %d", seed)
		require.LessOrEqual(t, got.Score, 1.0, "seed %d", seed)
		assert.Equal(t, model.PriorityFor(got.Score), got.Priority)
	}
}

func TestFromMetrics_PriorityFollowsRoundedScore(t *testing.T) {
	tests := []struct {
		name         string
		metrics      model.TrustMetrics
		wantScore    float64
		wantPriority model.Priority
	}{
		{
			name:         "0.695 rounds up into high",
			metrics:      model.TrustMetrics{Activity: 0.5, Engagement: 1, Responsibility: 0.5, Financial: 0.45},
			wantScore:    0.70,
			wantPriority: model.PriorityHigh,
		},
		{
			name:         "0.685 stays medium",
			metrics:      model.TrustMetrics{Activity: 0.5, Engagement: 1, Responsibility: 0.5, Financial: 0.35},
			wantScore:    0.69,
			wantPriority: model.PriorityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := Combine(tt.metrics)
			require.Less(t, raw, tt.wantScore)

			got := FromMetrics(tt.metrics)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantPriority, got.Priority)
		})
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := WeightActivity + WeightEngagement + WeightResponsibility + WeightFinancial + WeightRecency
	assert.InDelta(t, 1.0, sum, 1e-12)
}
