package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/shelfwise/internal/model"
)

func TestFormatters(t *testing.T) {
	assert.Contains(t, FormatSuccess("saved"), "saved")
	assert.Contains(t, FormatError("failed"), ErrorIcon)
	assert.Contains(t, FormatTitle("Report"), BookIcon)
	assert.Contains(t, FormatPriority(model.PriorityHigh), "high")
	assert.Contains(t, FormatStatus(model.IssueSuspended), "SUSPENDED")
	assert.Contains(t, FormatScore(0.556), "0.56")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"Card", "Score"},
		[][]string{{"22Z201", "0.55"}, {"C1001", "1.00"}, {"X"}},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, out, "Card")
	assert.Contains(t, out, "22Z201")
	assert.Contains(t, out, "C1001")
}
