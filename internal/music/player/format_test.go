package player

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/keshon/taint-fm/internal/music/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(titles ...string) *queue.Queue {
	q := queue.New()
	for _, t := range titles {
		q.Enqueue(queue.Track{Title: t, Locator: "https://example.com/" + t})
	}
	return q
}

func TestFormatQueueEmpty(t *testing.T) {
	q := queue.New()
	assert.Equal(t, "The queue is empty.", FormatQueue(q.Snapshot(), q.Len()))
}

func TestFormatQueueShort(t *testing.T) {
	q := filled("Alpha", "", "Gamma")
	assert.Equal(t, "**Queue:**\n1. Alpha\n2. Unknown Title\n3. Gamma", FormatQueue(q.Snapshot(), q.Len()))
}

func TestFormatQueueTruncates(t *testing.T) {
	titles := make([]string, 50)
	for i := range titles {
		titles[i] = fmt.Sprintf("Track %02d %s", i+1, strings.Repeat("x", 60))
	}
	q := filled(titles...)

	out := FormatQueue(q.Snapshot(), q.Len())
	assert.LessOrEqual(t, utf8.RuneCountInString(out), queueBudget)

	lines := strings.Split(strings.TrimPrefix(out, "**Queue:**\n"), "\n")
	require.Greater(t, len(lines), 1)
	shown := len(lines) - 1
	assert.Less(t, shown, 50)
	assert.Equal(t, fmt.Sprintf("...and %d more.", 50-shown), lines[len(lines)-1])
	for i, l := range lines[:shown] {
		assert.True(t, strings.HasPrefix(l, fmt.Sprintf("%d. ", i+1)))
	}

	// one more entry plus a summary would not have fit
	listed := "**Queue:**\n" + strings.Join(lines[:shown], "\n")
	next := fmt.Sprintf("\n%d. %s", shown+1, titles[shown])
	summary := fmt.Sprintf("\n...and %d more.", 50-shown-1)
	assert.Greater(t, utf8.RuneCountInString(listed+next+summary), queueBudget)
}

func TestFormatQueueManyShortTitles(t *testing.T) {
	titles := make([]string, 600)
	for i := range titles {
		titles[i] = "a"
	}
	q := filled(titles...)

	out := FormatQueue(q.Snapshot(), q.Len())
	assert.LessOrEqual(t, utf8.RuneCountInString(out), queueBudget)

	lines := strings.Split(strings.TrimPrefix(out, "**Queue:**\n"), "\n")
	shown := len(lines) - 1
	assert.Greater(t, shown, 100)
	assert.Equal(t, fmt.Sprintf("%d. a", shown), lines[shown-1])
	assert.Equal(t, fmt.Sprintf("...and %d more.", 600-shown), lines[shown])
}

func TestFormatQueueFillsBudgetWithoutSummary(t *testing.T) {
	// the last track may use the room kept for the summary line
	titles := []string{strings.Repeat("y", 900), strings.Repeat("z", 970)}
	q := filled(titles...)

	out := FormatQueue(q.Snapshot(), q.Len())
	assert.NotContains(t, out, "more.")
	assert.LessOrEqual(t, utf8.RuneCountInString(out), queueBudget)
}

func TestFormatQueueCountsRunes(t *testing.T) {
	// 30 lines of 60 runes fit even though they take more bytes
	titles := make([]string, 30)
	for i := range titles {
		titles[i] = strings.Repeat("ö", 56)
	}
	q := filled(titles...)
	out := FormatQueue(q.Snapshot(), q.Len())
	assert.NotContains(t, out, "more.")
}
