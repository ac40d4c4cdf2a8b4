package player

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/keshon/taint-fm/internal/music/queue"
)

// queueBudget keeps a listing under the 2000 character message limit
const queueBudget = 1900

// queueHeader opens every non-empty listing
const queueHeader = "**Queue:**\n"

// FormatQueue renders a numbered listing of tracks. The whole message,
// header and separators included, stays within the budget. Lines that do not
// fit are replaced by a single "...and N more." line.
func FormatQueue(tracks iter.Seq2[int, queue.Track], total int) string {
	if total == 0 {
		return msgQueueEmpty
	}

	// room for the longest summary line, kept free until the last track
	reserve := utf8.RuneCountInString(fmt.Sprintf("\n...and %d more.", total))

	var lines []string
	used := utf8.RuneCountInString(queueHeader)
	for i, t := range tracks {
		title := t.Title
		if title == "" {
			title = "Unknown Title"
		}
		line := fmt.Sprintf("%d. %s", i+1, title)
		n := utf8.RuneCountInString(line)
		if len(lines) > 0 {
			n++ // separator
		}
		limit := queueBudget - reserve
		if i == total-1 {
			limit = queueBudget
		}
		if used+n > limit {
			lines = append(lines, fmt.Sprintf("...and %d more.", total-i))
			break
		}
		lines = append(lines, line)
		used += n
	}
	return queueHeader + strings.Join(lines, "\n")
}
