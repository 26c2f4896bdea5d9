package engine

import (
	"strings"

	"github.com/tatianab/questforge/internal/models"
)

const (
	// HistoryWindow is how many log entries reach a prompt.
	HistoryWindow = 6
	// HistoryEntryLength bounds the narrative text of each entry, in runes.
	HistoryEntryLength = 200
)

const noHistory = "No previous events."

// Compress renders the tail of the narrative log for a prompt. The output
// size does not depend on the length of the log.
func Compress(log []models.NarrativeEntry) string {
	if len(log) == 0 {
		return noHistory
	}
	var b strings.Builder
	for _, e := range log[max(0, len(log)-HistoryWindow):] {
		b.WriteString("- ")
		b.WriteString(models.Truncate(e.Text, HistoryEntryLength))
		b.WriteString("\n")
		if e.Action != "" {
			b.WriteString("  Player chose: ")
			b.WriteString(e.Action)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
