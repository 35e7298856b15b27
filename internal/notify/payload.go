package notify

import (
	"fmt"

	"github.com/jobsentinel/jobsentinel/internal/models"
)

const maxFieldLen = 500

// truncateField bounds any user-supplied text embedded in a payload; none
// of these payloads ever embed HTML, only plain text fields.
func truncateField(s string) string {
	return models.Truncate(s, maxFieldLen)
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.2f", score)
}

func formatReasons(reasons []models.ScoreReason) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%.2f", r.Factor, r.Value)
	}
	return out
}
