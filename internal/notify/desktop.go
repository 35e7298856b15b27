package notify

import (
	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/models"
)

// desktopSend logs the match at info level as the local "toast". No
// dependency in the retrieval pack wraps an OS-native notification center
// (Windows toast / macOS Notification Center / libnotify), so this is the
// documented seam: a real toast backend can replace this function without
// touching the rest of the notifier.
func desktopSend(logger arbor.ILogger, job *models.Job) error {
	logger.Info().
		Str("company", job.Company).
		Str("title", job.Title).
		Str("url", job.URL).
		Msg("desktop notification: new matching job")
	return nil
}
