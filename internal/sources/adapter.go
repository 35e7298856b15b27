// Package sources defines the Source Adapter contract (spec §4.4) and its
// implementations. Each adapter fetches one job board's listing, parses it,
// and normalizes the result into models.Job values; adapters never touch
// the Store directly, matching the teacher's connector pattern of a thin
// wrapper exposing Type()/Fetch() and a compile-time interface assertion.
package sources

import (
	"context"
	"strings"

	"github.com/jobsentinel/jobsentinel/internal/models"
)

// Adapter fetches and normalizes jobs from one board. Fetch returning a
// non-nil error does not abort the scheduler cycle (spec §4.9 "source
// isolation"): the caller wraps it in apperr.SourceFailed and continues
// with the next source.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]*models.Job, error)
}

// InferRemote guesses a RemoteTag from free-text location/title, a
// best-effort heuristic shared by every adapter rather than duplicated in
// each one.
func InferRemote(text string) models.RemoteTag {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "remote"):
		return models.RemoteRemote
	case strings.Contains(lower, "hybrid"):
		return models.RemoteHybrid
	case text == "":
		return models.RemoteUnknown
	default:
		return models.RemoteOnsite
	}
}
