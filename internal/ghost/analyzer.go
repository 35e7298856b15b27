// Package ghost implements the Ghost Analyzer (spec §4.7): a pure,
// idempotent heuristic estimating how likely a listing is stale or fake.
// Like the Scorer it has no teacher analog and follows the same small
// pure-function style as internal/services/atlassian's transformers.
package ghost

import (
	"fmt"
	"strings"
	"time"

	"github.com/jobsentinel/jobsentinel/internal/models"
)

const (
	unrealisticCuesBonus = 0.15
	concurrentRolesScale = 0.05
	maxConcurrentBonus   = 0.2

	defaultLongOpenDays = 45
)

var unrealisticCues = []string{
	"ninja", "rockstar", "10+ years react", "unpaid", "equity only", "wear many hats",
}

// Config weights the analyzer's factors; it is the ghost-analysis half of
// the TOML [ghost] table (common.GhostConfig carries the on-disk shape,
// min_observation_days doubles as the long-open threshold here).
type Config struct {
	MinObservationDays int
	RepostWeight       float64
	LongOpenWeight     float64
	ShortDescWeight    float64
}

// Stats carries the cross-job context the analyzer needs but a single Job
// cannot supply on its own: the median description length of comparable
// jobs (the scheduler passes the median for the job's own source) and how
// many other currently-open roles the same company has listed.
type Stats struct {
	MedianDescriptionLen int
	ConcurrentOpenRoles  int
}

// Analyze returns job's ghost score and the reason tags that produced it.
// Pure and idempotent: the same job and stats always produce the same
// result, so it may be recomputed offline over historical rows.
func Analyze(job *models.Job, stats Stats, cfg Config) (float64, []string) {
	longOpenDays := cfg.MinObservationDays
	if longOpenDays <= 0 {
		longOpenDays = defaultLongOpenDays
	}

	var reasons []string
	var value float64

	if job.RepostCount > 0 {
		repostContribution := cfg.RepostWeight * clampFraction(float64(job.RepostCount)/3)
		value += repostContribution
		reasons = append(reasons, fmt.Sprintf("reposted %d times", job.RepostCount))
	}

	if job.PostedAt != nil {
		age := time.Since(*job.PostedAt).Hours() / 24
		if age >= float64(longOpenDays) {
			value += cfg.LongOpenWeight
			reasons = append(reasons, fmt.Sprintf("open for %.0f days", age))
		}
	}

	if stats.MedianDescriptionLen > 0 {
		descLen := len(job.Description)
		if descLen < stats.MedianDescriptionLen/2 {
			value += cfg.ShortDescWeight
			reasons = append(reasons, "description much shorter than median")
		}
	}

	if hasUnrealisticCues(job.Title + " " + job.Description) {
		value += unrealisticCuesBonus
		reasons = append(reasons, "unrealistic requirement language")
	}

	if stats.ConcurrentOpenRoles > 1 {
		bonus := clampFraction(float64(stats.ConcurrentOpenRoles-1) * concurrentRolesScale)
		if bonus > maxConcurrentBonus {
			bonus = maxConcurrentBonus
		}
		value += bonus
		reasons = append(reasons, fmt.Sprintf("%d concurrent open roles at company", stats.ConcurrentOpenRoles))
	}

	clamped, _ := models.ClampScore(value)
	return clamped, reasons
}

func hasUnrealisticCues(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range unrealisticCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
