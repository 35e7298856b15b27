// Package scoring implements the Scorer (spec §4.6): a deterministic, pure
// multi-factor match score with a human-readable breakdown. It has no
// teacher analog (the teacher scores nothing), so its shape is grounded on
// the teacher's habit of small, pure, heavily-tested transform functions —
// see internal/services/atlassian/jira_transformer.go for the style this
// follows: one exported entry point, several unexported per-factor helpers,
// no I/O.
package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/models"
)

const (
	weightSkills   = 0.40
	weightSalary   = 0.25
	weightLocation = 0.20
	weightCompany  = 0.10
	weightRecency  = 0.05

	recencyFullDays = 7
	recencyZeroDays = 60
)

// Score computes job's match value against prefs and returns the
// per-factor breakdown used both for persistence and for explaining the
// result. logger receives a warn-level entry whenever the final value had
// to be clamped into [0,1] (spec §4.6); it may be nil in tests.
func Score(job *models.Job, prefs models.Preferences, logger arbor.ILogger) (float64, []models.ScoreReason) {
	if blocklisted(job.Title, prefs.TitleBlocklist) {
		return 0, []models.ScoreReason{{Factor: "blocklist", Weight: 1, Value: 0, Detail: "title matched blocklist"}}
	}
	if anyKeywordHit(job.Title+" "+job.Description, prefs.KeywordsExclude) {
		return 0, []models.ScoreReason{{Factor: "keywords_exclude", Weight: 1, Value: 0, Detail: "excluded keyword present"}}
	}

	reasons := make([]models.ScoreReason, 0, 5)

	skills := skillsFactor(job, prefs)
	reasons = append(reasons, models.ScoreReason{Factor: "skills", Weight: weightSkills, Value: skills})

	salary := salaryFactor(job, prefs)
	reasons = append(reasons, models.ScoreReason{Factor: "salary", Weight: weightSalary, Value: salary})

	location := locationFactor(job, prefs)
	reasons = append(reasons, models.ScoreReason{Factor: "location", Weight: weightLocation, Value: location})

	company := companyFactor(job)
	reasons = append(reasons, models.ScoreReason{Factor: "company", Weight: weightCompany, Value: company})

	recency := recencyFactor(job)
	reasons = append(reasons, models.ScoreReason{Factor: "recency", Weight: weightRecency, Value: recency})

	raw := skills*weightSkills + salary*weightSalary + location*weightLocation + company*weightCompany + recency*weightRecency

	value, clamped := models.ClampScore(raw)
	if clamped && logger != nil {
		logger.Warn().Str("job_hash", job.Hash).Str("raw_score", fmt.Sprintf("%.4f", raw)).Msg("scorer clamped out-of-range value")
	}

	return value, reasons
}

func blocklisted(title string, blocklist []string) bool {
	lower := strings.ToLower(title)
	for _, b := range blocklist {
		if b != "" && strings.Contains(lower, strings.ToLower(b)) {
			return true
		}
	}
	return false
}

func anyKeywordHit(haystack string, keywords []string) bool {
	lower := strings.ToLower(haystack)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func skillsFactor(job *models.Job, prefs models.Preferences) float64 {
	titleAllowed := len(prefs.TitleAllowlist) == 0 || matchesAny(job.Title, prefs.TitleAllowlist)
	boostHit := anyKeywordHit(job.Title+" "+job.Description, prefs.KeywordsBoost)

	if titleAllowed && boostHit {
		return 1.0
	}
	if len(prefs.KeywordsBoost) == 0 {
		if titleAllowed {
			return 1.0
		}
		return 0
	}

	// Linear fraction of boost keywords present, the "linear fraction
	// otherwise" branch of the spec's skills contract.
	hits := 0
	lower := strings.ToLower(job.Title + " " + job.Description)
	for _, k := range prefs.KeywordsBoost {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			hits++
		}
	}
	fraction := float64(hits) / float64(len(prefs.KeywordsBoost))
	if !titleAllowed {
		fraction *= 0.5
	}
	return fraction
}

func matchesAny(title string, allowlist []string) bool {
	lower := strings.ToLower(title)
	for _, a := range allowlist {
		if a != "" && strings.Contains(lower, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

func salaryFactor(job *models.Job, prefs models.Preferences) float64 {
	floor := prefs.SalaryFloorUSD
	if floor <= 0 {
		return 0.5
	}
	if job.SalaryMin == nil && job.SalaryMax == nil {
		return 0.5
	}
	if job.SalaryMax != nil && *job.SalaryMax < floor {
		return 0
	}
	if job.SalaryMin != nil && *job.SalaryMin >= floor {
		return 1.0
	}
	// Interpolate between max (below floor boundary excluded above) and
	// floor using whichever bound is present.
	if job.SalaryMin != nil && job.SalaryMax != nil {
		span := float64(*job.SalaryMax - *job.SalaryMin)
		if span <= 0 {
			return 0.5
		}
		frac := (float64(floor) - float64(*job.SalaryMin)) / span
		return 1.0 - clamp01(frac)
	}
	return 0.5
}

func locationFactor(job *models.Job, prefs models.Preferences) float64 {
	lp := prefs.LocationPreferences
	lower := strings.ToLower(job.Location)

	for _, city := range lp.Cities {
		if city != "" && strings.Contains(lower, strings.ToLower(city)) {
			return 1.0
		}
	}
	for _, state := range lp.States {
		if state != "" && strings.Contains(lower, strings.ToLower(state)) {
			return 1.0
		}
	}

	switch job.Remote {
	case models.RemoteRemote:
		if lp.AllowRemote {
			return 0.8
		}
	case models.RemoteHybrid:
		if lp.AllowHybrid {
			return 0.8
		}
	case models.RemoteOnsite:
		if lp.AllowOnsite {
			return 0.8
		}
	}
	return 0
}

func companyFactor(job *models.Job) float64 {
	// Reserved for an allowlist-driven contribution; no company weighting
	// is specified beyond the neutral default.
	return 0.5
}

func recencyFactor(job *models.Job) float64 {
	if job.PostedAt == nil {
		return 0.5
	}
	age := time.Since(*job.PostedAt).Hours() / 24
	if age <= recencyFullDays {
		return 1.0
	}
	if age >= recencyZeroDays {
		return 0
	}
	return 1.0 - (age-recencyFullDays)/(recencyZeroDays-recencyFullDays)
}

func clamp01(v float64) float64 {
	v, _ = models.ClampScore(v)
	return v
}
