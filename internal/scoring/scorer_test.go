package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsentinel/jobsentinel/internal/models"
)

func TestScore_BlocklistForcesZero(t *testing.T) {
	job := &models.Job{Title: "Senior Recruiter"}
	prefs := models.Preferences{TitleBlocklist: []string{"recruiter"}}

	value, reasons := Score(job, prefs, nil)

	assert.Equal(t, 0.0, value)
	require.Len(t, reasons, 1)
	assert.Equal(t, "blocklist", reasons[0].Factor)
}

func TestScore_ExcludeKeywordForcesZero(t *testing.T) {
	job := &models.Job{Title: "Staff Engineer", Description: "unpaid internship"}
	prefs := models.Preferences{KeywordsExclude: []string{"unpaid"}}

	value, _ := Score(job, prefs, nil)

	assert.Equal(t, 0.0, value)
}

func TestRecencyFactor_Boundaries(t *testing.T) {
	sevenDaysAgo := time.Now().Add(-7 * 24 * time.Hour)
	sixtyDaysAgo := time.Now().Add(-60 * 24 * time.Hour)
	midpoint := time.Now().Add(-33*24*time.Hour - 12*time.Hour)

	assert.InDelta(t, 1.0, recencyFactor(&models.Job{PostedAt: &sevenDaysAgo}), 1e-6)
	assert.InDelta(t, 0.0, recencyFactor(&models.Job{PostedAt: &sixtyDaysAgo}), 1e-6)
	assert.InDelta(t, 0.5, recencyFactor(&models.Job{PostedAt: &midpoint}), 1e-2)
}

func TestSalaryFactor(t *testing.T) {
	floor := 150000
	above := 160000
	below := 100000

	assert.Equal(t, 0.5, salaryFactor(&models.Job{}, models.Preferences{SalaryFloorUSD: floor}))
	assert.Equal(t, 1.0, salaryFactor(&models.Job{SalaryMin: &above}, models.Preferences{SalaryFloorUSD: floor}))
	assert.Equal(t, 0.0, salaryFactor(&models.Job{SalaryMax: &below}, models.Preferences{SalaryFloorUSD: floor}))
}

func TestScore_Deterministic(t *testing.T) {
	postedAt := time.Now().Add(-10 * 24 * time.Hour)
	job := &models.Job{
		Title:       "Backend Engineer",
		Description: "Go, distributed systems",
		Location:    "Austin, TX",
		Remote:      models.RemoteHybrid,
		PostedAt:    &postedAt,
	}
	prefs := models.Preferences{
		KeywordsBoost:       []string{"go"},
		LocationPreferences: models.LocationPreferences{AllowHybrid: true},
	}

	v1, r1 := Score(job, prefs, nil)
	v2, r2 := Score(job, prefs, nil)

	assert.Equal(t, v1, v2)
	assert.Equal(t, r1, r2)
}

func TestScore_ClampedValueStaysInRange(t *testing.T) {
	job := &models.Job{Title: "Engineer"}
	value, _ := Score(job, models.Preferences{}, nil)
	assert.GreaterOrEqual(t, value, 0.0)
	assert.LessOrEqual(t, value, 1.0)
}
