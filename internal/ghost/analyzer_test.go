package ghost

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jobsentinel/jobsentinel/internal/models"
)

func TestAnalyze_FreshJobScoresLow(t *testing.T) {
	postedAt := time.Now().Add(-2 * 24 * time.Hour)
	job := &models.Job{
		Description: strings.Repeat("a real job description. ", 20),
		PostedAt:    &postedAt,
	}

	value, reasons := Analyze(job, Stats{MedianDescriptionLen: 200, ConcurrentOpenRoles: 1}, testConfig())

	assert.Equal(t, 0.0, value)
	assert.Empty(t, reasons)
}

func TestAnalyze_RepostedAndStaleJobScoresHigh(t *testing.T) {
	postedAt := time.Now().Add(-90 * 24 * time.Hour)
	job := &models.Job{
		RepostCount: 5,
		Description: "short",
		PostedAt:    &postedAt,
	}

	value, reasons := Analyze(job, Stats{MedianDescriptionLen: 500, ConcurrentOpenRoles: 4}, testConfig())

	assert.Greater(t, value, 0.5)
	assert.NotEmpty(t, reasons)
}

func TestAnalyze_Idempotent(t *testing.T) {
	postedAt := time.Now().Add(-60 * 24 * time.Hour)
	job := &models.Job{RepostCount: 2, PostedAt: &postedAt, Description: "desc"}
	stats := Stats{MedianDescriptionLen: 300, ConcurrentOpenRoles: 2}

	v1, r1 := Analyze(job, stats, testConfig())
	v2, r2 := Analyze(job, stats, testConfig())

	assert.Equal(t, v1, v2)
	assert.Equal(t, r1, r2)
}

func TestAnalyze_ValueAlwaysInRange(t *testing.T) {
	job := &models.Job{RepostCount: 100}
	value, _ := Analyze(job, Stats{ConcurrentOpenRoles: 50}, testConfig())
	assert.GreaterOrEqual(t, value, 0.0)
	assert.LessOrEqual(t, value, 1.0)
}


func testConfig() Config {
	return Config{MinObservationDays: 14, RepostWeight: 0.4, LongOpenWeight: 0.35, ShortDescWeight: 0.25}
}
