package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobsentinel/jobsentinel/internal/models"
)

func TestPassesFilter_MinScore(t *testing.T) {
	job := &models.Job{Score: 0.5}
	assert.False(t, passesFilter(job, models.ChannelFilter{MinScore: 0.9}))
	assert.True(t, passesFilter(job, models.ChannelFilter{MinScore: 0.4}))
}

func TestPassesFilter_RemoteOnly(t *testing.T) {
	job := &models.Job{Score: 1, Remote: models.RemoteOnsite}
	assert.False(t, passesFilter(job, models.ChannelFilter{RemoteOnly: true}))

	remoteJob := &models.Job{Score: 1, Remote: models.RemoteRemote}
	assert.True(t, passesFilter(remoteJob, models.ChannelFilter{RemoteOnly: true}))
}

func TestPassesFilter_CompanyBlocklist(t *testing.T) {
	job := &models.Job{Score: 1, Company: "Acme"}
	assert.False(t, passesFilter(job, models.ChannelFilter{CompanyBlocklist: []string{"acme"}}))
}

func TestPassesFilter_KeywordExclude(t *testing.T) {
	job := &models.Job{Score: 1, Title: "Senior Recruiter"}
	assert.False(t, passesFilter(job, models.ChannelFilter{KeywordExclude: []string{"recruiter"}}))
}
