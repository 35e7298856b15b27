// Package notify implements the Notifier (spec §4.8): per-channel webhook
// dispatch with validation, rich-block payloads, retries, and the filter
// gate from spec §4.2. It has no teacher analog for the dispatch surface
// itself, but its retry policy is adapted from
// internal/services/crawler/retry.go and its HTTP usage goes through the
// same shared internal/httpclient.Client every source adapter uses.
package notify

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/apperr"
	"github.com/jobsentinel/jobsentinel/internal/httpclient"
	"github.com/jobsentinel/jobsentinel/internal/models"
)

// Outcome is the terminal result of dispatching to one channel.
type Outcome struct {
	Channel string
	Sent    bool // false both when filtered out and when the send failed (then Err is set)
	Err     error
}

// Notifier dispatches a scored job to every enabled channel that passes
// its filter.
type Notifier struct {
	client        *httpclient.Client
	logger        arbor.ILogger
	allowTestURLs bool
}

func New(client *httpclient.Client, logger arbor.ILogger, allowTestURLs bool) *Notifier {
	return &Notifier{client: client, logger: logger, allowTestURLs: allowTestURLs}
}

// Notify dispatches job to every enabled channel in channels that passes its
// filter, returning one Outcome per enabled channel regardless of
// filter/send result; disabled channels are skipped and get no Outcome. The
// caller marks the job's alert as sent only once every Outcome here is
// terminal (spec §4.9 step 4).
func (n *Notifier) Notify(ctx context.Context, job *models.Job, channels []models.NotificationChannel) []Outcome {
	outcomes := make([]Outcome, 0, len(channels))
	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		if !passesFilter(job, ch.ChannelFilter) {
			outcomes = append(outcomes, Outcome{Channel: ch.Name, Sent: false})
			continue
		}

		err := n.send(ctx, ch, job)
		outcomes = append(outcomes, Outcome{Channel: ch.Name, Sent: err == nil, Err: err})
		if err != nil {
			n.logger.Warn().Str("channel", ch.Name).Str("job_hash", job.Hash).Err(err).Msg("notification delivery failed")
		}
	}
	return outcomes
}

func (n *Notifier) send(ctx context.Context, ch models.NotificationChannel, job *models.Job) error {
	switch ch.Kind {
	case "desktop":
		return desktopSend(n.logger, job)
	case "slack":
		return sendWebhook(ctx, n.client, n.logger, "slack", ch.WebhookURL, n.allowTestURLs, buildSlackPayload(job))
	case "discord":
		return sendWebhook(ctx, n.client, n.logger, "discord", ch.WebhookURL, n.allowTestURLs, buildDiscordPayload(job))
	case "teams":
		return sendWebhook(ctx, n.client, n.logger, "teams", ch.WebhookURL, n.allowTestURLs, buildTeamsPayload(job))
	default:
		return apperr.New(apperr.KindConfigInvalid, "unrecognized channel kind "+ch.Kind)
	}
}

func passesFilter(job *models.Job, f models.ChannelFilter) bool {
	if job.Score < f.MinScore {
		return false
	}
	if f.RemoteOnly && job.Remote != models.RemoteRemote {
		return false
	}
	if len(f.CompanyAllowlist) > 0 && !containsFold(f.CompanyAllowlist, job.Company) {
		return false
	}
	if containsFold(f.CompanyBlocklist, job.Company) {
		return false
	}
	haystack := strings.ToLower(job.Title + " " + job.Description)
	if len(f.KeywordInclude) > 0 && !anyContains(haystack, f.KeywordInclude) {
		return false
	}
	if anyContains(haystack, f.KeywordExclude) {
		return false
	}
	return true
}

func containsFold(list []string, value string) bool {
	lower := strings.ToLower(value)
	for _, item := range list {
		if strings.EqualFold(item, lower) || strings.ToLower(item) == lower {
			return true
		}
	}
	return false
}

func anyContains(haystack string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(haystack, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
