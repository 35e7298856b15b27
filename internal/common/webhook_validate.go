package common

import (
	"fmt"
	"net/url"
	"strings"
)

// webhookRule is the closed per-channel-kind allowlist spec §4.8 names:
// host must exactly match (never substring-matched, since that is how SSRF
// filters get bypassed) and the path must start with the provider's fixed
// prefix.
type webhookRule struct {
	hosts      map[string]bool
	pathPrefix string
}

var webhookRules = map[string]webhookRule{
	"slack": {
		hosts:      map[string]bool{"hooks.slack.com": true},
		pathPrefix: "/services/",
	},
	"discord": {
		hosts:      map[string]bool{"discord.com": true, "discordapp.com": true},
		pathPrefix: "/api/webhooks/",
	},
	"teams": {
		hosts:      map[string]bool{"outlook.office.com": true, "outlook.office365.com": true},
		pathPrefix: "/webhook/",
	},
}

// ValidateWebhookURL enforces spec §4.8's scheme/host/path/credential rules
// for the given channel kind ("slack", "discord", "teams"; "desktop" takes
// no webhook URL and is rejected here).
func ValidateWebhookURL(kind, raw string) error {
	return validateWebhookURL(kind, raw, false)
}

// ValidateWebhookURLForEnv is ValidateWebhookURL with the loopback exception
// used by non-production environments for local testing.
func ValidateWebhookURLForEnv(kind, raw string, allowTestURLs bool) error {
	return validateWebhookURL(kind, raw, allowTestURLs)
}

func validateWebhookURL(kind, raw string, allowTestURLs bool) error {
	if raw == "" {
		return fmt.Errorf("webhook url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if u.User != nil {
		return fmt.Errorf("webhook url must not embed credentials")
	}

	host := strings.ToLower(u.Hostname())
	if allowTestURLs && isLoopbackHost(host) {
		return nil
	}

	if u.Scheme != "https" {
		return fmt.Errorf("webhook url must use https (got %q)", u.Scheme)
	}

	rule, ok := webhookRules[kind]
	if !ok {
		return fmt.Errorf("webhook kind %q has no recognized provider allowlist", kind)
	}
	if !rule.hosts[host] {
		return fmt.Errorf("webhook host %q is not a recognized %s endpoint", host, kind)
	}
	if !strings.HasPrefix(u.Path, rule.pathPrefix) {
		return fmt.Errorf("webhook path %q must start with %q for %s", u.Path, rule.pathPrefix, kind)
	}
	return nil
}

func isLoopbackHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
