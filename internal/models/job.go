package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"
)

// RemoteTag is the tri-valued work-location tag from spec §3.
type RemoteTag string

const (
	RemoteUnknown RemoteTag = ""
	RemoteRemote  RemoteTag = "remote"
	RemoteHybrid  RemoteTag = "hybrid"
	RemoteOnsite  RemoteTag = "onsite"
)

// ScoreReason is one entry of the Scorer's breakdown (spec §4.6 "reasons").
// It is a slice element, not a map, so JSON serialization is order-stable
// and therefore byte-for-byte deterministic (spec §8 "Scorer determinism").
type ScoreReason struct {
	Factor string  `json:"factor"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail"`
}

// UpsertOutcome reports whether Store.Upsert created a new row or updated
// an existing one (spec §4.5).
type UpsertOutcome string

const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
)

// Job is JobSentinel's central entity (spec §3).
type Job struct {
	ID    int64
	Hash  string
	Source string

	Company     string
	Title       string
	Location    string
	URL         string
	Description string

	SalaryMin *int
	SalaryMax *int
	Remote    RemoteTag

	Score        float64
	ScoreReasons []ScoreReason

	GhostScore   float64
	GhostReasons []string

	FirstSeen time.Time
	LastSeen  time.Time

	RepostCount        int
	ImmediateAlertSent bool

	PostedAt *time.Time
}

// RepostEvent is one append-only row of RepostHistory (spec §3).
type RepostEvent struct {
	JobHash    string
	ObservedAt time.Time
}

// ComputeHash derives the 16-hex-char dedup key over
// (source, company, title, location, url) per spec §3.
func ComputeHash(source, company, title, location, rawURL string) string {
	sum := sha256.Sum256([]byte(source + "\x00" + company + "\x00" + title + "\x00" + location + "\x00" + rawURL))
	return hex.EncodeToString(sum[:])[:16]
}

// Normalize truncates text fields to their §3 bounds and recomputes Hash.
// Adapters call this before returning a Job; the Store calls it again as a
// second defence per spec §4.5.
func (j *Job) Normalize() {
	j.Company = Truncate(j.Company, MaxCompanyLen)
	j.Title = Truncate(j.Title, MaxTitleLen)
	j.Location = Truncate(j.Location, MaxLocationLen)
	j.URL = Truncate(j.URL, MaxURLLen)
	j.Description = Truncate(j.Description, MaxDescriptionLen)
	j.Hash = ComputeHash(j.Source, j.Company, j.Title, j.Location, j.URL)
}

// ValidateURL rejects any scheme other than http/https (spec §3 invariant).
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme %q not in {http, https}", u.Scheme)
	}
	return nil
}

// ClampScore clamps v to [0,1], reporting whether clamping occurred (spec
// §4.6: "clamp events are logged at warn level" — the caller does the
// logging, this just reports the fact).
func ClampScore(v float64) (clamped float64, didClamp bool) {
	switch {
	case v < 0:
		return 0, true
	case v > 1:
		return 1, true
	default:
		return v, false
	}
}
