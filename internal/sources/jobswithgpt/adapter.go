// Package jobswithgpt implements the JobsWithGPT source adapter (spec
// §4.4): a JSON-RPC style POST per configured query against a configurable
// endpoint (default the public jobswithgpt.com search API).
package jobswithgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/httpclient"
	"github.com/jobsentinel/jobsentinel/internal/models"
	"github.com/jobsentinel/jobsentinel/internal/sources"
)

const sourceName = "jobswithgpt"

// DefaultEndpoint is used when the configured endpoint is empty.
const DefaultEndpoint = "https://jobswithgpt.com/api/search"

// Adapter issues one search request per configured query string.
type Adapter struct {
	endpoint string
	queries  []string
	client   *httpclient.Client
	logger   arbor.ILogger
}

func New(endpoint string, queries []string, client *httpclient.Client, logger arbor.ILogger) *Adapter {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Adapter{endpoint: endpoint, queries: queries, client: client, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Company     string  `json:"company"`
	Title       string  `json:"title"`
	Location    string  `json:"location"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	SalaryMin   *int    `json:"salary_min"`
	SalaryMax   *int    `json:"salary_max"`
	Remote      string  `json:"remote"`
}

func (a *Adapter) Fetch(ctx context.Context) ([]*models.Job, error) {
	var jobs []*models.Job
	for _, query := range a.queries {
		found, err := a.searchOne(ctx, query)
		if err != nil {
			a.logger.Warn().Str("query", query).Err(err).Msg("jobswithgpt query failed, continuing with remaining queries")
			continue
		}
		jobs = append(jobs, found...)
	}
	return jobs, nil
}

func (a *Adapter) searchOne(ctx context.Context, query string) ([]*models.Job, error) {
	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	jobs := make([]*models.Job, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		remote := remoteFromTag(r.Remote)
		if remote == models.RemoteUnknown {
			remote = sources.InferRemote(r.Title + " " + r.Location + " " + r.Description)
		}
		job := &models.Job{
			Source:      sourceName,
			Company:     r.Company,
			Title:       r.Title,
			Location:    r.Location,
			URL:         r.URL,
			Description: r.Description,
			SalaryMin:   r.SalaryMin,
			SalaryMax:   r.SalaryMax,
			Remote:      remote,
		}
		job.Normalize()
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func remoteFromTag(tag string) models.RemoteTag {
	switch tag {
	case "remote":
		return models.RemoteRemote
	case "hybrid":
		return models.RemoteHybrid
	case "onsite":
		return models.RemoteOnsite
	default:
		return models.RemoteUnknown
	}
}

var _ sources.Adapter = (*Adapter)(nil)
