// Package lever implements the Lever source adapter (spec §4.4): a single
// JSON API call per company, no HTML fallback needed since Lever's postings
// endpoint is public and stable.
package lever

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/httpclient"
	"github.com/jobsentinel/jobsentinel/internal/models"
	"github.com/jobsentinel/jobsentinel/internal/sources"
)

const sourceName = "lever"

// Adapter polls one Lever company postings feed, identified by its public
// board URL (e.g. https://jobs.lever.co/acme).
type Adapter struct {
	boardURL string
	client   *httpclient.Client
	logger   arbor.ILogger
}

func New(boardURL string, client *httpclient.Client, logger arbor.ILogger) *Adapter {
	return &Adapter{boardURL: boardURL, client: client, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

type leverPosting struct {
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	Categories struct {
		Location string `json:"location"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	DescriptionPlain string `json:"descriptionPlain"`
}

func (a *Adapter) Fetch(ctx context.Context) ([]*models.Job, error) {
	company := companyFromBoardURL(a.boardURL)
	apiURL := fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", url.PathEscape(company))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch postings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("postings api returned status %d", resp.StatusCode)
	}

	var postings []leverPosting
	if err := json.NewDecoder(resp.Body).Decode(&postings); err != nil {
		return nil, fmt.Errorf("decode postings: %w", err)
	}

	jobs := make([]*models.Job, 0, len(postings))
	for _, p := range postings {
		description := p.DescriptionPlain
		if description == "" {
			description = stripHTML(p.DescriptionPlain)
		}
		job := &models.Job{
			Source:      sourceName,
			Company:     company,
			Title:       p.Text,
			Location:    p.Categories.Location,
			URL:         p.HostedURL,
			Description: description,
			Remote:      sources.InferRemote(p.Text + " " + p.Categories.Location + " " + description),
		}
		job.Normalize()
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func companyFromBoardURL(boardURL string) string {
	u, err := url.Parse(boardURL)
	if err != nil {
		return boardURL
	}
	path := strings.Trim(u.Path, "/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		return u.Host
	}
	return parts[0]
}

func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}

var _ sources.Adapter = (*Adapter)(nil)
