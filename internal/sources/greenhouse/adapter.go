// Package greenhouse implements the Greenhouse source adapter (spec §4.4):
// HTML board parsing first, falling back to the public JSON API when the
// HTML page fails to parse or yields zero postings. The HTML path is
// grounded on the teacher's goquery usage in
// internal/services/crawler/content_processor.go; the JSON fallback mirrors
// Greenhouse's own documented boards-api shape.
package greenhouse

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

const sourceName = "greenhouse"

// Adapter polls one Greenhouse board, identified by its public board URL
// (e.g. https://boards.greenhouse.io/acme or https://job-boards.greenhouse.io/acme).
type Adapter struct {
	boardURL string
	client   *httpclient.Client
	logger   arbor.ILogger
}

func New(boardURL string, client *httpclient.Client, logger arbor.ILogger) *Adapter {
	return &Adapter{boardURL: boardURL, client: client, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) Fetch(ctx context.Context) ([]*models.Job, error) {
	jobs, err := a.fetchHTML(ctx)
	if err == nil && len(jobs) > 0 {
		return jobs, nil
	}
	if err != nil {
		a.logger.Warn().Str("board", a.boardURL).Err(err).Msg("greenhouse html fetch failed, falling back to json api")
	} else {
		a.logger.Debug().Str("board", a.boardURL).Msg("greenhouse html fetch returned zero jobs, falling back to json api")
	}
	return a.fetchJSON(ctx)
}

func (a *Adapter) fetchHTML(ctx context.Context) ([]*models.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.boardURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build html request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch html board: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("html board returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html board: %w", err)
	}

	company := companyFromBoardURL(a.boardURL)

	var jobs []*models.Job
	doc.Find("div.opening, tr.job-post").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		href, _ := link.Attr("href")
		jobURL := resolveURL(a.boardURL, href)
		location := strings.TrimSpace(sel.Find(".location, .job-post__location").First().Text())

		job := &models.Job{
			Source:   sourceName,
			Company:  company,
			Title:    title,
			Location: location,
			URL:      jobURL,
			Remote:   sources.InferRemote(title + " " + location),
		}
		job.Normalize()
		jobs = append(jobs, job)
	})

	return jobs, nil
}

type ghJobsResponse struct {
	Jobs []ghJob `json:"jobs"`
}

type ghJob struct {
	Title    string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Content string `json:"content"`
}

func (a *Adapter) fetchJSON(ctx context.Context) ([]*models.Job, error) {
	company := companyFromBoardURL(a.boardURL)
	apiURL := fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs?content=true", url.PathEscape(company))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build json request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch json api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("json api returned status %d", resp.StatusCode)
	}

	var parsed ghJobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode json api response: %w", err)
	}

	jobs := make([]*models.Job, 0, len(parsed.Jobs))
	for _, j := range parsed.Jobs {
		description := stripHTML(j.Content)
		job := &models.Job{
			Source:      sourceName,
			Company:     company,
			Title:       j.Title,
			Location:    j.Location.Name,
			URL:         j.AbsoluteURL,
			Description: description,
			Remote:      sources.InferRemote(j.Title + " " + j.Location.Name + " " + description),
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
	if len(parts) == 0 {
		return u.Host
	}
	return parts[0]
}

func resolveURL(base, href string) string {
	if href == "" {
		return base
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}

var _ sources.Adapter = (*Adapter)(nil)
