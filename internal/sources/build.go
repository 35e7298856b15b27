package sources

import (
	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/httpclient"
	"github.com/jobsentinel/jobsentinel/internal/models"
	"github.com/jobsentinel/jobsentinel/internal/sources/greenhouse"
	"github.com/jobsentinel/jobsentinel/internal/sources/jobswithgpt"
	"github.com/jobsentinel/jobsentinel/internal/sources/lever"
)

// BuildAll constructs one Adapter per configured board/query, in the order
// the Scheduler fans them out (spec §4.9 "max_concurrent_sources" bounds
// how many of these run at once, not how many exist).
func BuildAll(cfg models.SourcesConfig, client *httpclient.Client, logger arbor.ILogger) []Adapter {
	adapters := make([]Adapter, 0, len(cfg.GreenhouseURLs)+len(cfg.LeverURLs)+1)

	for _, u := range cfg.GreenhouseURLs {
		adapters = append(adapters, greenhouse.New(u, client, logger))
	}
	for _, u := range cfg.LeverURLs {
		adapters = append(adapters, lever.New(u, client, logger))
	}
	if cfg.JobsWithGPT.Enabled && len(cfg.JobsWithGPT.Queries) > 0 {
		adapters = append(adapters, jobswithgpt.New(cfg.JobsWithGPT.Endpoint, cfg.JobsWithGPT.Queries, client, logger))
	}

	return adapters
}
