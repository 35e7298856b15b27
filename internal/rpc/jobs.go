package rpc

import (
	"context"

	"github.com/jobsentinel/jobsentinel/internal/apperr"
	"github.com/jobsentinel/jobsentinel/internal/models"
	"github.com/jobsentinel/jobsentinel/internal/storage/sqlite"
)

// SearchJobsRequest is search_jobs' input: a free-text query over the
// full-text index.
type SearchJobsRequest struct {
	Query string
	Limit int
}

// SearchJobs runs a full-text search over stored jobs (spec §4.10
// search_jobs).
func (s *Server) SearchJobs(ctx context.Context, req SearchJobsRequest) ([]*models.Job, error) {
	if req.Query == "" {
		return nil, apperr.New(apperr.KindConfigInvalid, "query is empty")
	}
	return s.store.List(ctx, sqlite.ListOptions{Search: req.Query, Limit: req.Limit})
}

// GetRecentJobsRequest is get_recent_jobs' input.
type GetRecentJobsRequest struct {
	Limit int
}

// GetRecentJobs returns the most recently seen jobs (spec §4.10
// get_recent_jobs).
func (s *Server) GetRecentJobs(ctx context.Context, req GetRecentJobsRequest) ([]*models.Job, error) {
	return s.store.List(ctx, sqlite.ListOptions{Limit: req.Limit})
}

// GetJobByIDRequest is get_job_by_id's input. "id" is the Store's
// monotonic row id (spec §3), distinct from the dedup "hash" used
// internally for repost matching.
type GetJobByIDRequest struct {
	ID int64
}

// GetJobByID looks up one job by its store id (spec §4.10 get_job_by_id).
func (s *Server) GetJobByID(ctx context.Context, req GetJobByIDRequest) (*models.Job, error) {
	if req.ID <= 0 {
		return nil, apperr.New(apperr.KindConfigInvalid, "id must be positive")
	}
	job, err := s.store.GetByID(ctx, req.ID)
	if err != nil {
		if err == sqlite.ErrJobNotFound {
			return nil, apperr.Wrap(apperr.KindNotFound, "job not found", err).WithField("id", req.ID)
		}
		return nil, err
	}
	return job, nil
}

// SearchJobsQueryRequest is search_jobs_query's input: the full filter
// surface over List.
type SearchJobsQueryRequest struct {
	Source           string
	MinScore         float64
	MaxGhost         float64
	Search           string
	OrderByScoreDesc bool
	Limit            int
	Offset           int
}

// SearchJobsQuery runs a structured multi-field query (spec §4.10
// search_jobs_query).
func (s *Server) SearchJobsQuery(ctx context.Context, req SearchJobsQueryRequest) ([]*models.Job, error) {
	return s.store.List(ctx, sqlite.ListOptions{
		Source:           req.Source,
		MinScore:         req.MinScore,
		MaxGhost:         req.MaxGhost,
		Search:           req.Search,
		OrderByScoreDesc: req.OrderByScoreDesc,
		Limit:            req.Limit,
		Offset:           req.Offset,
	})
}

// GetRecentJobsFilteredRequest is get_recent_jobs_filtered's input: the
// dashboard's "recent, but only what I care about" view, sharing
// ChannelFilter's shape rather than List's raw SQL filters so the GUI
// reuses the same mental model it uses to configure notification
// channels.
type GetRecentJobsFilteredRequest struct {
	MinScore   float64
	RemoteOnly bool
	Limit      int
}

// GetRecentJobsFiltered returns recent jobs passing a dashboard-style
// filter (spec §4.10 get_recent_jobs_filtered).
func (s *Server) GetRecentJobsFiltered(ctx context.Context, req GetRecentJobsFilteredRequest) ([]*models.Job, error) {
	jobs, err := s.store.List(ctx, sqlite.ListOptions{MinScore: req.MinScore, OrderByScoreDesc: true, Limit: req.Limit})
	if err != nil {
		return nil, err
	}
	if !req.RemoteOnly {
		return jobs, nil
	}
	filtered := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Remote == models.RemoteRemote {
			filtered = append(filtered, job)
		}
	}
	return filtered, nil
}

// GetStatistics returns store-wide counters (spec §4.10 get_statistics).
func (s *Server) GetStatistics(ctx context.Context) (*sqlite.Stats, error) {
	return s.store.Stats(ctx)
}

// GetGhostJobsRequest is get_ghost_jobs' input.
type GetGhostJobsRequest struct {
	Threshold float64
}

// GetGhostJobs returns jobs at or above a ghost-score threshold (spec
// §4.10 get_ghost_jobs).
func (s *Server) GetGhostJobs(ctx context.Context, req GetGhostJobsRequest) ([]*models.Job, error) {
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}
	return s.store.GhostJobs(ctx, threshold)
}

// GhostStatistics summarizes the ghost-listing signal across the store
// (spec §4.10 get_ghost_statistics).
type GhostStatistics struct {
	TotalJobs     int
	GhostCount    int
	AvgGhostScore float64
}

// GetGhostStatistics aggregates ghost-score counters.
func (s *Server) GetGhostStatistics(ctx context.Context) (*GhostStatistics, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	ghosts, err := s.store.GhostJobs(ctx, 0.5)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, j := range ghosts {
		total += j.GhostScore
	}
	avg := 0.0
	if len(ghosts) > 0 {
		avg = total / float64(len(ghosts))
	}
	return &GhostStatistics{TotalJobs: stats.TotalJobs, GhostCount: stats.GhostCount, AvgGhostScore: avg}, nil
}
