// Command jobsentinelctl is a thin driver over internal/rpc.Server: it
// loads the same configuration a running jobsentineld would, builds its
// own App so it can act on the data directory directly, and dispatches a
// single subcommand straight through the service layer rather than
// re-implementing any of it — the same "small driver calling straight
// through the service layer" shape as the teacher's
// cmd/quaero-test-runner, with RPC commands standing in for test suites.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/app"
	"github.com/jobsentinel/jobsentinel/internal/common"
	"github.com/jobsentinel/jobsentinel/internal/models"
	"github.com/jobsentinel/jobsentinel/internal/rpc"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configFile := fs.String("config", "jobsentinel.toml", "Configuration file path")
	_ = fs.Parse(os.Args[2:])

	cfg, err := common.LoadFromFiles(*configFile)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Str("path", *configFile).Err(err).Msg("failed to load configuration")
	}

	logger := common.SetupLogger(cfg)
	application, err := app.New(cfg, *configFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	ctx := context.Background()
	if err := dispatch(ctx, application.RPC, cmd, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "jobsentinelctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: jobsentinelctl <command> [-config path] [args]

commands:
  run-once                     trigger one synchronous scrape/score/notify cycle
  status                       print the scheduler's current state
  stats                        print store-wide job and ghost-listing counters
  search <query>                full-text search over stored jobs
  recent [limit]                most recently seen jobs
  ghosts [threshold]             jobs at or above a ghost-listing score
  validate-webhook <channel> <url>  check a webhook URL against its provider allowlist`)
}

func dispatch(ctx context.Context, server *rpc.Server, cmd string, args []string) error {
	switch cmd {
	case "run-once":
		return server.RunOnce(ctx)

	case "status":
		status := server.GetScrapingStatus()
		fmt.Printf("state: %s\n", status.State)
		if status.LastCycleStarted != nil {
			fmt.Printf("last cycle started:  %s\n", status.LastCycleStarted.Format("2006-01-02T15:04:05Z07:00"))
		}
		if status.LastCycleFinished != nil {
			fmt.Printf("last cycle finished: %s\n", status.LastCycleFinished.Format("2006-01-02T15:04:05Z07:00"))
		}
		if status.LastError != "" {
			fmt.Printf("last error: %s\n", status.LastError)
		}
		fmt.Printf("sources run: %d  failures: %d  fetched: %d  upserted: %d  alerts: %d\n",
			status.LastCounts.SourcesRun, status.LastCounts.SourceFailures,
			status.LastCounts.JobsFetched, status.LastCounts.JobsUpserted, status.LastCounts.AlertsDispatched)
		return nil

	case "stats":
		stats, err := server.GetStatistics(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("total jobs: %d  ghosts: %d  avg score: %.3f\n", stats.TotalJobs, stats.GhostCount, stats.AvgScore)
		for source, count := range stats.BySource {
			fmt.Printf("  %-20s %d\n", source, count)
		}
		return nil

	case "search":
		if len(args) < 1 {
			return fmt.Errorf("search requires a query argument")
		}
		jobs, err := server.SearchJobs(ctx, rpc.SearchJobsRequest{Query: strings.Join(args, " "), Limit: 50})
		if err != nil {
			return err
		}
		printJobs(jobs)
		return nil

	case "recent":
		limit := 20
		if len(args) > 0 {
			fmt.Sscanf(args[0], "%d", &limit)
		}
		jobs, err := server.GetRecentJobs(ctx, rpc.GetRecentJobsRequest{Limit: limit})
		if err != nil {
			return err
		}
		printJobs(jobs)
		return nil

	case "ghosts":
		threshold := 0.5
		if len(args) > 0 {
			fmt.Sscanf(args[0], "%f", &threshold)
		}
		jobs, err := server.GetGhostJobs(ctx, rpc.GetGhostJobsRequest{Threshold: threshold})
		if err != nil {
			return err
		}
		printJobs(jobs)
		return nil

	case "validate-webhook":
		if len(args) < 2 {
			return fmt.Errorf("validate-webhook requires <channel> <url> arguments")
		}
		return server.ValidateWebhook(rpc.ValidateWebhookRequest{Channel: args[0], URL: args[1]})

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printJobs(jobs []*models.Job) {
	for _, j := range jobs {
		fmt.Printf("%-16s %-7.3f %-6.3f %-20s %-40s %s\n", j.Hash, j.Score, j.GhostScore, j.Company, j.Title, j.URL)
	}
	fmt.Printf("%d job(s)\n", len(jobs))
}
