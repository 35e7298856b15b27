// Command jobsentineld is the headless daemon: it loads configuration,
// wires internal/app's composition root, and runs until an interrupt or
// SIGTERM. Flag handling and the load -> logger -> banner
// startup sequence are adapted from cmd/quaero/main.go; there is no HTTP
// server here (spec §1: the GUI shell is an external collaborator reached
// through internal/rpc, not a network listener the core daemon owns).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/app"
	"github.com/jobsentinel/jobsentinel/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags,
// later files overriding earlier ones (same shape as the teacher's CLI).
type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }
func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("jobsentineld version %s\n", common.GetVersion())
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("jobsentinel.toml"); err == nil {
			configFiles = append(configFiles, "jobsentinel.toml")
		}
	}

	cfg, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	logger := common.SetupLogger(cfg)
	common.PrintBanner(cfg, logger)

	var configPath string
	if len(configFiles) > 0 {
		configPath = configFiles[len(configFiles)-1]
	}

	application, err := app.New(cfg, configPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	logger.Info().Msg("jobsentineld ready - press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("interrupt signal received, shutting down")

	common.PrintShutdownBanner(logger)
}
