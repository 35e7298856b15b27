package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner.
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("JOBSENTINEL")
	b.PrintCenteredText("Local-first job search automation")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Environment", config.Environment, 15)
	b.PrintKeyValue("Data dir", config.DataDir, 15)
	b.PrintKeyValue("RPC socket", config.RPC.SocketPath, 15)
	b.PrintKeyValue("Service URL", serviceURL, 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("environment", config.Environment).
		Str("data_dir", config.DataDir).
		Str("rpc_socket", config.RPC.SocketPath).
		Msg("jobsentinel started")

	printCapabilities(config, logger)
	fmt.Printf("\n")
}

// printCapabilities summarizes which sources and notification channels are
// active, the way an operator skimming startup logs needs.
func printCapabilities(config *Config, logger arbor.ILogger) {
	fmt.Printf("Sources:\n")

	enabledSources := []string{}
	if len(config.Sources.GreenhouseURLs) > 0 {
		fmt.Printf("   - greenhouse (%d boards)\n", len(config.Sources.GreenhouseURLs))
		enabledSources = append(enabledSources, "greenhouse")
	}
	if len(config.Sources.LeverURLs) > 0 {
		fmt.Printf("   - lever (%d boards)\n", len(config.Sources.LeverURLs))
		enabledSources = append(enabledSources, "lever")
	}
	if config.Sources.JobsWithGPT.Enabled {
		fmt.Printf("   - jobswithgpt (%d queries)\n", len(config.Sources.JobsWithGPT.Queries))
		enabledSources = append(enabledSources, "jobswithgpt")
	}
	if len(enabledSources) == 0 {
		fmt.Printf("   (none configured)\n")
	}

	fmt.Printf("Notifications:\n")
	for _, ch := range config.Notifications {
		fmt.Printf("   - %s (%s, min_score=%.2f)\n", ch.Name, ch.Kind, ch.MinScore)
	}
	if len(config.Notifications) == 0 {
		fmt.Printf("   (none configured)\n")
	}

	logger.Info().
		Strs("enabled_sources", enabledSources).
		Int("notification_channels", len(config.Notifications)).
		Int("scraping_interval_hours", config.Schedule.ScrapingIntervalHours).
		Msg("capabilities")
}

// PrintShutdownBanner displays the application shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("JOBSENTINEL")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("jobsentinel shutting down")
}

// PrintColorizedMessage prints a message with specified color to stdout; it
// does not log (the Print* helpers below do their own logging).
func PrintColorizedMessage(color, message string, logger arbor.ILogger) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints a success message in green and logs it.
func PrintSuccess(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("[ok] %s", message), logger)
	logger.Info().Str("type", "success").Msg(message)
}

// PrintError prints an error message in red and logs it.
func PrintError(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("[error] %s", message), logger)
	logger.Error().Str("type", "error").Msg(message)
}

// PrintWarning prints a warning message in yellow and logs it.
func PrintWarning(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("[warn] %s", message), logger)
	logger.Warn().Str("type", "warning").Msg(message)
}

// PrintInfo prints an info message in cyan and logs it.
func PrintInfo(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorCyan, fmt.Sprintf("[info] %s", message), logger)
	logger.Info().Str("type", "info").Msg(message)
}
