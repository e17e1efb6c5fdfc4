package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	version := GetVersion()
	commit := GetGitCommit()
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 64
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		` 888b    888 8888888 888     888 8888888888 .d8888b.  888    888`,
		` 8888b   888   888   888     888 888       d88P  Y88b 888    888`,
		` 888Y88b 888   888   Y88b   d88P 888       Y88b.      888    888`,
		` 888 Y88b888   888    Y88b d88P  8888888    "Y888b.   8888888888`,
		` 888  Y88888   888     Y88o88P   888           "Y88b. 888    888`,
		` 888   Y8888   888      Y888P    888             "888 888    888`,
		` 888    Y888 8888888     Y8P     8888888888 Y8888888P 888    888`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s  Retail Portfolio Tracker%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	kvPad := 14
	kvLines := [][2]string{
		{"Version", version},
		{"Commit", commit},
		{"Environment", config.Environment},
		{"Service URL", serviceURL},
		{"Poll Every", config.Poller.GetInterval().String()},
		{"Market Hours", config.Poller.MarketOpen + "-" + config.Poller.MarketClose + " " + config.Poller.Timezone},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], banner.ColorReset)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("environment", config.Environment).
		Str("service_url", serviceURL).
		Msg("Application started")
}

// PrintShutdownBanner displays the application shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 42
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  NIVESH - SHUTTING DOWN%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n\n", hr)

	logger.Info().Msg("Application shutting down")
}
