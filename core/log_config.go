package core

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// init initializes the logging configuration for the application based on the RANN_LOG environment variable.
func init() {
	ConfigureLogging(os.Getenv("RANN_LOG"))
}

// ConfigureLogging sets the global logging level from a RANN_LOG style value:
// "off" or "0" disables logging, "full" enables debug output and anything else means info.
func ConfigureLogging(mode string) {
	switch strings.TrimSpace(strings.ToLower(mode)) {
	case "off", "0":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "full":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
