package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective run settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("BizAssess", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("model", config.Gemini.Model).
		Str("context_model", config.Gemini.ContextModel).
		Str("storage", config.Storage.Type).
		Str("default_source", config.Generation.DefaultSource).
		Msg("Configuration loaded")
}
