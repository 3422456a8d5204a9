// Package logging provides structured logging for Gray Logic OSD.
//
// It wraps Go's standard log/slog package so every component logs with
// consistent default fields (service, version) and level filtering.
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8090)
//
// Never log secrets, tokens or broker passwords.
package logging
