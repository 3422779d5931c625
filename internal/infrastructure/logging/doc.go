// Package logging provides structured logging for the cast bridge.
//
// It wraps log/slog so every component logs with the same handler, level
// and default fields (service, version).
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("poll complete", "devices", 3)
//	logger.Component("router").Warn("command failed", "error", err)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
