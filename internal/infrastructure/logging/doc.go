// Package logging provides structured logging for pmdesk.
//
// It wraps log/slog with the defaults every component shares: a JSON or
// text handler, level filtering, service/version fields on every entry,
// and redaction of attributes whose key names a credential.
//
// Configuration lives in the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("server started", "port", 8080)
package logging
