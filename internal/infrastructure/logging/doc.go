// Package logging provides structured logging for StackPark Core.
//
// It wraps log/slog with the service's default fields (service name,
// version) and configuration-driven level, format, and destination
// selection. Components obtain scoped loggers via With:
//
//	log := logging.New(cfg.Logging, version)
//	liftLog := log.With("component", "lift")
package logging
