// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Every subsystem receives a named child logger:
//
//	logger := logging.NewDefault()
//	installer := logger.Component("installer")
//	installer.Warn("asset caching degraded", zap.String("plugin_id", id), zap.Error(err))
package logging
