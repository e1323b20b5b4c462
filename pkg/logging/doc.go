// Package logging provides structured logging configuration for kbase.
//
// This package wraps log/slog so that every component logs the same way.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("admin API listening", "port", 4390)
//	logger.Warn("viewpoint references unknown location", "name", "v1", "parent", "attic")
//
// Setting Config.Extra tees a JSON copy of every record into a second writer,
// which is how kbase serve --log-file works.
//
// # Integration
//
// Components accept a *slog.Logger through an option or a setter. If no
// logger is provided they use logging.Nop().
package logging
