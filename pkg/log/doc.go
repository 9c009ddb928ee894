// Package log provides the structured logging facade used across inferq.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Records flow through Go's log/slog via a
// bridge handler that renders them with our own formatters and writes them to
// one or more outputs, so the output shape stays identical whether a record
// was produced by the facade or by a plain slog call.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("worker"), log.Str("stream", "llm_jobs"))
//	l.Info("worker started", log.Int("concurrency", 4))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level, text|json
// format, optional file output, redacted keys and sampling).
//
// # Interop
//
// RedirectStdLog routes the standard library logger (used by Pebble and
// go-redis) through a Logger. ToStdLogger returns a *log.Logger for APIs that
// require one.
package log
