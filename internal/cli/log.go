// Package cli implements the devscout command-line interface.
//
// Commands cover the whole recruiting loop: searching registries for a set
// of skills, looking up individual profiles, keeping a list of saved
// candidates and serving the same pipeline over HTTP. The CLI is built
// using cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - search: Find developers by skill, with an optional interactive table
//   - profile: Show the GitHub profile behind a username
//   - saved: List, update, remove and export saved candidates
//   - serve: Run the HTTP API
//   - github: Log in to GitHub for higher rate limits
//   - cache: Manage the profile cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context, and upstream requests, cache traffic and
// page loads are reported at debug level through [observability] hooks.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/devscout/pkg/observability"
)

// newLogger creates a logger with timestamps formatted as "HH:MM:SS.ms".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Loaded 50 candidates (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability hooks
// =============================================================================

// logHooks reports pipeline events at debug level.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnSearchStart(_ context.Context, registry, query string, offset int) {
	h.logger.Debug("fetching page", "registry", registry, "query", query, "offset", offset)
}

func (h logHooks) OnPageLoaded(_ context.Context, registry string, fetched, admitted int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("page failed", "registry", registry, "duration", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("page loaded", "registry", registry, "fetched", fetched, "admitted", admitted, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnEnrichComplete(_ context.Context, attempted, enriched int, d time.Duration) {
	h.logger.Debug("enrichment done", "attempted", attempted, "enriched", enriched, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnRateLimited(_ context.Context, source string) {
	h.logger.Debug("rate limited", "source", source)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ observability.SearchHooks = logHooks{}
	_ observability.CacheHooks  = logHooks{}
	_ observability.HTTPHooks   = logHooks{}
)
