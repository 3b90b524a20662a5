package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Loaded 50 candidates")

	if !strings.Contains(buf.String(), "Loaded 50 candidates (") {
		t.Errorf("progress output = %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Fatal("loggerFromContext should fall back to the default logger")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), custom)
	if loggerFromContext(ctx) != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
}

func TestLogHooksLogAtDebug(t *testing.T) {
	ctx := context.Background()

	var quiet bytes.Buffer
	h := logHooks{newLogger(&quiet, log.InfoLevel)}
	h.OnSearchStart(ctx, "npm", "react", 0)
	h.OnCacheHit(ctx, "profile")
	if quiet.Len() != 0 {
		t.Errorf("hooks logged at info level: %q", quiet.String())
	}

	var buf bytes.Buffer
	h = logHooks{newLogger(&buf, log.DebugLevel)}
	h.OnSearchStart(ctx, "npm", "react", 50)
	h.OnPageLoaded(ctx, "npm", 50, 42, 120*time.Millisecond, nil)
	h.OnPageLoaded(ctx, "npm", 0, 0, time.Millisecond, errors.New("boom"))
	h.OnEnrichComplete(ctx, 15, 12, time.Second)
	h.OnRateLimited(ctx, "github")
	h.OnCacheMiss(ctx, "profile")
	h.OnCacheSet(ctx, "profile", 512)
	h.OnRequest(ctx, "GET", "registry.npmjs.org", "/-/v1/search")
	h.OnResponse(ctx, "GET", "registry.npmjs.org", "/-/v1/search", 200, time.Millisecond)
	h.OnError(ctx, "GET", "api.github.com", "/users/x", errors.New("timeout"))

	out := buf.String()
	for _, want := range []string{"fetching page", "page loaded", "admitted=42", "page failed", "enrichment done", "rate limited", "cache miss", "cache set", "http request", "http response", "http error"} {
		if !strings.Contains(out, want) {
			t.Errorf("debug output missing %q", want)
		}
	}
}
