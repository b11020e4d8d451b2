// Package logger provides the process-wide structured logger backed by zerolog.
//
// Call Init once at startup, then use Get for the root logger or Component for
// a named child whose level may be tuned on its own.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum level of the root logger: trace, debug, info, warn
	// or error. Empty or unrecognised values mean info.
	Level string
	// ComponentLevels overrides Level per component name, e.g. realtime=debug.
	ComponentLevels map[string]string
	// Pretty switches to coloured console output for local development.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service and Version are attached to every entry when set.
	Service string
	Version string
}

var (
	mu         sync.RWMutex
	root       *zerolog.Logger
	components map[string]zerolog.Level
)

// Init builds the root logger. Only the first call has any effect; later calls
// return the logger built by the first.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		return *root
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	base := parseLevel(opts.Level)
	lowest := base
	components = make(map[string]zerolog.Level, len(opts.ComponentLevels))
	for name, lvl := range opts.ComponentLevels {
		l := parseLevel(lvl)
		components[strings.TrimSpace(name)] = l
		if l < lowest {
			lowest = l
		}
	}
	// The global level gates every logger, so it must admit the most verbose
	// component override.
	zerolog.SetGlobalLevel(lowest)

	ctx := zerolog.New(out).Level(base).With().Timestamp().Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Version != "" {
		ctx = ctx.Str("version", opts.Version)
	}
	l := ctx.Logger()
	root = &l
	return l
}

// Get returns the root logger. It panics when Init has not run.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		panic("logger: Get() called before Init()")
	}
	return *root
}

// Component returns a child of the root logger tagged with name, at the level
// configured for name when one was given.
func Component(name string) zerolog.Logger {
	l := Get()
	mu.RLock()
	lvl, ok := components[name]
	mu.RUnlock()
	if ok {
		l = l.Level(lvl)
	}
	return l.With().Str("component", name).Logger()
}

// Reset discards the root logger so the next Init rebuilds it. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	root = nil
	components = nil
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
