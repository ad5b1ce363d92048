// Package erncore is the public facade of the toolkit: the Parser and
// Builder APIs bindings consume (spec §6.1-§6.3), wired over the Secure
// XML Reader, Graph Builder, Flattener, Canonicalizer, Deterministic
// Writer, Partner Preset Layer, Round-Trip Verifier, and Streaming
// Iterator packages.
package erncore

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logMu  sync.RWMutex
	logger *zap.Logger
)

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
}

// L returns the package-wide logger. Safe for concurrent use.
func L() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// SetLogger replaces the package-wide logger, e.g. with a *zap.Logger
// configured for the embedding application's own log sinks.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}
