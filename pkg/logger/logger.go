// Package logger provides namespaced debug logging controlled by the DEBUG
// environment variable, in the style of the node "debug" package.
//
// Loggers are created with a namespace like "provenance:dag" and stay silent
// unless the namespace matches one of the comma-separated patterns in DEBUG.
// Patterns support a trailing "*" wildcard and a "-" prefix for exclusion:
//
//	DEBUG=*                      enable everything
//	DEBUG=provenance:*           enable one namespace tree
//	DEBUG=provenance:*,cli:*     enable several
//	DEBUG=*,-provenance:dag      enable everything except one logger
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes timestamped debug lines to stderr for a single namespace.
type Logger struct {
	namespace string
	mu        sync.Mutex
	last      time.Time
}

// New creates a Logger for the given namespace. Enablement is decided from
// the DEBUG environment variable the first time the logger is used.
func New(namespace string) *Logger {
	return &Logger{namespace: namespace}
}

// Enabled reports whether this logger will emit output.
func (l *Logger) Enabled() bool {
	return matches(os.Getenv("DEBUG"), l.namespace)
}

// Printf logs a formatted message when the logger is enabled.
func (l *Logger) Printf(format string, args ...any) {
	if !l.Enabled() {
		return
	}
	l.emit(fmt.Sprintf(format, args...))
}

// Print logs its arguments like fmt.Sprint when the logger is enabled.
func (l *Logger) Print(args ...any) {
	if !l.Enabled() {
		return
	}
	l.emit(fmt.Sprint(args...))
}

func (l *Logger) emit(msg string) {
	l.mu.Lock()
	now := time.Now()
	var delta time.Duration
	if !l.last.IsZero() {
		delta = now.Sub(l.last)
	}
	l.last = now
	l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "%s %s +%s\n", l.namespace, msg, delta)
}

// matches reports whether namespace is enabled by the DEBUG spec. Exclusion
// patterns win over inclusion patterns.
func matches(spec, namespace string) bool {
	if spec == "" {
		return false
	}
	included := false
	excluded := false
	for _, raw := range strings.Split(spec, ",") {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		negate := strings.HasPrefix(pattern, "-")
		if negate {
			pattern = pattern[1:]
		}
		if !patternMatch(pattern, namespace) {
			continue
		}
		if negate {
			excluded = true
		} else {
			included = true
		}
	}
	return included && !excluded
}

func patternMatch(pattern, namespace string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(namespace, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == namespace
}
