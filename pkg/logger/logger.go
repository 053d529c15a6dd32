package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Component-tagged logging for the whole bridge. Every subsystem logs
// through this package with a short component name ("wa", "relay",
// "gateway", ...) so one grep isolates one subsystem.

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	log = newConsoleLogger(zerolog.InfoLevel)
}

func newConsoleLogger(level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetLevel adjusts the global threshold. Accepts debug, info, warn, error.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(level) {
	case "debug":
		log = log.Level(zerolog.DebugLevel)
	case "warn":
		log = log.Level(zerolog.WarnLevel)
	case "error":
		log = log.Level(zerolog.ErrorLevel)
	default:
		log = log.Level(zerolog.InfoLevel)
	}
}

// SetJSON switches to line-JSON output for log collectors. The console
// writer stays the default because the bridge is usually run by hand.
func SetJSON(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	level := log.GetLevel()
	if enabled {
		log = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	} else {
		log = newConsoleLogger(level)
	}
}

func event(e *zerolog.Event, component, msg string, fields map[string]interface{}) {
	e = e.Str("component", component)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

func DebugC(component, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	event(log.Debug(), component, msg, nil)
}

func DebugCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	event(log.Debug(), component, msg, fields)
}

func InfoC(component, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	event(log.Info(), component, msg, nil)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	event(log.Info(), component, msg, fields)
}

func WarnC(component, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	event(log.Warn(), component, msg, nil)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	event(log.Warn(), component, msg, fields)
}

func ErrorC(component, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	event(log.Error(), component, msg, nil)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	event(log.Error(), component, msg, fields)
}
