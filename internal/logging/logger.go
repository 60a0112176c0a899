// Package logging provides categorized logging for the AID-D engine.
// Every subsystem logs through a named category so a session transcript can
// be filtered down to the effect engine, the zone graph, the planner, etc.
// The backend is a zap SugaredLogger; categories are gated individually.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup and wiring
	CategoryEngine     Category = "engine"     // Effect engine transactions
	CategoryTools      Category = "tools"      // Tool catalog and affordance filter
	CategoryExecutor   Category = "executor"   // Validator/executor
	CategoryZones      Category = "zones"      // Zone graph and pathfinding
	CategoryVisibility Category = "visibility" // Redaction and cache
	CategoryPipeline   Category = "pipeline"   // Turn pipeline
	CategoryPlanner    Category = "planner"    // Planner adapters
	CategoryItems      Category = "items"      // Item registry
	CategoryPersist    Category = "persist"    // Save/load and audit archive
	CategoryEvents     Category = "events"     // Event bus
)

// Settings controls the logging backend.
type Settings struct {
	Level      string          // debug, info, warn, error
	Categories map[string]bool // nil or empty means all enabled
	JSON       bool            // JSON encoder instead of console
	OutputPath string          // empty means stderr
}

var (
	mu       sync.RWMutex
	root     *zap.SugaredLogger
	enabled  map[Category]bool
	loggers  = make(map[Category]*zap.SugaredLogger)
	initOnce sync.Once
)

// Initialize wires the zap backend. Safe to call once at startup; later
// calls are ignored. Without Initialize the package logs at info to stderr.
func Initialize(s Settings) error {
	var outerErr error
	initOnce.Do(func() {
		level := zapcore.InfoLevel
		switch s.Level {
		case "debug":
			level = zapcore.DebugLevel
		case "warn":
			level = zapcore.WarnLevel
		case "error":
			level = zapcore.ErrorLevel
		}

		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.DisableStacktrace = true
		if !s.JSON {
			cfg.Encoding = "console"
			cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		}
		if s.OutputPath != "" {
			cfg.OutputPaths = []string{s.OutputPath}
		}

		logger, err := cfg.Build()
		if err != nil {
			outerErr = err
			return
		}

		mu.Lock()
		root = logger.Sugar()
		enabled = make(map[Category]bool)
		for k, v := range s.Categories {
			enabled[Category(k)] = v
		}
		loggers = make(map[Category]*zap.SugaredLogger)
		mu.Unlock()

		Get(CategoryBoot).Infof("logging initialized level=%s categories=%d", s.Level, len(s.Categories))
	})
	return outerErr
}

// Nop routes all logging to a no-op logger. Used by tests.
func Nop() {
	mu.Lock()
	defer mu.Unlock()
	root = zap.NewNop().Sugar()
	loggers = make(map[Category]*zap.SugaredLogger)
	enabled = nil
}

// Get returns the logger for a category.
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}
	if root == nil {
		l, _ := zap.NewProduction()
		root = l.Sugar()
	}
	var l *zap.SugaredLogger
	if enabled != nil && len(enabled) > 0 && !enabled[c] {
		l = zap.NewNop().Sugar()
	} else {
		l = root.Named(string(c))
	}
	loggers[c] = l
	return l
}

// Convenience helpers in the style used throughout the engine:
// logging.Engine("applied %d effects", n), logging.ZonesDebug(...), etc.

func Boot(format string, args ...interface{})     { Get(CategoryBoot).Infof(format, args...) }
func BootWarn(format string, args ...interface{}) { Get(CategoryBoot).Warnf(format, args...) }

func Engine(format string, args ...interface{}) { Get(CategoryEngine).Infof(format, args...) }

// EngineDebug logs effect-engine detail (per-atom dispatch, snapshots).
func EngineDebug(format string, args ...interface{}) { Get(CategoryEngine).Debugf(format, args...) }
func EngineWarn(format string, args ...interface{})  { Get(CategoryEngine).Warnf(format, args...) }
func EngineError(format string, args ...interface{}) { Get(CategoryEngine).Errorf(format, args...) }

func Tools(format string, args ...interface{})      { Get(CategoryTools).Infof(format, args...) }
func ToolsDebug(format string, args ...interface{}) { Get(CategoryTools).Debugf(format, args...) }
func ToolsWarn(format string, args ...interface{})  { Get(CategoryTools).Warnf(format, args...) }

func Executor(format string, args ...interface{})      { Get(CategoryExecutor).Infof(format, args...) }
func ExecutorDebug(format string, args ...interface{}) { Get(CategoryExecutor).Debugf(format, args...) }
func ExecutorWarn(format string, args ...interface{})  { Get(CategoryExecutor).Warnf(format, args...) }

func Zones(format string, args ...interface{})      { Get(CategoryZones).Infof(format, args...) }
func ZonesDebug(format string, args ...interface{}) { Get(CategoryZones).Debugf(format, args...) }
func ZonesWarn(format string, args ...interface{})  { Get(CategoryZones).Warnf(format, args...) }

func Visibility(format string, args ...interface{}) { Get(CategoryVisibility).Debugf(format, args...) }

func Pipeline(format string, args ...interface{})      { Get(CategoryPipeline).Infof(format, args...) }
func PipelineDebug(format string, args ...interface{}) { Get(CategoryPipeline).Debugf(format, args...) }
func PipelineWarn(format string, args ...interface{})  { Get(CategoryPipeline).Warnf(format, args...) }

func Planner(format string, args ...interface{})     { Get(CategoryPlanner).Infof(format, args...) }
func PlannerWarn(format string, args ...interface{}) { Get(CategoryPlanner).Warnf(format, args...) }

func Items(format string, args ...interface{})     { Get(CategoryItems).Infof(format, args...) }
func ItemsWarn(format string, args ...interface{}) { Get(CategoryItems).Warnf(format, args...) }

func Persist(format string, args ...interface{})     { Get(CategoryPersist).Infof(format, args...) }
func PersistWarn(format string, args ...interface{}) { Get(CategoryPersist).Warnf(format, args...) }

func Events(format string, args ...interface{})     { Get(CategoryEvents).Debugf(format, args...) }
func EventsWarn(format string, args ...interface{}) { Get(CategoryEvents).Warnf(format, args...) }
