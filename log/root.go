package log

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	RvExecution  = "rv_exec"   // run loop, trap delivery
	RvBlockCache = "rv_cache"  // block cache evictions and clears
	RvDecode     = "rv_decode" // block builds and disassembly
	RvHost       = "rv_host"   // embedder side: image loading, syscalls, console
)

var root atomic.Value

func init() {
	root.Store(Logger(&logger{slog.New(DiscardHandler())}))
}

func ParseLevel(lvl string) (slog.Level, error) {
	switch strings.ToUpper(lvl) {
	case "MAX", "MAXVERBOSITY":
		return levelMaxVerbosity, nil
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "CRIT", "CRITICAL":
		return LevelCrit, nil
	default:
		return 0, fmt.Errorf("invalid level: %s", lvl)
	}
}

// SetDefault sets the default global logger
func SetDefault(l Logger) {
	root.Store(l)
	if lg, ok := l.(*logger); ok {
		slog.SetDefault(lg.inner)
	}
}

// Root returns the root logger
func Root() Logger {
	return root.Load().(Logger)
}

// --- Module management ---

var defaultKnownModules = []string{RvExecution, RvBlockCache, RvDecode, RvHost}

var (
	moduleMu      sync.Mutex
	moduleEnabled atomic.Pointer[map[string]bool]
)

func init() {
	m := make(map[string]bool, len(defaultKnownModules))
	for _, module := range defaultKnownModules {
		m[module] = false
	}
	moduleEnabled.Store(&m)
}

// setModule swaps in a new module map so readers on other harts never see a
// map under mutation.
func setModule(module string, enabled bool) {
	moduleMu.Lock()
	defer moduleMu.Unlock()
	cur := *moduleEnabled.Load()
	next := make(map[string]bool, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[module] = enabled
	moduleEnabled.Store(&next)
}

// EnableModule enables logging for the specified module.
func EnableModule(module string) {
	setModule(module, true)
}

// DisableModule disables logging for the specified module.
func DisableModule(module string) {
	setModule(module, false)
}

// EnableModules enables a comma separated list of modules; "all" enables every known module.
func EnableModules(modules string) {
	for _, module := range strings.Split(modules, ",") {
		module = strings.TrimSpace(module)
		switch module {
		case "":
		case "all":
			for _, m := range defaultKnownModules {
				EnableModule(m)
			}
		default:
			EnableModule(module)
		}
	}
}

// IsModuleEnabled checks if logging is enabled for the given module.
func IsModuleEnabled(module string) bool {
	enabled, ok := (*moduleEnabled.Load())[module]
	return ok && enabled
}

// --- Adjusted logging functions ---

// Trace logs a message at the trace level for a specific module.
func Trace(module string, msg string, ctx ...interface{}) {
	if !IsModuleEnabled(module) {
		return
	}
	newCtx := append([]interface{}{"module", module}, ctx...)
	Root().Write(LevelTrace, module, msg, newCtx...)
}

// Debug logs a message at the debug level for a specific module.
func Debug(module string, msg string, ctx ...interface{}) {
	if !IsModuleEnabled(module) {
		return
	}
	newCtx := append([]interface{}{"module", module}, ctx...)
	Root().Write(slog.LevelDebug, module, msg, newCtx...)
}

// Info and Warn are not gated by module.
func Info(module string, msg string, ctx ...interface{}) {
	Root().Write(slog.LevelInfo, module, msg, ctx...)
}

func Warn(module string, msg string, ctx ...interface{}) {
	Root().Write(slog.LevelWarn, module, msg, ctx...)
}
