// engine.go: compilation and execution front door for hosts.
package scripting

import (
	"context"
	"time"

	"github.com/iotaledger/hive.go/logger"
	"github.com/pkg/errors"
)

// ErrScriptTooLarge is returned by Compile when the source exceeds the
// configured size limit.
var ErrScriptTooLarge = errors.New("script exceeds the maximum allowed size")

const (
	DefaultMaxScriptSize    = 64 * 1024
	DefaultExecutionTimeout = 5 * time.Second
)

// Engine compiles and executes chat scripts. It owns the builtin registry and
// a compilation cache; execution always goes through a timeout so a runaway
// script cannot stall the host.
type Engine struct {
	*logger.WrappedLogger

	builtins *Builtins
	cache    *ScriptCache

	maxScriptSize    int
	executionTimeout time.Duration
	maxCallDepth     int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxScriptSize caps the source size accepted by Compile.
func WithMaxScriptSize(size int) EngineOption {
	return func(e *Engine) { e.maxScriptSize = size }
}

// WithExecutionTimeout bounds a single Execute call.
func WithExecutionTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) { e.executionTimeout = timeout }
}

// WithMaxCallDepth bounds recursive script calls.
func WithMaxCallDepth(depth int) EngineOption {
	return func(e *Engine) { e.maxCallDepth = depth }
}

// WithCacheTTL sets how long compiled scripts stay cached.
func WithCacheTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) { e.cache.ttl = ttl }
}

// WithBuiltins replaces the default builtin registry, e.g. to inject a fixed
// clock in tests.
func WithBuiltins(builtins *Builtins) EngineOption {
	return func(e *Engine) { e.builtins = builtins }
}

// NewEngine creates a script engine.
func NewEngine(log *logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		WrappedLogger:    logger.NewWrappedLogger(log),
		builtins:         nil,
		cache:            NewScriptCache(),
		maxScriptSize:    DefaultMaxScriptSize,
		executionTimeout: DefaultExecutionTimeout,
		maxCallDepth:     DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.builtins == nil {
		e.builtins = NewBuiltins()
	}
	return e
}

// Builtins returns the engine's builtin registry.
func (e *Engine) Builtins() *Builtins { return e.builtins }

// Compile lexes, parses, and type-checks a script. Compiled scripts are
// cached by name and source.
func (e *Engine) Compile(name, source string) (*Script, error) {
	if len(source) > e.maxScriptSize {
		return nil, ErrScriptTooLarge
	}

	cacheKey := name + "\x00" + source
	if cached := e.cache.Get(cacheKey); cached != nil {
		return cached, nil
	}

	tokens, err := NewLexer(source).Tokenize()
	if err != nil {
		return nil, err
	}
	script, err := NewParser(name, tokens, e.builtins).Parse()
	if err != nil {
		return nil, err
	}

	e.cache.Put(cacheKey, script)
	e.LogDebugf("compiled script '%s' (%d statement(s))", name, len(script.Statements))
	return script, nil
}

// Execute runs a compiled script against the given persistent store within
// the engine's execution timeout. callScript may be nil when dynamic script
// calls are not supported by the host.
func (e *Engine) Execute(
	ctx context.Context,
	script *Script,
	store PersistentStore,
	arguments []string,
	callScript ScriptCaller,
) (string, bool, error) {
	execCtx, cancel := context.WithTimeout(ctx, e.executionTimeout)
	defer cancel()

	output, printed, err := script.executeWithDepthLimit(execCtx, store, arguments, callScript, e.maxCallDepth)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.LogWarnf("script '%s' timed out after %s", script.Name, e.executionTimeout)
			return "", false, errors.Wrapf(err, "script '%s' exceeded the execution timeout of %s",
				script.Name, e.executionTimeout)
		}
		return "", false, err
	}
	return output, printed, nil
}

// Run compiles and executes in one step.
func (e *Engine) Run(
	ctx context.Context,
	name, source string,
	store PersistentStore,
	arguments []string,
	callScript ScriptCaller,
) (string, bool, error) {
	script, err := e.Compile(name, source)
	if err != nil {
		return "", false, err
	}
	return e.Execute(ctx, script, store, arguments, callScript)
}
