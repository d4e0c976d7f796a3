// Package pywasm compiles the restricted Python dialect described by this
// module's spec into a deterministic Wasm module, and interprets individual
// Wasm opcodes against a state snapshot for fraud-proof adjudication.
package pywasm

import (
	"github.com/fraudcore/pywasm/internal/cache"
	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/pywasmlog"
)

// CompilerConfig carries the fixed constants of the compiled module's
// resource contract as overridable-for-testing fields, plus the optional
// cache and logger a Compiler is built with.
type CompilerConfig struct {
	heapStart       int32
	heapLimit       int32
	gasLimit        int32
	moduleSizeLimit int

	cache  cache.Cache
	logger pywasmlog.Logger
}

// defaultConfig mirrors the spec's fixed constants (§3/§5): callers only
// override these in tests that need a smaller heap or gas ceiling to
// exercise a trap cheaply.
func defaultConfig() *CompilerConfig {
	return &CompilerConfig{
		heapStart:       ir.HeapStart,
		heapLimit:       ir.HeapLimit,
		gasLimit:        ir.GasLimit,
		moduleSizeLimit: 24 * 1024,
		cache:           nil,
		logger:          pywasmlog.NewNoop(),
	}
}

// clone ensures all fields are copied even if later extended with
// reference-typed fields, the way the teacher's RuntimeConfig.clone does.
func (c *CompilerConfig) clone() *CompilerConfig {
	cp := *c
	return &cp
}

// CompilerOption configures a Compiler built by NewCompiler.
type CompilerOption func(*CompilerConfig)

// WithCache attaches a compile cache; a Compiler built without one never
// memoizes (every Compile call re-runs the pipeline).
func WithCache(c cache.Cache) CompilerOption {
	return func(cfg *CompilerConfig) { cfg.cache = c }
}

// WithLogger attaches a Logger for compile-stage and cache-hit diagnostics.
func WithLogger(l pywasmlog.Logger) CompilerOption {
	return func(cfg *CompilerConfig) { cfg.logger = l }
}

// WithGasLimit overrides the emitted module's gas ceiling (§5), for tests
// that want to exercise the gas trap without running a gas-limit's worth of
// loop iterations.
func WithGasLimit(limit int32) CompilerOption {
	return func(cfg *CompilerConfig) { cfg.gasLimit = limit }
}

// WithHeapLimit overrides the emitted module's heap ceiling (§5), for tests
// that want to exercise the heap-overflow trap against a small heap.
func WithHeapLimit(limit int32) CompilerOption {
	return func(cfg *CompilerConfig) { cfg.heapLimit = limit }
}

// WithModuleSizeLimit sets an extra module-size ceiling that Compile checks
// before module validation. The validator's own fixed ceiling still applies,
// so this can only tighten the limit, never loosen it.
func WithModuleSizeLimit(bytes int) CompilerOption {
	return func(cfg *CompilerConfig) { cfg.moduleSizeLimit = bytes }
}
