package pywasm

import (
	"context"
	"fmt"

	"github.com/fraudcore/pywasm/internal/cache"
	"github.com/fraudcore/pywasm/internal/codegen"
	"github.com/fraudcore/pywasm/internal/lower"
	"github.com/fraudcore/pywasm/internal/pyparse"
	"github.com/fraudcore/pywasm/internal/validator"
)

// Compiler turns restricted-Python source into a deterministic Wasm binary.
// Build one with NewCompiler; the zero value has no cache and no logger.
type Compiler struct {
	cfg *CompilerConfig
}

// NewCompiler applies opts over the spec's default resource limits (§3/§5)
// and returns a ready-to-use Compiler. Options are applied in order, so a
// later WithHeapLimit overrides an earlier one.
func NewCompiler(opts ...CompilerOption) *Compiler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Compiler{cfg: cfg}
}

// Compile runs source through validate, parse, lower, codegen, and a final
// module-shape validation, in that order, short-circuiting on the first
// error. When the Compiler has a cache attached, a hit on source's content
// hash skips straight to the cached bytes without touching the rest of the
// pipeline; a miss runs the full pipeline and stores its result before
// returning. ctx is checked once up front for cancellation; the pipeline
// itself is synchronous and does not suspend (§5), so nothing downstream
// needs it.
func (c *Compiler) Compile(ctx context.Context, source []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := c.cfg
	if cfg == nil {
		cfg = defaultConfig()
	}
	log := cfg.logger

	key := cache.KeyFor(source)
	cached, trace, err := cache.Lookup(cfg.cache, key)
	if err != nil {
		return nil, fmt.Errorf("pywasm: cache lookup: %w", err)
	}
	if trace.Hit {
		log.Stage("cache", "hit %s (trace %s)", key, trace.ID)
		return cached, nil
	}
	log.Stage("cache", "miss %s (trace %s)", key, trace.ID)

	if err := validator.ValidateSource(source); err != nil {
		return nil, fmt.Errorf("pywasm: source validation: %w", err)
	}
	log.Stage("validate-source", "ok, %d bytes", len(source))

	astMod, err := pyparse.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("pywasm: parse: %w", err)
	}
	log.Stage("parse", "ok, %d statements", len(astMod.Body))

	irMod, err := lower.Lower(astMod)
	if err != nil {
		return nil, fmt.Errorf("pywasm: lower: %w", err)
	}
	log.Stage("lower", "ok, %d functions", len(irMod.Functions))

	limits := codegen.Limits{
		GasLimit:  cfg.gasLimit,
		HeapStart: cfg.heapStart,
		HeapLimit: cfg.heapLimit,
	}
	wasmBytes, err := codegen.Compile(irMod, limits)
	if err != nil {
		return nil, fmt.Errorf("pywasm: codegen: %w", err)
	}
	log.Stage("codegen", "ok, %d bytes", len(wasmBytes))

	if cfg.moduleSizeLimit > 0 && len(wasmBytes) > cfg.moduleSizeLimit {
		return nil, fmt.Errorf("pywasm: module size %d exceeds limit %d", len(wasmBytes), cfg.moduleSizeLimit)
	}

	if err := validator.ValidateModule(wasmBytes); err != nil {
		return nil, fmt.Errorf("pywasm: module validation: %w", err)
	}
	log.Stage("validate-module", "ok")

	if cfg.cache != nil {
		if err := cfg.cache.Add(key, wasmBytes); err != nil {
			return nil, fmt.Errorf("pywasm: cache store: %w", err)
		}
	}
	return wasmBytes, nil
}

// Compile is a convenience for callers that don't need to reuse a Compiler
// (and its cache/logger) across multiple sources.
func Compile(ctx context.Context, source []byte, opts ...CompilerOption) ([]byte, error) {
	return NewCompiler(opts...).Compile(ctx, source)
}
