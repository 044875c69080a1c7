package adapter

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/hydra-cli/hydra/internal/core"
)

// Factory constructs one adapter, given a binary path override (empty means
// "look up on PATH" using the adapter's default binary name).
type Factory func(binaryPath string) core.Adapter

// Registry holds the closed set of built-in adapter keys and their tier
// classification, and resolves configured agent keys into ready adapters.
type Registry struct {
	mu        sync.RWMutex
	factories map[core.AgentKey]Factory
	tiers     map[core.AgentKey]core.Tier
	overrides map[core.AgentKey]string // binary path overrides from config
}

// NewRegistry builds a registry pre-populated with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[core.AgentKey]Factory),
		tiers:     make(map[core.AgentKey]core.Tier),
		overrides: make(map[core.AgentKey]string),
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.register("claude", core.TierOne, NewClaudeAdapter)
	r.register("codex", core.TierOne, NewCodexAdapter)
	r.register("gemini", core.TierOne, NewGeminiAdapter)
	r.register("copilot", core.TierExperimental, NewCopilotAdapter)
	r.register("opencode", core.TierExperimental, NewOpenCodeAdapter)
}

func (r *Registry) register(key core.AgentKey, tier core.Tier, factory Factory) {
	r.factories[key] = factory
	r.tiers[key] = tier
}

// SetBinaryOverride configures an explicit binary path for an otherwise
// PATH-resolved adapter.
func (r *Registry) SetBinaryOverride(key core.AgentKey, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[key] = path
}

// Has reports whether key names a known built-in adapter.
func (r *Registry) Has(key core.AgentKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[key]
	return ok
}

// List returns every known adapter key.
func (r *Registry) List() []core.AgentKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]core.AgentKey, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	return keys
}

// Get constructs the adapter for key, resolving its binary path from the
// configured override or the system PATH.
func (r *Registry) Get(key core.AgentKey) (core.Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[key]
	override := r.overrides[key]
	r.mu.RUnlock()
	if !ok {
		return nil, core.ErrValidation(core.CodeAgentUnknown, fmt.Sprintf("unknown adapter key: %s", key))
	}
	return factory(override), nil
}

// Tier returns the default policy tier for a known adapter key.
func (r *Registry) Tier(key core.AgentKey) (core.Tier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tiers[key]
	return t, ok
}

// ResolvedAdapter pairs a constructed adapter with its probe outcome.
type ResolvedAdapter struct {
	Adapter core.Adapter
	Probe   core.ProbeReport
}

// ResolveMany resolves a requested list of agent keys into ready adapters,
// in the order requested, after: deduplicating (preserving first
// occurrence), rejecting unknown keys, enforcing the experimental opt-in
// gate, and requiring every probe to report ready or experimental_ready.
func (r *Registry) ResolveMany(ctx context.Context, keys []core.AgentKey, allowExperimental bool) ([]ResolvedAdapter, error) {
	seen := make(map[core.AgentKey]bool)
	var ordered []core.AgentKey
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		ordered = append(ordered, k)
	}

	var resolved []ResolvedAdapter
	for _, key := range ordered {
		tier, ok := r.Tier(key)
		if !ok {
			return nil, core.ErrValidation(core.CodeAgentUnknown, fmt.Sprintf("unknown adapter key: %s", key))
		}
		if tier == core.TierExperimental && !allowExperimental {
			return nil, core.ErrValidation(core.CodeExperimentalOptIn,
				fmt.Sprintf("adapter %s is experimental; pass --allow-experimental-adapters to use it", key))
		}

		ad, err := r.Get(key)
		if err != nil {
			return nil, err
		}

		r.mu.RLock()
		override := r.overrides[key]
		r.mu.RUnlock()
		binPath := override
		if binPath == "" {
			binPath, _ = exec.LookPath(string(key))
		}

		report, err := ad.Probe(ctx, binPath)
		if err != nil {
			return nil, core.ErrReadiness(core.CodeAgentNotReady, fmt.Sprintf("probing %s: %v", key, err))
		}
		if !report.Ready() {
			return nil, core.ErrReadiness(core.CodeAgentNotReady,
				fmt.Sprintf("adapter %s not ready: %s (%s)", key, report.Status, report.Message))
		}

		resolved = append(resolved, ResolvedAdapter{Adapter: ad, Probe: report})
	}

	return resolved, nil
}
