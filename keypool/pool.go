// Package keypool manages rotating API credentials with per-key cooldowns.
package keypool

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FailReason classifies why a credential was marked failed.
// All reasons currently trigger the same cooldown; the classification
// is kept for telemetry.
type FailReason string

const (
	FailAuth      FailReason = "auth"
	FailRateLimit FailReason = "rate_limit"
	FailServer    FailReason = "server_error"
	FailNetwork   FailReason = "network"
	FailOther     FailReason = "other"
)

// DefaultCooldown is how long a failed credential stays disabled.
const DefaultCooldown = 5 * time.Minute

// Key is a handle to one credential of one provider. The zero value is invalid.
type Key struct {
	Provider string
	Secret   string

	index int
}

// ProviderKeyStats summarizes one provider's pool.
type ProviderKeyStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Cooling   int `json:"cooling"`
	Rotations int `json:"rotations"`
	Failures  int `json:"failures"`
}

// Config holds pool configuration.
type Config struct {
	// Cooldown is the disable window applied on MarkFailed.
	// Default: DefaultCooldown.
	Cooldown time.Duration

	// Now returns the current time. Default: time.Now.
	// Overridable for tests.
	Now func() time.Time

	Logger zerolog.Logger
}

type keyEntry struct {
	secret        string
	disabledUntil time.Time
}

type providerPool struct {
	keys      []keyEntry
	cursor    int
	rotations int
	failures  int
}

// Pool holds credentials for many providers and hands them out round-robin.
// Next never hands out a credential while its cooldown is active, and never
// falls back to a different provider.
type Pool struct {
	mu        sync.Mutex
	providers map[string]*providerPool
	cooldown  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// New creates an empty pool.
func New(cfg Config) *Pool {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pool{
		providers: make(map[string]*providerPool),
		cooldown:  cfg.Cooldown,
		now:       cfg.Now,
		logger:    cfg.Logger.With().Str("component", "keypool").Logger(),
	}
}

// Add registers a credential for a provider. Insertion order is the
// rotation order.
func (p *Pool) Add(provider, secret string) {
	if provider == "" || secret == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	pp := p.providers[provider]
	if pp == nil {
		pp = &providerPool{}
		p.providers[provider] = pp
	}
	pp.keys = append(pp.keys, keyEntry{secret: secret})
}

// LoadEnv discovers credentials for the named providers from the environment.
// For each provider it reads {PROVIDER}_API_KEY plus numbered siblings
// {PROVIDER}_API_KEY_1, _2, ... until the first gap. All discovered keys
// enter the same pool.
func (p *Pool) LoadEnv(providers []string) {
	p.LoadEnvFunc(providers, os.Getenv)
}

// LoadEnvFunc is LoadEnv with an injectable lookup, for tests.
func (p *Pool) LoadEnvFunc(providers []string, getenv func(string) string) {
	for _, provider := range providers {
		loaded := 0
		if main := getenv(provider + "_API_KEY"); main != "" {
			p.Add(provider, main)
			loaded++
		}
		for i := 1; ; i++ {
			key := getenv(fmt.Sprintf("%s_API_KEY_%d", provider, i))
			if key == "" {
				break
			}
			p.Add(provider, key)
			loaded++
		}
		if loaded > 0 {
			p.logger.Info().Str("provider", provider).Int("keys", loaded).Msg("credentials loaded")
		}
	}
}

// Next returns the next credential for a provider whose cooldown is not
// active, advancing the round-robin cursor. Returns false when the provider
// has no usable credential; the caller must treat the provider as
// unavailable for this run.
func (p *Pool) Next(provider string) (Key, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pp := p.providers[provider]
	if pp == nil || len(pp.keys) == 0 {
		return Key{}, false
	}

	now := p.now()
	n := len(pp.keys)
	for i := 0; i < n; i++ {
		idx := (pp.cursor + i) % n
		entry := &pp.keys[idx]
		if entry.disabledUntil.After(now) {
			continue
		}
		// Cooldown cleared lazily by the check above.
		pp.cursor = (idx + 1) % n
		pp.rotations++
		return Key{Provider: provider, Secret: entry.secret, index: idx}, true
	}

	p.logger.Warn().Str("provider", provider).Msg("all credentials in cooldown")
	return Key{}, false
}

// MarkFailed disables the credential behind the handle for the configured
// cooldown window.
func (p *Pool) MarkFailed(k Key, reason FailReason) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pp := p.providers[k.Provider]
	if pp == nil || k.index < 0 || k.index >= len(pp.keys) {
		return
	}
	pp.keys[k.index].disabledUntil = p.now().Add(p.cooldown)
	pp.failures++
	p.logger.Warn().
		Str("provider", k.Provider).
		Int("key_index", k.index).
		Str("reason", string(reason)).
		Dur("cooldown", p.cooldown).
		Msg("credential disabled")
}

// Providers returns the names of providers that have at least one credential,
// regardless of cooldown state.
func (p *Pool) Providers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.providers))
	for name, pp := range p.providers {
		if len(pp.keys) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Has reports whether the provider has at least one credential configured.
func (p *Pool) Has(provider string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	pp := p.providers[provider]
	return pp != nil && len(pp.keys) > 0
}

// Stats returns per-provider rotation, failure and availability counters.
func (p *Pool) Stats() map[string]ProviderKeyStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make(map[string]ProviderKeyStats, len(p.providers))
	for name, pp := range p.providers {
		s := ProviderKeyStats{
			Total:     len(pp.keys),
			Rotations: pp.rotations,
			Failures:  pp.failures,
		}
		for _, entry := range pp.keys {
			if entry.disabledUntil.After(now) {
				s.Cooling++
			} else {
				s.Active++
			}
		}
		out[name] = s
	}
	return out
}

// Rotations returns the rotation counter for one provider.
func (p *Pool) Rotations(provider string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pp := p.providers[provider]; pp != nil {
		return pp.rotations
	}
	return 0
}
