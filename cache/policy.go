package cache

import "time"

// DefaultExpiry is the expiry used when neither Config nor Policy set one.
const DefaultExpiry = 60 * time.Second

// Policy configures entry expiry.
type Policy struct {
	// DefaultExpiry is used when Config.Expiry is zero.
	// If zero as well, caching is disabled and calls pass through.
	DefaultExpiry time.Duration

	// MaxExpiry is the maximum allowed expiry. Configured expiries are
	// clamped to this. If zero, no maximum is enforced.
	MaxExpiry time.Duration
}

// DefaultPolicy returns the default policy.
// DefaultExpiry: 60 seconds, MaxExpiry: none
func DefaultPolicy() Policy {
	return Policy{
		DefaultExpiry: DefaultExpiry,
	}
}

// NoCachePolicy returns a policy that disables caching unless a Config
// sets an explicit expiry.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if entries would be stored with override.
func (p Policy) ShouldCache(override time.Duration) bool {
	return p.EffectiveExpiry(override) > 0
}

// EffectiveExpiry returns the expiry to use, applying defaults and clamping.
func (p Policy) EffectiveExpiry(override time.Duration) time.Duration {
	// Use default if no override (or negative override)
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultExpiry
	}

	if p.MaxExpiry > 0 && ttl > p.MaxExpiry {
		ttl = p.MaxExpiry
	}

	return ttl
}
