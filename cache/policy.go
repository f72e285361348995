package cache

import "time"

// Policy is the per-tool caching configuration, supplied at registration
// time and immutable for the lifetime of the process.
type Policy struct {
	// TTL is how long successful results stay fresh. Zero disables
	// caching for the tool; Forever means entries never expire.
	TTL time.Duration
}

// DefaultPolicy returns the default caching policy (5 minute TTL).
func DefaultPolicy() Policy {
	return Policy{TTL: 5 * time.Minute}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ForeverPolicy returns a policy whose entries never expire.
func ForeverPolicy() Policy {
	return Policy{TTL: Forever}
}

// Enabled returns true if results should be cached under this policy.
func (p Policy) Enabled() bool {
	return p.TTL != 0
}
