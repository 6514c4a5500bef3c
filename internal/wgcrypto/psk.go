package wgcrypto

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/mr-karan/wgmesh/internal/metrics"
)

// PSKFunc derives a base64-encoded 32-byte pre-shared key for an
// unordered pair of peer names. Implementations MUST be commutative:
// PSKFunc(a, b) == PSKFunc(b, a).
type PSKFunc func(a, b string) (string, error)

// DeterministicPSK is the default strategy: a pure function of the
// sorted pair plus a fixed constant, preserved byte-for-byte for
// export compatibility. It is a weak default: anyone who knows two
// peer names can reconstruct their PSK.
func DeterministicPSK(a, b string) (string, error) {
	pair := sortPair(a, b)
	sum := sha256.Sum256([]byte("wg-mesh-psk::" + pair[0] + "::" + pair[1]))
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// RandomPSK draws a fresh CSPRNG value per call. It is NOT commutative
// by construction — callers that need commutativity with this strategy
// must cache the first draw per unordered pair themselves (the config
// synthesizer's PSK cache does exactly this; see Cache below).
func RandomPSK(_, _ string) (string, error) {
	return RandomBase64(32)
}

func sortPair(a, b string) [2]string {
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// Cache memoizes a PSKFunc per unordered pair, so a random strategy
// still yields one PSK per pair within a single mesh synthesis, and a
// deterministic strategy avoids recomputing SHA-256 for pairs visited
// from both directions.
type Cache struct {
	fn    PSKFunc
	cache map[[2]string]string
}

// NewCache wraps fn with unordered-pair memoization.
func NewCache(fn PSKFunc) *Cache {
	return &Cache{fn: fn, cache: make(map[[2]string]string)}
}

// Get returns the cached or freshly-derived PSK for the pair (a, b).
func (c *Cache) Get(a, b string) (string, error) {
	key := sortPair(a, b)
	if v, ok := c.cache[key]; ok {
		return v, nil
	}
	v, err := c.fn(a, b)
	if err != nil {
		return "", err
	}
	metrics.PSKsGenerated.Inc()
	c.cache[key] = v
	return v, nil
}

// Pairs returns a copy of the memoized pairs, sorted, for manifest
// emission ("a::b" -> psk).
func (c *Cache) Pairs() map[string]string {
	out := make(map[string]string, len(c.cache))
	for k, v := range c.cache {
		out[k[0]+"::"+k[1]] = v
	}
	return out
}
