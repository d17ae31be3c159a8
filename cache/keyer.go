package cache

import (
	"crypto/md5" // #nosec G501 -- key digest, not a security boundary.
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// Keyer generates deterministic cache keys from a computation identity and
// the ordered values of its sign variables.
//
// Contract:
// - Determinism: same inputs must produce same key, on any process and run,
// regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key.
	Key(identity string, values []any) (string, error)
}

// Hash selects the digest DefaultKeyer applies to the key pattern. Neither
// choice is meant to resist deliberate collisions.
type Hash int

const (
	// HashMD5 yields 32 hex characters.
	HashMD5 Hash = iota
	// HashXXHash yields 16 hex characters.
	HashXXHash
)

func (h Hash) String() string {
	switch h {
	case HashMD5:
		return "md5"
	case HashXXHash:
		return "xxhash"
	default:
		return "unknown"
	}
}

// ParseHash parses a hash name as printed by Hash.String.
func ParseHash(s string) (Hash, error) {
	switch strings.ToLower(s) {
	case "md5", "":
		return HashMD5, nil
	case "xxhash":
		return HashXXHash, nil
	default:
		return 0, errors.Newf("cache: unknown hash %q", s)
	}
}

// KeySeparator joins the identity and the sign-variable values in the key
// pattern.
const KeySeparator = ":"

// DefaultKeyer hashes the pattern produced by Pattern.
type DefaultKeyer struct {
	hash Hash
}

// NewDefaultKeyer creates a keyer using HashMD5.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{hash: HashMD5}
}

// NewKeyer creates a keyer using the given hash.
func NewKeyer(h Hash) *DefaultKeyer {
	return &DefaultKeyer{hash: h}
}

// Key generates a deterministic cache key as the hex digest of
// Pattern(identity, values).
func (k *DefaultKeyer) Key(identity string, values []any) (string, error) {
	pattern, err := Pattern(identity, values)
	if err != nil {
		return "", err
	}

	switch k.hash {
	case HashXXHash:
		return fmt.Sprintf("%016x", xxhash.Sum64String(pattern)), nil
	default:
		sum := md5.Sum([]byte(pattern)) // #nosec G401
		return hex.EncodeToString(sum[:]), nil
	}
}

// Pattern returns the pre-hash key form.
// Format: <identity>:<value1>:<value2>...
// where each value is its canonical JSON encoding. JSON strings are quoted
// and escaped, so a separator inside a string value cannot shift the
// boundary between two values. An identity that itself contains the
// separator is not disambiguated.
func Pattern(identity string, values []any) (string, error) {
	var b strings.Builder
	b.WriteString(identity)
	for i, v := range values {
		canonical, err := canonicalize(v)
		if err != nil {
			return "", errors.Wrapf(ErrKeyDerivation, "%s value %d: %v", identity, i, err)
		}
		b.WriteString(KeySeparator)
		b.Write(canonical)
	}
	return b.String(), nil
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key to ensure consistent ordering.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		// encoding/json already sorts map keys for typed maps.
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
