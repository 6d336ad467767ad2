package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key identifies one substance set under one cache schema version.
type Key struct {
	Version string
	Hash    string // sha256 hex of the canonical substance set
}

// String converts the structured key into the final string used by backends.
func (k Key) String() string {
	// pipeline:<VERSION>:<HASH_HEX>
	return VersionPrefix(k.Version) + k.Hash
}

// VersionPrefix is the key prefix shared by every entry of one cache version.
func VersionPrefix(version string) string {
	return "pipeline:" + version + ":"
}

// NormalizeSubstances trims, lower-cases, drops empties, de-duplicates and
// sorts identifiers. The result is the canonical form of a substance set.
func NormalizeSubstances(substances []string) []string {
	seen := make(map[string]struct{}, len(substances))
	out := make([]string, 0, len(substances))
	for _, s := range substances {
		n := strings.ToLower(strings.TrimSpace(s))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BuildKey derives the cache key for a substance set. It is independent of
// element order, case and surrounding whitespace.
func BuildKey(substances []string, version string) Key {
	canonical, err := json.Marshal(NormalizeSubstances(substances))
	if err != nil {
		// a []string always marshals
		panic(fmt.Sprintf("cache: marshal substance set: %v", err))
	}

	sum := sha256.Sum256(canonical)

	version = strings.TrimSpace(version)
	if version == "" {
		version = "v1"
	}
	return Key{
		Version: version,
		Hash:    hex.EncodeToString(sum[:]),
	}
}
