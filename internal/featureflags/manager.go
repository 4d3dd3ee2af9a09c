// Package featureflags evaluates the FEATURE_FLAGS switches.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
)

// Flags read by the service.
const (
	// AnonymousPosting allows creating posts without an account, owned by a secret.
	AnonymousPosting = "anonymous_posting"
	// GeocodeRegionScope restricts forward geocoding to the caller's region.
	GeocodeRegionScope = "geocode_region_scope"
	// ListingCache enables the Redis cache in front of listings.
	ListingCache = "listing_cache"
)

// Defaults is the state of each known flag when FEATURE_FLAGS leaves it out.
var Defaults = map[string]bool{
	AnonymousPosting:   true,
	ListingCache:       true,
	GeocodeRegionScope: false,
}

// Manager holds flags parsed from a key=value list such as
// "anonymous_posting=on,listing_cache=25%,geocode_region_scope=off".
type Manager struct {
	flags map[string]string
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled reports whether name is on for userID. Unknown flags are off.
// Values are on/true/1, off/false/0, or N% for a deterministic per-user rollout;
// anonymous callers (userID 0) only see 100%.
func (m *Manager) Enabled(name string, userID uint) bool {
	return m.EnabledOr(name, userID, false)
}

// EnabledOr is Enabled with def returned for flags that are not configured.
func (m *Manager) EnabledOr(name string, userID uint, def bool) bool {
	if m == nil {
		return def
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return def
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil, pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// On evaluates a known flag, falling back to its entry in Defaults.
func (m *Manager) On(name string, userID uint) bool {
	return m.EnabledOr(name, userID, Defaults[normalize(name)])
}

// Effective evaluates every known flag for userID.
func (m *Manager) Effective(userID uint) map[string]bool {
	out := make(map[string]bool, len(Defaults))
	for name := range Defaults {
		out[name] = m.On(name, userID)
	}
	return out
}

// Raw returns a copy of the configured values.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m.flags)
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	raw := m.Raw()
	out := make(map[string]bool, len(raw))
	for name := range raw {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
