package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	assert.True(t, m.Enabled("always", 0))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("junk", 1))

	first := m.Enabled("canary", 42)
	for range 5 {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be deterministic per user")
	}
	assert.False(t, m.Enabled("canary", 0), "partial rollout excludes anonymous callers")
}

func TestEnabledOr(t *testing.T) {
	m := NewManager("listing_cache=off")

	assert.False(t, m.EnabledOr(ListingCache, 0, true))
	assert.True(t, m.EnabledOr(AnonymousPosting, 0, true))
	assert.False(t, m.EnabledOr(AnonymousPosting, 0, false))

	var nilManager *Manager
	assert.True(t, nilManager.EnabledOr(GeocodeRegionScope, 0, true))
	assert.Empty(t, nilManager.Snapshot(1))
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, Y = 20% ,z=off,=on")

	assert.Equal(t, map[string]string{"x": "on", "y": "20%", "z": "off"}, m.Raw())

	snap := m.Snapshot(123)
	assert.Len(t, snap, 3)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}

func TestEffective_FallsBackToDefaults(t *testing.T) {
	m := NewManager("listing_cache=off,unrelated=on")

	assert.Equal(t, map[string]bool{
		AnonymousPosting:   true,
		ListingCache:       false,
		GeocodeRegionScope: false,
	}, m.Effective(7))

	var nilManager *Manager
	assert.True(t, nilManager.On(AnonymousPosting, 0))
	assert.False(t, nilManager.On(GeocodeRegionScope, 0))
}
