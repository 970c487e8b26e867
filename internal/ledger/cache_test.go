package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/mnemos/internal/ir"
)

func TestItemCache_EvictsLeastRecent(t *testing.T) {
	c := newItemCache[string](2)
	k1, k2, k3 := ir.NewKey(), ir.NewKey(), ir.NewKey()

	c.put(k1, "one")
	c.put(k2, "two")

	// Touch k1 so k2 becomes the eviction candidate.
	_, ok := c.get(k1)
	assert.True(t, ok)

	c.put(k3, "three")

	_, ok = c.get(k2)
	assert.False(t, ok)
	v, ok := c.get(k1)
	assert.True(t, ok)
	assert.Equal(t, "one", v)
	_, ok = c.get(k3)
	assert.True(t, ok)
}

func TestItemCache_InvalidateAndPurge(t *testing.T) {
	c := newItemCache[int](4)
	k := ir.NewKey()

	c.put(k, 7)
	c.put(k, 8) // overwrite moves to front, no duplicate entry
	v, ok := c.get(k)
	assert.True(t, ok)
	assert.Equal(t, 8, v)

	c.invalidate(k)
	_, ok = c.get(k)
	assert.False(t, ok)

	c.put(k, 9)
	c.purge()
	_, ok = c.get(k)
	assert.False(t, ok)
}
