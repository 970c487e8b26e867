package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Deterministic(t *testing.T) {
	c := NewClock(100)
	assert.Equal(t, int64(101), c.Now())
	assert.Equal(t, int64(102), c.Now())
	assert.Equal(t, int64(102), c.Current())

	c.Reset(100)
	assert.Equal(t, int64(101), c.Now())
}

func TestSeqKey_StableAndDistinct(t *testing.T) {
	assert.Equal(t, SeqKey(1), SeqKey(1))
	assert.NotEqual(t, SeqKey(1), SeqKey(2))
	assert.Equal(t, "00000000-0000-4000-8000-000000000007", SeqKey(7).String())
}
