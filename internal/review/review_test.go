package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mnemos/internal/blob"
	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/ledger"
)

func TestReview_ApplyAppends(t *testing.T) {
	r := New(ir.NewKey())

	r2, err := r.Apply(Action{Timestamp: 100, Grade: GradeGood})
	require.NoError(t, err)
	r3, err := r2.Apply(Action{Timestamp: 200, Grade: GradePerfect})
	require.NoError(t, err)

	assert.Empty(t, r.Entries)
	assert.Len(t, r2.Entries, 1)
	assert.Len(t, r3.Entries, 2)
	assert.Equal(t, GradePerfect, r3.Entries[1].Grade)
}

func TestReview_ApplyRejects(t *testing.T) {
	r := New(ir.NewKey())
	r, err := r.Apply(Action{Timestamp: 100, Grade: GradeGood})
	require.NoError(t, err)

	_, err = r.Apply(Action{Timestamp: 50, Grade: GradeGood})
	assert.Error(t, err)

	_, err = r.Apply(Action{Timestamp: 150, Grade: 9})
	assert.Error(t, err)
}

func TestReview_Properties(t *testing.T) {
	r := New(ir.NewKey())
	assert.Contains(t, r.Properties(), ir.Prop("reviewed", "false"))

	r, err := r.Apply(Action{Timestamp: 1, Grade: GradeHard})
	require.NoError(t, err)
	assert.Contains(t, r.Properties(), ir.Prop("reviewed", "true"))
	assert.Contains(t, r.Properties(), ir.Prop("last_grade", "2"))
}

// TestReview_OnLedger proves the generic engine runs a second category
// unchanged.
func TestReview_OnLedger(t *testing.T) {
	store := blob.NewMemory()
	eng, err := ledger.Open(store, Model())
	require.NoError(t, err)

	cardKey := ir.NewKey()
	_, err = eng.SubmitCreate(New(cardKey))
	require.NoError(t, err)

	_, err = eng.SubmitModify(cardKey, Action{Timestamp: 100, Grade: GradeGood})
	require.NoError(t, err)
	_, err = eng.SubmitModify(cardKey, Action{Timestamp: 200, Grade: GradeFailed})
	require.NoError(t, err)

	got, ok := eng.Get(cardKey)
	require.True(t, ok)
	assert.Len(t, got.Entries, 2)
	assert.Equal(t, ir.NewKeySet(cardKey), eng.ByProperty("last_grade", "1"))

	// Out-of-order reviews reject as invalid modifiers.
	_, err = eng.SubmitModify(cardKey, Action{Timestamp: 50, Grade: GradeGood})
	assert.Equal(t, ledger.CodeInvalidModifier, ledger.CodeOf(err))

	// Replay reproduces the history.
	reopened, err := ledger.Open(store, Model())
	require.NoError(t, err)
	again, ok := reopened.Get(cardKey)
	require.True(t, ok)
	assert.Equal(t, got, again)
}
