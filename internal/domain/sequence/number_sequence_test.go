package sequence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medistock/ledger/internal/domain/shared"
)

func TestNumberSequence_NextNumber(t *testing.T) {
	seq, err := NewNumberSequence(KeyCustomerInvoiceSerialNumber)
	require.NoError(t, err)

	t.Run("counts up from one", func(t *testing.T) {
		assert.Equal(t, int64(1), seq.NextNumber())
		assert.Equal(t, int64(2), seq.NextNumber())
		assert.Equal(t, int64(3), seq.NextNumber())
		assert.Equal(t, int64(3), seq.HighestNumberUsed)
	})

	t.Run("prefers the smallest released number", func(t *testing.T) {
		require.NoError(t, seq.ReuseNumber(2))

		assert.Equal(t, int64(2), seq.NextNumber())
		assert.Equal(t, int64(4), seq.NextNumber())
		assert.Equal(t, int64(4), seq.HighestNumberUsed)
	})

	t.Run("drains the pool in ascending order", func(t *testing.T) {
		require.NoError(t, seq.ReuseNumber(3))
		require.NoError(t, seq.ReuseNumber(1))

		assert.Equal(t, int64(1), seq.NextNumber())
		assert.Equal(t, int64(3), seq.NextNumber())
		assert.Equal(t, int64(5), seq.NextNumber())
	})
}

func TestNumberSequence_ReuseNumber(t *testing.T) {
	seq, err := NewNumberSequence(KeyStocktakeSerialNumber)
	require.NoError(t, err)
	seq.NextNumber()
	seq.NextNumber()

	t.Run("rejects numbers never issued", func(t *testing.T) {
		err := seq.ReuseNumber(3)
		assert.True(t, errors.Is(err, shared.ErrInvariantViolation))
	})

	t.Run("rejects non-positive numbers", func(t *testing.T) {
		assert.Error(t, seq.ReuseNumber(0))
		assert.Error(t, seq.ReuseNumber(-1))
	})

	t.Run("rejects double release", func(t *testing.T) {
		require.NoError(t, seq.ReuseNumber(1))
		err := seq.ReuseNumber(1)
		assert.True(t, errors.Is(err, shared.ErrInvariantViolation))
	})
}

func TestNewNumberSequence(t *testing.T) {
	_, err := NewNumberSequence("")
	assert.Error(t, err)
}
