package kyc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ValidateFreshness(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Minute

	t.Run("nil timestamp passes", func(t *testing.T) {
		assert.NoError(t, ValidateFreshness(nil, now, window))
	})

	t.Run("fresh proof passes", func(t *testing.T) {
		ts := now.Add(-9 * time.Minute)
		assert.NoError(t, ValidateFreshness(&ts, now, window))
	})

	t.Run("boundary proof passes", func(t *testing.T) {
		ts := now.Add(-window)
		assert.NoError(t, ValidateFreshness(&ts, now, window))
	})

	t.Run("11 minute old proof fails expired", func(t *testing.T) {
		ts := now.Add(-11 * time.Minute)
		require.ErrorIs(t, ValidateFreshness(&ts, now, window), ErrProofExpired)
	})

	t.Run("1 minute in the future fails future dated", func(t *testing.T) {
		ts := now.Add(time.Minute)
		require.ErrorIs(t, ValidateFreshness(&ts, now, window), ErrProofFutureDated)
	})
}
