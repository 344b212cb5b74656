package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		expected bool
	}{
		{StatusPending, StatusSuccess, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusRefunded, false},
		{StatusPending, StatusPending, false},

		{StatusSuccess, StatusRefunded, true},
		{StatusSuccess, StatusSuccess, false},
		{StatusSuccess, StatusFailed, false},
		{StatusSuccess, StatusPending, false},

		{StatusFailed, StatusSuccess, false},
		{StatusFailed, StatusPending, false},
		{StatusFailed, StatusRefunded, false},

		{StatusRefunded, StatusSuccess, false},
		{StatusRefunded, StatusPending, false},
		{StatusRefunded, StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusRefunded.Valid())
	assert.False(t, Status("pending").Valid())
	assert.False(t, Status("CANCELLED").Valid())
	assert.False(t, Status("").Valid())
}

func TestParseStatusFilter(t *testing.T) {
	t.Run("empty means no filter", func(t *testing.T) {
		filter, err := ParseStatusFilter("")
		require.NoError(t, err)
		assert.Nil(t, filter)
	})

	t.Run("ALL means no filter", func(t *testing.T) {
		filter, err := ParseStatusFilter("all")
		require.NoError(t, err)
		assert.Nil(t, filter)
	})

	t.Run("case insensitive", func(t *testing.T) {
		filter, err := ParseStatusFilter("success")
		require.NoError(t, err)
		require.NotNil(t, filter)
		assert.Equal(t, StatusSuccess, *filter)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := ParseStatusFilter("CANCELLED")
		assert.Error(t, err)
	})
}

func TestBundleByKey(t *testing.T) {
	bundle, ok := BundleByKey("20_credits")
	require.True(t, ok)
	assert.Equal(t, "price_credits_20", bundle.PriceID)
	assert.Equal(t, float64(50), bundle.Amount)
	assert.Equal(t, "usd", bundle.Currency)

	_, ok = BundleByKey("9000_credits")
	assert.False(t, ok)
}
