package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommission(t *testing.T) {
	tests := []struct {
		amount     int64
		commission int64
	}{
		{10000, 150},
		{100000, 1500},
		{1, 0},      // truncates to zero
		{66, 0},     // just under one fee unit
		{67, 1},     // 67 * 1500 / 100000 = 1.005
		{9999, 149}, // floor, never round
	}

	for _, tt := range tests {
		assert.Equal(t, tt.commission, Commission(tt.amount), "amount %d", tt.amount)
	}
}

func TestSplitCommission(t *testing.T) {
	t.Run("Exactness", func(t *testing.T) {
		for _, amount := range []int64{1, 67, 9999, 10000, 38001, 100000, 123456789} {
			net, commission := SplitCommission(amount)
			assert.Equal(t, amount, net+commission, "no rounding loss for %d", amount)
		}
	})

	t.Run("Withdrawal of 10000", func(t *testing.T) {
		net, commission := SplitCommission(10000)
		assert.Equal(t, int64(9850), net)
		assert.Equal(t, int64(150), commission)
	})
}

func TestRequiredCoverage(t *testing.T) {
	assert.Equal(t, int64(33000), RequiredCoverage(30000))
	assert.Equal(t, int64(110), RequiredCoverage(100))
	assert.Equal(t, int64(1), RequiredCoverage(1)) // floor(1.10)
}

func TestAmountDue(t *testing.T) {
	assert.Equal(t, int64(38001), AmountDue(30000))
	assert.Equal(t, int64(126670), AmountDue(100000))
	assert.Equal(t, int64(1), AmountDue(1))
}

func TestMinimumPrincipal(t *testing.T) {
	min := MinimumPrincipal(5500)
	assert.Equal(t, int64(20623), min)

	// The boundary is exact: at the minimum the spread is covered, one
	// unit below it is not.
	assert.GreaterOrEqual(t, AmountDue(min)-min, int64(5500))
	assert.Less(t, AmountDue(min-1)-(min-1), int64(5500))

	assert.Equal(t, int64(1), MinimumPrincipal(0))
}
