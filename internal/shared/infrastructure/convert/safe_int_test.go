package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToInt32(t *testing.T) {
	t.Run("converts valid value", func(t *testing.T) {
		result, err := IntToInt32(-100)
		require.NoError(t, err)
		assert.Equal(t, int32(-100), result)
	})

	t.Run("converts max int32 value", func(t *testing.T) {
		result, err := IntToInt32(math.MaxInt32)
		require.NoError(t, err)
		assert.Equal(t, int32(math.MaxInt32), result)
	})

	t.Run("returns error on overflow", func(t *testing.T) {
		_, err := IntToInt32(math.MaxInt32 + 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overflow")
	})
}

func TestIntToInt32Clamped(t *testing.T) {
	assert.Equal(t, int32(42), IntToInt32Clamped(42))
	assert.Equal(t, int32(math.MaxInt32), IntToInt32Clamped(math.MaxInt32+1))
	assert.Equal(t, int32(math.MinInt32), IntToInt32Clamped(math.MinInt32-1))
}

func TestIntToUint32(t *testing.T) {
	t.Run("converts valid value", func(t *testing.T) {
		result, err := IntToUint32(5)
		require.NoError(t, err)
		assert.Equal(t, uint32(5), result)
	})

	t.Run("rejects negative", func(t *testing.T) {
		_, err := IntToUint32(-1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative")
	})

	t.Run("rejects overflow", func(t *testing.T) {
		_, err := IntToUint32(math.MaxUint32 + 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overflow")
	})
}

func TestIntToUint32Clamped(t *testing.T) {
	tests := []struct {
		name string
		in   int
		lo   uint32
		want uint32
	}{
		{"in range", 5, 1, 5},
		{"zero raised to floor", 0, 1, 1},
		{"negative raised to floor", -3, 1, 1},
		{"too large", math.MaxUint32 + 10, 1, math.MaxUint32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IntToUint32Clamped(tt.in, tt.lo))
		})
	}
}
