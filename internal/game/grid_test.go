package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGrid_PairsAppearTwice(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, pairs := range []int{0, 1, 2, 8, 25} {
		g, err := BuildGrid(pairs, rng)
		require.NoError(t, err)
		require.Len(t, g, pairs*2)

		counts := make(map[int]int)
		for _, tile := range g {
			assert.False(t, tile.Revealed)
			assert.False(t, tile.Matched)
			counts[tile.PairValue]++
		}
		assert.Len(t, counts, pairs)
		for v := 0; v < pairs; v++ {
			assert.Equal(t, 2, counts[v], "pairs=%d value=%d", pairs, v)
		}
	}
}

func TestBuildGrid_Negative(t *testing.T) {
	g, err := BuildGrid(-1, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNegativePairCount)
	assert.Nil(t, g)
}

func TestBuildGrid_Empty(t *testing.T) {
	g, err := BuildGrid(0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Empty(t, g)
	assert.True(t, g.Matched())
}

func TestBuildGrid_SameSeedSameLayout(t *testing.T) {
	a, err := BuildGrid(8, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := BuildGrid(8, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// Each position should hold each symbol with probability 1/P.
func TestBuildGrid_Uniform(t *testing.T) {
	const (
		pairs  = 4
		trials = 20000
	)
	rng := rand.New(rand.NewSource(99))
	var hits [pairs * 2][pairs]int
	for i := 0; i < trials; i++ {
		g, err := BuildGrid(pairs, rng)
		require.NoError(t, err)
		for pos, tile := range g {
			hits[pos][tile.PairValue]++
		}
	}

	// Each symbol covers two slots, so the expected count is 2*trials/(2*pairs).
	expected := float64(trials) / pairs
	for pos := range hits {
		for v := range hits[pos] {
			got := float64(hits[pos][v])
			assert.InDelta(t, expected, got, expected*0.06, "pos=%d value=%d", pos, v)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{9, "00:09"},
		{75, "01:15"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{3725, "01:02:05"},
		{-5, "00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatElapsed(tt.seconds), "seconds=%d", tt.seconds)
	}
}
