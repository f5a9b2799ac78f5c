package game

import "math/rand"

// BuildGrid lays out 2*pairCount tiles. Every symbol is placed twice, each
// time into a uniformly drawn empty slot (draws that hit a filled slot are
// retried).
func BuildGrid(pairCount int, rng *rand.Rand) (Grid, error) {
	if pairCount < 0 {
		return nil, ErrNegativePairCount
	}
	size := pairCount * 2
	slots := make([]int, size)
	for i := range slots {
		slots[i] = -1
	}

	for w := 0; w < 2; w++ {
		for v := 0; v < pairCount; v++ {
			pos := rng.Intn(size)
			for slots[pos] != -1 {
				pos = rng.Intn(size)
			}
			slots[pos] = v
		}
	}

	g := make(Grid, size)
	for i, v := range slots {
		g[i] = Tile{PairValue: v}
	}
	return g, nil
}

// Matched reports whether every tile has been matched.
// An empty grid is trivially matched.
func (g Grid) Matched() bool {
	for _, t := range g {
		if !t.Matched {
			return false
		}
	}
	return true
}

// revealed returns the indexes of tiles that are face up but unresolved.
func (g Grid) revealed() []int {
	var out []int
	for i, t := range g {
		if t.Revealed {
			out = append(out, i)
		}
	}
	return out
}
