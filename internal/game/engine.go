// internal/game/engine.go
//
// Core game engine for a single memory session.
// Responsibilities:
//   - Build a shuffled grid from the symbol catalog (two tiles per symbol).
//   - Apply tile selections, gated by the number of unresolved face-up tiles.
//   - Resolve pairs: matches lock immediately, mismatches flip back after a delay.
//   - Count moves (one per resolved pair), track elapsed seconds, detect the win.
//
// Notes:
//   - Engine is single-consumer: every method, including Scheduler callbacks,
//     must run on the same goroutine. Runner provides that loop.
//   - Mismatch callbacks carry the generation they were scheduled in; Reset
//     bumps the generation so callbacks from a previous board are dropped.
//   - The engine never logs; hooks let callers observe moves and wins.
package game

import (
	"math/rand"
	"time"
)

// Options configures an Engine.
type Options struct {
	// Glyphs is the symbol catalog; the pair count is len(Glyphs).
	Glyphs []string

	// NewRand returns the random source used for each grid build.
	// Defaults to a time-seeded source created once.
	NewRand func() *rand.Rand

	// Scheduler runs the delayed mismatch resolution. Required.
	Scheduler     Scheduler
	Presenter     Presenter
	MismatchDelay time.Duration

	// OnMove is called once per resolved pair.
	OnMove func(matched bool)
	// OnWin is called once when the last pair is matched.
	OnWin func(Snapshot)
}

// Engine owns one game session.
type Engine struct {
	glyphs    []string
	newRand   func() *rand.Rand
	sched     Scheduler
	presenter Presenter
	delay     time.Duration
	onMove    func(bool)
	onWin     func(Snapshot)

	grid    Grid
	playing bool
	won     bool
	elapsed int
	moves   int
	pending int
	gen     uint64
}

// NewEngine constructs an engine and deals the first board.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		glyphs:    append([]string(nil), opts.Glyphs...),
		newRand:   opts.NewRand,
		sched:     opts.Scheduler,
		presenter: opts.Presenter,
		delay:     opts.MismatchDelay,
		onMove:    opts.OnMove,
		onWin:     opts.OnWin,
	}
	if e.newRand == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		e.newRand = func() *rand.Rand { return rng }
	}
	if e.sched == nil {
		panic("game: NewEngine requires a Scheduler")
	}
	if e.delay <= 0 {
		e.delay = DefaultMismatchDelay
	}
	e.Reset()
	return e
}

// Reset discards the current board and starts a fresh game.
// Any mismatch resolution still pending from the old board is invalidated.
func (e *Engine) Reset() {
	e.gen++
	// len(glyphs) is never negative, so BuildGrid cannot fail here.
	e.grid, _ = BuildGrid(len(e.glyphs), e.newRand())
	e.elapsed = 0
	e.moves = 0
	e.pending = 0
	e.won = false
	e.playing = true
	e.render()
}

// Select turns a tile face up.
// It reports whether the selection had any effect. Selecting a matched or
// already revealed tile, selecting while two tiles are unresolved, or
// selecting after the game ended is a silent no-op. An index outside the
// grid returns ErrIndexOutOfRange.
func (e *Engine) Select(index int) (bool, error) {
	if index < 0 || index >= len(e.grid) {
		return false, ErrIndexOutOfRange
	}
	if !e.playing || e.pending >= 2 {
		return false, nil
	}
	t := &e.grid[index]
	if t.Matched || t.Revealed {
		return false, nil
	}

	t.Revealed = true
	e.pending++
	if e.pending == 2 {
		e.resolvePair()
	}
	e.render()
	return true, nil
}

// Tick advances the clock by one second while the game is in progress.
func (e *Engine) Tick() {
	if !e.playing {
		return
	}
	e.elapsed++
	e.render()
}

// resolvePair evaluates the two face-up tiles.
func (e *Engine) resolvePair() {
	open := e.grid.revealed()
	if len(open) != 2 {
		return
	}
	a, b := open[0], open[1]

	if e.grid[a].PairValue == e.grid[b].PairValue {
		e.grid[a].Revealed, e.grid[a].Matched = false, true
		e.grid[b].Revealed, e.grid[b].Matched = false, true
		e.completeMove(true)
		return
	}

	gen := e.gen
	e.sched.AfterFunc(e.delay, func() { e.hideMismatch(gen, a, b) })
}

// hideMismatch flips a mismatched pair back face down.
func (e *Engine) hideMismatch(gen uint64, a, b int) {
	if gen != e.gen {
		return
	}
	if a >= len(e.grid) || b >= len(e.grid) || !e.grid[a].Revealed || !e.grid[b].Revealed {
		return
	}
	e.grid[a].Revealed = false
	e.grid[b].Revealed = false
	e.completeMove(false)
	e.render()
}

// completeMove closes a pair attempt and runs win detection.
func (e *Engine) completeMove(matched bool) {
	e.pending = 0
	e.moves++
	if e.onMove != nil {
		e.onMove(matched)
	}
	if e.moves > 0 && e.grid.Matched() {
		e.playing = false
		e.won = true
		if e.onWin != nil {
			e.onWin(e.Snapshot())
		}
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	tiles := make([]TileView, len(e.grid))
	for i, t := range e.grid {
		tiles[i] = TileView{
			Glyph:    e.glyph(t.PairValue),
			Revealed: t.Revealed,
			Matched:  t.Matched,
		}
	}
	return Snapshot{
		Tiles:          tiles,
		ElapsedSeconds: e.elapsed,
		Elapsed:        FormatElapsed(e.elapsed),
		MoveCount:      e.moves,
		Playing:        e.playing,
		Won:            e.won,
	}
}

// Grid returns a copy of the board, including pair values.
func (e *Engine) Grid() Grid { return append(Grid(nil), e.grid...) }

// Tile returns the tile at index.
func (e *Engine) Tile(index int) (Tile, error) {
	if index < 0 || index >= len(e.grid) {
		return Tile{}, ErrIndexOutOfRange
	}
	return e.grid[index], nil
}

func (e *Engine) Playing() bool { return e.playing }

func (e *Engine) Won() bool { return e.won }

func (e *Engine) MoveCount() int { return e.moves }

func (e *Engine) Elapsed() int { return e.elapsed }

// PendingCount is the number of face-up tiles awaiting resolution (0-2).
func (e *Engine) PendingCount() int { return e.pending }

func (e *Engine) glyph(v int) string {
	if v >= 0 && v < len(e.glyphs) {
		return e.glyphs[v]
	}
	return ""
}

func (e *Engine) render() {
	if e.presenter != nil {
		e.presenter.Render(e.Snapshot())
	}
}
