// internal/game/types.go
//
// Core type definitions for the memory game engine.
// Defines:
//   - Tile: one grid cell (pair value + face-up flags).
//   - Grid: the ordered sequence of tiles.
//   - Snapshot/TileView: read-only state pushed to presenters.
//   - Presenter/Scheduler: the collaborators the engine is driven by.

package game

import (
	"errors"
	"time"
)

// DefaultMismatchDelay is how long a non-matching pair stays face up.
const DefaultMismatchDelay = 1000 * time.Millisecond

var (
	ErrNegativePairCount = errors.New("game: negative pair count")
	ErrIndexOutOfRange   = errors.New("game: tile index out of range")
	ErrStopped           = errors.New("game: runner stopped")
	ErrResetLocked       = errors.New("game: board is locked, reset refused")
)

// Tile is a single card on the board.
// Revealed and Matched are never both true: a matched tile is permanently
// face up and no longer counts as revealed.
type Tile struct {
	PairValue int  // Symbol shared with exactly one other tile.
	Revealed  bool // Face up, waiting for its pair to be resolved.
	Matched   bool // Face up for the rest of the game.
}

// Grid is the board in display order.
type Grid []Tile

// TileView is the presenter-facing form of a Tile.
type TileView struct {
	Glyph    string `json:"glyph"`
	Revealed bool   `json:"revealed"`
	Matched  bool   `json:"matched"`
}

// Snapshot is a detached copy of the session state.
type Snapshot struct {
	Tiles          []TileView `json:"tiles"`
	ElapsedSeconds int        `json:"elapsedSeconds"`
	Elapsed        string     `json:"elapsed"`
	MoveCount      int        `json:"moveCount"`
	Playing        bool       `json:"playing"`
	Won            bool       `json:"won"`
}

// Presenter receives a snapshot after every state change.
type Presenter interface {
	Render(Snapshot)
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(Snapshot)

func (f PresenterFunc) Render(s Snapshot) { f(s) }

// Scheduler runs fn once after d. Implementations must invoke fn on the
// same goroutine that drives the engine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}
