// internal/game/runner.go
//
// Runner hosts one Engine on a dedicated event loop.
// Responsibilities:
//   - Serialize selections, resets, snapshot reads, clock ticks and mismatch
//     callbacks through a single goroutine (the engine is not thread-safe).
//   - Drive the 1-second clock with a time.Ticker that is always released
//     when the loop exits.
//   - Fan out snapshots to subscribers (WebSocket presenters).

package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTickInterval is the clock period.
const DefaultTickInterval = time.Second

// subscriberBuffer bounds how far a slow subscriber may lag before it starts
// losing intermediate snapshots.
const subscriberBuffer = 16

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Options
	TickInterval time.Duration

	// LockBoard makes the first deal final: Reset returns ErrResetLocked.
	LockBoard bool
}

// Runner owns an Engine and the goroutine that drives it.
type Runner struct {
	id   string
	eng  *Engine
	tick time.Duration
	lock bool

	cmds     chan func()
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	lastActive atomic.Int64
	subs       map[int]chan Snapshot
	nextSub    int
	presenter  Presenter
}

// NewRunner builds the engine for session id. Call Run to start the loop.
func NewRunner(id string, opts RunnerOptions) *Runner {
	r := &Runner{
		id:        id,
		tick:      opts.TickInterval,
		lock:      opts.LockBoard,
		cmds:      make(chan func()),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		subs:      make(map[int]chan Snapshot),
		presenter: opts.Presenter,
	}
	if r.tick <= 0 {
		r.tick = DefaultTickInterval
	}
	r.touch()

	eo := opts.Options
	eo.Scheduler = r
	eo.Presenter = r
	r.eng = NewEngine(eo)
	return r
}

// ID returns the session identifier.
func (r *Runner) ID() string { return r.id }

// Run drives the engine until ctx is cancelled or Stop is called.
// It blocks; call it in its own goroutine.
func (r *Runner) Run(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	ticker := time.NewTicker(r.tick)
	defer func() {
		ticker.Stop()
		for _, ch := range r.subs {
			close(ch)
		}
		r.subs = nil
		close(r.done)
		log.Debug().Str("gameId", r.id).Msg("runner stopped")
	}()
	log.Debug().Str("gameId", r.id).Msg("runner started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.eng.Tick()
		case fn := <-r.cmds:
			fn()
		}
	}
}

// Stop ends the loop. Safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		// Never started: nothing else will close done.
		if r.started.CompareAndSwap(false, true) {
			close(r.done)
		}
	})
}

// Done is closed once the loop has exited.
func (r *Runner) Done() <-chan struct{} { return r.done }

// LastActive reports when a player last interacted with the session.
func (r *Runner) LastActive() time.Time { return time.Unix(0, r.lastActive.Load()) }

func (r *Runner) touch() { r.lastActive.Store(time.Now().UnixNano()) }

// SelectTile forwards a tile selection. Out-of-range indexes and gated
// selections are no-ops; the current snapshot is returned either way.
func (r *Runner) SelectTile(ctx context.Context, index int) (Snapshot, error) {
	r.touch()
	var snap Snapshot
	err := r.do(ctx, func() {
		if _, err := r.eng.Select(index); err != nil {
			log.Debug().Err(err).Str("gameId", r.id).Int("index", index).Msg("selection ignored")
		}
		snap = r.eng.Snapshot()
	})
	return snap, err
}

// Reset deals a new board. A locked runner refuses with ErrResetLocked.
func (r *Runner) Reset(ctx context.Context) (Snapshot, error) {
	r.touch()
	if r.lock {
		return Snapshot{}, ErrResetLocked
	}
	var snap Snapshot
	err := r.do(ctx, func() {
		r.eng.Reset()
		snap = r.eng.Snapshot()
	})
	return snap, err
}

// Snapshot reads the current state.
func (r *Runner) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.do(ctx, func() { snap = r.eng.Snapshot() })
	return snap, err
}

// Subscribe registers a snapshot stream. The current state is delivered
// first. The channel is closed when cancel is called or the runner stops.
func (r *Runner) Subscribe(ctx context.Context) (<-chan Snapshot, func(), error) {
	r.touch()
	ch := make(chan Snapshot, subscriberBuffer)
	var id int
	err := r.do(ctx, func() {
		id = r.nextSub
		r.nextSub++
		r.subs[id] = ch
		ch <- r.eng.Snapshot()
	})
	if err != nil {
		return nil, nil, err
	}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = r.do(context.Background(), func() {
				if c, ok := r.subs[id]; ok {
					delete(r.subs, id)
					close(c)
				}
			})
		})
	}
	return ch, cancel, nil
}

// AfterFunc implements Scheduler by posting fn back onto the loop.
// Callbacks that fire after the runner stopped are dropped.
func (r *Runner) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		select {
		case r.cmds <- fn:
		case <-r.done:
		}
	})
}

// Render implements Presenter; it runs on the loop goroutine.
func (r *Runner) Render(s Snapshot) {
	if r.presenter != nil {
		r.presenter.Render(s)
	}
	for _, ch := range r.subs {
		select {
		case ch <- s:
		default:
			// Drop the oldest snapshot so the newest state always lands.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (r *Runner) do(ctx context.Context, fn func()) error {
	ack := make(chan struct{})
	select {
	case r.cmds <- func() { fn(); close(ack) }:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
