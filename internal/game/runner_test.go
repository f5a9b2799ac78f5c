package game

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRunner(t *testing.T, glyphs []string, tick, delay time.Duration) (*Runner, Grid) {
	t.Helper()
	seed := int64(11)
	r := NewRunner("test", RunnerOptions{
		Options: Options{
			Glyphs:        glyphs,
			NewRand:       func() *rand.Rand { return rand.New(rand.NewSource(seed)) },
			MismatchDelay: delay,
		},
		TickInterval: tick,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-r.Done()
	})

	// Same seed, same board as the runner's engine.
	g, err := BuildGrid(len(glyphs), rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return r, g
}

func TestRunner_MatchAndWin(t *testing.T) {
	r, _ := startRunner(t, []string{"react"}, time.Hour, 10*time.Millisecond)
	ctx := context.Background()

	s, err := r.SelectTile(ctx, 0)
	require.NoError(t, err)
	assert.True(t, s.Tiles[0].Revealed)

	s, err = r.SelectTile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.MoveCount)
	assert.False(t, s.Playing)
	assert.True(t, s.Won)
}

func TestRunner_MismatchResolvesAfterDelay(t *testing.T) {
	const delay = 200 * time.Millisecond
	r, g := startRunner(t, testGlyphs, time.Hour, delay)
	_, mismatch := pairIndexes(t, g)
	ctx := context.Background()

	_, err := r.SelectTile(ctx, mismatch[0])
	require.NoError(t, err)
	s, err := r.SelectTile(ctx, mismatch[1])
	require.NoError(t, err)
	assert.True(t, s.Tiles[mismatch[0]].Revealed)
	assert.True(t, s.Tiles[mismatch[1]].Revealed)
	assert.Zero(t, s.MoveCount)

	// Halfway through the delay the pair is still face up.
	time.Sleep(delay / 2)
	s, err = r.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, s.Tiles[mismatch[0]].Revealed)
	assert.True(t, s.Tiles[mismatch[1]].Revealed)
	assert.Zero(t, s.MoveCount)

	require.Eventually(t, func() bool {
		s, err := r.Snapshot(ctx)
		return err == nil && s.MoveCount == 1
	}, time.Second, 5*time.Millisecond)

	s, err = r.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, s.Tiles[mismatch[0]].Revealed)
	assert.False(t, s.Tiles[mismatch[1]].Revealed)
	assert.True(t, s.Playing)
}

func TestRunner_OutOfRangeIsNoop(t *testing.T) {
	r, _ := startRunner(t, testGlyphs, time.Hour, time.Second)
	ctx := context.Background()
	before, err := r.Snapshot(ctx)
	require.NoError(t, err)
	after, err := r.SelectTile(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunner_Ticks(t *testing.T) {
	r, _ := startRunner(t, testGlyphs, 5*time.Millisecond, time.Second)
	ctx := context.Background()
	require.Eventually(t, func() bool {
		s, err := r.Snapshot(ctx)
		return err == nil && s.ElapsedSeconds >= 3
	}, time.Second, 5*time.Millisecond)

	s, err := r.Reset(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.ElapsedSeconds)
	assert.True(t, s.Playing)
}

func TestRunner_LockBoardRefusesReset(t *testing.T) {
	r := NewRunner("locked", RunnerOptions{
		Options:      Options{Glyphs: testGlyphs, MismatchDelay: time.Second},
		TickInterval: time.Hour,
		LockBoard:    true,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-r.Done()
	})

	s, err := r.SelectTile(ctx, 0)
	require.NoError(t, err)
	require.True(t, s.Tiles[0].Revealed)

	_, err = r.Reset(ctx)
	assert.ErrorIs(t, err, ErrResetLocked)

	after, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, after)
}

func TestRunner_Subscribe(t *testing.T) {
	r, _ := startRunner(t, testGlyphs, time.Hour, time.Second)
	ctx := context.Background()

	ch, cancel, err := r.Subscribe(ctx)
	require.NoError(t, err)
	first := <-ch
	assert.True(t, first.Playing)

	_, err = r.SelectTile(ctx, 0)
	require.NoError(t, err)
	select {
	case s := <-ch:
		assert.True(t, s.Tiles[0].Revealed)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after selection")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestRunner_StopClosesSubscribers(t *testing.T) {
	r, _ := startRunner(t, testGlyphs, time.Hour, time.Second)
	ch, _, err := r.Subscribe(context.Background())
	require.NoError(t, err)
	<-ch

	r.Stop()
	<-r.Done()

	_, open := <-ch
	assert.False(t, open)
	_, err = r.SelectTile(context.Background(), 0)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRunner_StopBeforeRun(t *testing.T) {
	r := NewRunner("idle", RunnerOptions{Options: Options{Glyphs: testGlyphs}})
	r.Stop()
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed")
	}
	_, err := r.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}
