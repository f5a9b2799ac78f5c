package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/devmemory/apps/go-server/internal/game"
)

func newRunner(t *testing.T) *game.Runner {
	t.Helper()
	r := game.NewRunner(NewID(), game.RunnerOptions{
		Options: game.Options{Glyphs: []string{"a", "b"}},
	})
	go r.Run(context.Background())
	t.Cleanup(r.Stop)
	return r
}

func TestNewID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewID())
}

func TestSaveGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := newRunner(t)

	require.NoError(t, s.Save(ctx, r))
	got, err := s.Get(ctx, r.ID())
	require.NoError(t, err)
	assert.Same(t, r, got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, r.ID()))
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("runner not stopped on delete")
	}
	_, err = s.Get(ctx, r.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, r.ID()), ErrNotFound)
}

func TestReap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := newRunner(t)
	require.NoError(t, s.Save(ctx, r))

	assert.Zero(t, s.Reap(ctx, time.Hour))
	assert.Equal(t, 1, s.Len())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, s.Reap(ctx, time.Millisecond))
	assert.Zero(t, s.Len())
	<-r.Done()
}
