package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/devmemory/apps/go-server/internal/db"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.OpenAndMigrate(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewStore(conn)
}

func TestCreateAndAuthenticate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u, err := s.Create(ctx, "  alice_1 ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice_1", u.Username)
	assert.Len(t, u.ID, 22)

	got, err := s.Authenticate(ctx, "ALICE_1", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "alice_1", "wrong-password")
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := s.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.CreatedAt, byID.CreatedAt)
}

func TestCreate_Taken(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "bob", "password123")
	require.NoError(t, err)
	_, err = s.Create(ctx, "BOB", "password456")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestCreate_ConcurrentSameName(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Create(ctx, "dave", "password123")
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrUsernameTaken)
	}
	assert.Equal(t, 1, created)
}

func TestIsUniqueViolation(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	insert := func(id string) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
			id, "erin", "x", time.Now().UTC().Format(time.RFC3339))
		return err
	}
	require.NoError(t, insert("u1"))

	err := insert("u2")
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestByID_Missing(t *testing.T) {
	s := newStore(t)
	_, err := s.ByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateSignup(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		pass    string
		wantErr bool
	}{
		{"ok", "carol", "password1", false},
		{"short username", "ab", "password1", true},
		{"bad chars", "car ol", "password1", true},
		{"short password", "carol", "short", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignup(tt.user, tt.pass)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSignup() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}
