package results

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/devmemory/apps/go-server/internal/db"
)

func newStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	conn, err := db.OpenAndMigrate(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewStore(conn), conn
}

func addUser(t *testing.T, conn *sql.DB, id string) {
	t.Helper()
	_, err := conn.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, "user_"+id, "x", time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, err)
}

func TestInsertAndMine(t *testing.T) {
	s, conn := newStore(t)
	addUser(t, conn, "u1")
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, Result{GameID: "g1", UserID: "u1", Mode: ModeNormal, Date: "2026-05-01", Moves: 12, ElapsedSeconds: 40, FinishedAt: base}))
	require.NoError(t, s.Insert(ctx, Result{GameID: "g2", UserID: "u1", Mode: ModeNormal, Date: "2026-05-01", Moves: 9, ElapsedSeconds: 55, FinishedAt: base.Add(time.Minute)}))
	require.NoError(t, s.Insert(ctx, Result{GameID: "g3", AnonymousID: "anon", Mode: ModeNormal, Date: "2026-05-01", Moves: 8, ElapsedSeconds: 30}))

	mine, err := s.Mine(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "g2", mine[0].GameID)
	assert.Equal(t, 9, mine[0].Moves)

	st, err := s.StatsFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Stats{GamesWon: 2, BestMoves: 9, BestSeconds: 40, AverageMoves: 11, TotalSeconds: 95}, st)
}

func TestStatsFor_NoResults(t *testing.T) {
	s, _ := newStore(t)
	st, err := s.StatsFor(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)
}

func TestDailyLeaderboard(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	date := "2026-05-02"

	require.NoError(t, s.Insert(ctx, Result{GameID: "a", AnonymousID: "p1", Mode: ModeDaily, Date: date, Moves: 10, ElapsedSeconds: 50}))
	require.NoError(t, s.Insert(ctx, Result{GameID: "b", AnonymousID: "p2", Mode: ModeDaily, Date: date, Moves: 8, ElapsedSeconds: 70}))
	require.NoError(t, s.Insert(ctx, Result{GameID: "c", AnonymousID: "p3", Mode: ModeDaily, Date: date, Moves: 8, ElapsedSeconds: 20}))
	// Second daily win for p1 does not replace the first.
	require.NoError(t, s.Insert(ctx, Result{GameID: "d", AnonymousID: "p1", Mode: ModeDaily, Date: date, Moves: 8, ElapsedSeconds: 10}))
	// Normal games never reach the daily board.
	require.NoError(t, s.Insert(ctx, Result{GameID: "e", AnonymousID: "p4", Mode: ModeNormal, Date: date, Moves: 8, ElapsedSeconds: 5}))

	top, err := s.Leaderboard(ctx, date, 0)
	require.NoError(t, err)
	assert.Equal(t, []LBRow{
		{OwnerID: "p3", Moves: 8, ElapsedSeconds: 20},
		{OwnerID: "p2", Moves: 8, ElapsedSeconds: 70},
		{OwnerID: "p1", Moves: 10, ElapsedSeconds: 50},
	}, top)

	played, err := s.AlreadyPlayed(ctx, "p1", date)
	require.NoError(t, err)
	assert.True(t, played)
	played, err = s.AlreadyPlayed(ctx, "p4", date)
	require.NoError(t, err)
	assert.False(t, played)
}

func TestClaimAnon(t *testing.T) {
	s, conn := newStore(t)
	addUser(t, conn, "u1")
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, Result{GameID: "a", AnonymousID: "anon", Mode: ModeDaily, Date: "2026-05-03", Moves: 9, ElapsedSeconds: 33}))
	require.NoError(t, s.ClaimAnon(ctx, "anon", "u1"))

	mine, err := s.Mine(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", mine[0].GameID)

	played, err := s.AlreadyPlayed(ctx, "u1", "2026-05-03")
	require.NoError(t, err)
	assert.True(t, played)
	played, err = s.AlreadyPlayed(ctx, "anon", "2026-05-03")
	require.NoError(t, err)
	assert.False(t, played)
}
