// internal/results/store.go
//
// SQLite persistence for finished games.
//   - results:       every won game, owned by a user or an anonymous cookie id.
//   - daily_results: first daily win per owner per date (UNIQUE(owner_id, date)).
//
// Only completed games are stored; games in progress live in memory only.

package results

import (
	"context"
	"database/sql"
	"time"
)

// Mode values.
const (
	ModeNormal = "normal"
	ModeDaily  = "daily"
)

// Result is one won game.
type Result struct {
	GameID         string    `json:"gameId"`
	UserID         string    `json:"-"`
	AnonymousID    string    `json:"-"`
	Mode           string    `json:"mode"`
	Date           string    `json:"date"`
	Moves          int       `json:"moves"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// Owner returns the user id if set, otherwise the anonymous id.
func (r Result) Owner() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.AnonymousID
}

// LBRow is one daily leaderboard entry.
type LBRow struct {
	OwnerID        string `json:"ownerId"`
	Moves          int    `json:"moves"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
}

// Stats aggregates a user's results.
type Stats struct {
	GamesWon     int `json:"gamesWon"`
	BestMoves    int `json:"bestMoves"`
	BestSeconds  int `json:"bestSeconds"`
	AverageMoves int `json:"averageMoves"`
	TotalSeconds int `json:"totalSeconds"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert records a won game. Daily games are also offered to the daily
// board; a second daily win on the same date is ignored there.
func (s *Store) Insert(ctx context.Context, r Result) error {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO results
            (game_id, user_id, anonymous_id, mode, date, moves, elapsed_seconds, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.GameID, nullable(r.UserID), nullable(r.AnonymousID), r.Mode, r.Date,
		r.Moves, r.ElapsedSeconds, r.FinishedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}

	if r.Mode == ModeDaily {
		if _, err := tx.ExecContext(ctx, `
            INSERT OR IGNORE INTO daily_results (owner_id, date, moves, elapsed_seconds)
            VALUES (?, ?, ?, ?)`,
			r.Owner(), r.Date, r.Moves, r.ElapsedSeconds,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AlreadyPlayed reports whether owner already has a daily result for date.
func (s *Store) AlreadyPlayed(ctx context.Context, ownerID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE owner_id=? AND date=?`,
		ownerID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// Leaderboard returns the best daily results for date: fewest moves, then
// fastest, then earliest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT owner_id, moves, elapsed_seconds
        FROM daily_results
        WHERE date=?
        ORDER BY moves ASC, elapsed_seconds ASC, created_at ASC
        LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.OwnerID, &r.Moves, &r.ElapsedSeconds); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Mine lists a user's most recent results.
func (s *Store) Mine(ctx context.Context, userID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT game_id, mode, date, moves, elapsed_seconds, finished_at
        FROM results
        WHERE user_id=?
        ORDER BY finished_at DESC, id DESC
        LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var r Result
		var finished string
		if err := rows.Scan(&r.GameID, &r.Mode, &r.Date, &r.Moves, &r.ElapsedSeconds, &finished); err != nil {
			return nil, err
		}
		r.UserID = userID
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatsFor aggregates a user's results.
func (s *Store) StatsFor(ctx context.Context, userID string) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(*),
               COALESCE(MIN(moves), 0),
               COALESCE(MIN(elapsed_seconds), 0),
               COALESCE(CAST(ROUND(AVG(moves)) AS INTEGER), 0),
               COALESCE(SUM(elapsed_seconds), 0)
        FROM results WHERE user_id=?`, userID,
	).Scan(&st.GamesWon, &st.BestMoves, &st.BestSeconds, &st.AverageMoves, &st.TotalSeconds)
	return st, err
}

// ClaimAnon transfers anonymous results (and daily entries) to a user.
func (s *Store) ClaimAnon(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE results SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID); err != nil {
		return err
	}
	// OR IGNORE keeps the user's own entry if both played the same day.
	if _, err := tx.ExecContext(ctx,
		`UPDATE OR IGNORE daily_results SET owner_id=? WHERE owner_id=?`, userID, anonID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_results WHERE owner_id=?`, anonID); err != nil {
		return err
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
