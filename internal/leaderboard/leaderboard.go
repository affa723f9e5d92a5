// Package leaderboard publishes daily totals to the shared remote database and reads rankings
// back. Queries are written with ? placeholders and rebound for the connected driver.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
)

var (
	ErrDisabled      = errors.New("leaderboard is not configured")
	ErrUnknownPeriod = errors.New("unknown leaderboard period")
	ErrNotRanked     = errors.New("user has no steps in this period")
)

type Period string

const (
	PeriodYesterday Period = "yesterday"
	PeriodWeekly    Period = "weekly"
	PeriodAllTime   Period = "alltime"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodYesterday, PeriodWeekly, PeriodAllTime:
		return p, nil
	case "":
		return PeriodWeekly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Window returns the inclusive date range a period covers relative to today. All-time has no bounds.
func (p Period) Window(today string) (start, end string, err error) {
	switch p {
	case PeriodYesterday:
		yesterday, err := models.AddDays(today, -1)
		return yesterday, yesterday, err
	case PeriodWeekly:
		start, err := models.AddDays(today, -6)
		return start, today, err
	case PeriodAllTime:
		return "", "", nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnknownPeriod, string(p))
}

// Entry is one ranked user.
type Entry struct {
	Rank          int    `json:"rank" db:"-"`
	UserID        string `json:"userId" db:"user_id"`
	Username      string `json:"username" db:"username"`
	SelectedBadge *int   `json:"selectedBadge,omitempty" db:"selected_badge"`
	Steps         int64  `json:"steps" db:"total_steps"`
}

type Board struct {
	Period  Period  `json:"period"`
	Start   string  `json:"startDate,omitempty"`
	End     string  `json:"endDate,omitempty"`
	Entries []Entry `json:"entries"`
}

type Client struct {
	db  *sqlx.DB
	log *logger.Log
}

// Open connects to the remote Postgres database.
func Open(ctx context.Context, dsn string) (*Client, error) {
	if dsn == "" {
		return nil, ErrDisabled
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to leaderboard: %w", err)
	}
	return NewClient(db), nil
}

// NewClient wraps an existing connection; any driver with ON CONFLICT upserts works.
func NewClient(db *sqlx.DB) *Client {
	return &Client{db: db, log: logger.Named("leaderboard")}
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) EnsureSchema(ctx context.Context) error {
	stepsTable := `
	CREATE TABLE IF NOT EXISTS daily_steps (
		user_id TEXT NOT NULL,
		date DATE NOT NULL,
		steps INTEGER NOT NULL CHECK (steps >= 0),
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, date)
	)`

	profilesTable := `
	CREATE TABLE IF NOT EXISTS leaderboard_profiles (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		selected_badge INTEGER,
		updated_at TIMESTAMP NOT NULL
	)`

	for _, query := range []string{stepsTable, profilesTable} {
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create leaderboard table: %w", err)
		}
	}
	return nil
}

func (c *Client) UpsertDailySteps(ctx context.Context, userID, date string, steps int) error {
	query := c.db.Rebind(`
		INSERT INTO daily_steps (user_id, date, steps, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET steps = excluded.steps, updated_at = excluded.updated_at
	`)
	if _, err := c.db.ExecContext(ctx, query, userID, date, steps, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert daily steps for %s: %w", date, err)
	}
	return nil
}

func (c *Client) DeleteDailySteps(ctx context.Context, userID, date string) error {
	query := c.db.Rebind(`DELETE FROM daily_steps WHERE user_id = ? AND date = ?`)
	if _, err := c.db.ExecContext(ctx, query, userID, date); err != nil {
		return fmt.Errorf("failed to delete daily steps for %s: %w", date, err)
	}
	return nil
}

func (c *Client) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	query := c.db.Rebind(`
		INSERT INTO leaderboard_profiles (user_id, username, selected_badge, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			selected_badge = excluded.selected_badge,
			updated_at = excluded.updated_at
	`)
	if _, err := c.db.ExecContext(ctx, query, p.UserID, p.Username, p.SelectedBadge, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert leaderboard profile: %w", err)
	}
	return nil
}

// Rankings sums steps per user over the period, highest first. Users with equal totals share
// a rank. limit <= 0 returns everyone.
func (c *Client) Rankings(ctx context.Context, period Period, today string, limit int) (*Board, error) {
	start, end, err := period.Window(today)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT d.user_id, COALESCE(p.username, '') AS username, p.selected_badge, SUM(d.steps) AS total_steps
		FROM daily_steps d
		LEFT JOIN leaderboard_profiles p ON p.user_id = d.user_id`
	args := []any{}
	if period != PeriodAllTime {
		query += ` WHERE d.date >= ? AND d.date <= ?`
		args = append(args, start, end)
	}
	query += `
		GROUP BY d.user_id, p.username, p.selected_badge
		HAVING SUM(d.steps) > 0
		ORDER BY total_steps DESC, d.user_id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	entries := []Entry{}
	if err := c.db.SelectContext(ctx, &entries, c.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load %s rankings: %w", period, err)
	}
	assignRanks(entries)

	return &Board{Period: period, Start: start, End: end, Entries: entries}, nil
}

// RankOf returns one user's position in the full ranking.
func (c *Client) RankOf(ctx context.Context, userID string, period Period, today string) (*Entry, error) {
	board, err := c.Rankings(ctx, period, today, 0)
	if err != nil {
		return nil, err
	}
	for _, e := range board.Entries {
		if e.UserID == userID {
			entry := e
			return &entry, nil
		}
	}
	return nil, ErrNotRanked
}

func assignRanks(entries []Entry) {
	for i := range entries {
		if i > 0 && entries[i].Steps == entries[i-1].Steps {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}
