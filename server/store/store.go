package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   Sessions
------------------------------*/

type Session struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Decisions int        `json:"decisions"`
}

func (db *DB) CreateSession(ctx context.Context, id string) error {
	_, err := db.Exec(ctx, `
        INSERT INTO sessions(id) VALUES ($1)
        ON CONFLICT (id) DO NOTHING
    `, id)
	return err
}

func (db *DB) EndSession(ctx context.Context, id string) error {
	_, err := db.Exec(ctx, `
        UPDATE sessions SET ended_at = now() WHERE id = $1 AND ended_at IS NULL
    `, id)
	return err
}

func (db *DB) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
        SELECT s.id, s.started_at, s.ended_at, count(d.id)
          FROM sessions s
          LEFT JOIN decisions d ON d.session_id = s.id
         GROUP BY s.id
         ORDER BY s.started_at DESC
         LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.EndedAt, &s.Decisions); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionExists reports whether the id is known.
func (db *DB) SessionExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := db.QueryRow(ctx, `SELECT 1 FROM sessions WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

/* -----------------------------
   Decisions
------------------------------*/

type Decision struct {
	ID                  int64             `json:"id"`
	SessionID           string            `json:"session_id"`
	Phase               string            `json:"phase"`
	Kind                string            `json:"kind"`
	Display             string            `json:"display"`
	Fields              map[string]string `json:"fields,omitempty"`
	WaitingStreak       int               `json:"waiting_streak"`
	ActingStreak        int               `json:"acting_streak"`
	PixelOverrideStreak int               `json:"pixel_override_streak"`
	PixelConfidence     string            `json:"pixel_confidence"`
	PixelDensity        float64           `json:"pixel_density"`
	CreatedAt           time.Time         `json:"created_at"`
}

func (db *DB) InsertDecision(ctx context.Context, d Decision) (int64, error) {
	fields := []byte("{}")
	if len(d.Fields) > 0 {
		b, err := json.Marshal(d.Fields)
		if err != nil {
			return 0, err
		}
		fields = b
	}
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO decisions(
            session_id, phase, kind, display, fields,
            waiting_streak, acting_streak, pixel_override_streak,
            pixel_confidence, pixel_density
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id
    `, d.SessionID, d.Phase, d.Kind, d.Display, fields,
		d.WaitingStreak, d.ActingStreak, d.PixelOverrideStreak,
		d.PixelConfidence, d.PixelDensity).Scan(&id)
	return id, err
}

func (db *DB) ListDecisions(ctx context.Context, sessionID string, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.Query(ctx, `
        SELECT id, session_id, phase, kind, display, fields,
               waiting_streak, acting_streak, pixel_override_streak,
               pixel_confidence, pixel_density, created_at
          FROM decisions
         WHERE session_id = $1
         ORDER BY id ASC
         LIMIT $2
    `, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var fields []byte
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Phase, &d.Kind, &d.Display, &fields,
			&d.WaitingStreak, &d.ActingStreak, &d.PixelOverrideStreak,
			&d.PixelConfidence, &d.PixelDensity, &d.CreatedAt); err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &d.Fields); err != nil {
				return nil, err
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LastDecision returns the newest decision for a session, or nil.
func (db *DB) LastDecision(ctx context.Context, sessionID string) (*Decision, error) {
	rows, err := db.Query(ctx, `
        SELECT id, session_id, phase, kind, display, fields,
               waiting_streak, acting_streak, pixel_override_streak,
               pixel_confidence, pixel_density, created_at
          FROM decisions
         WHERE session_id = $1
         ORDER BY id DESC
         LIMIT 1
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var d Decision
	var fields []byte
	if err := rows.Scan(&d.ID, &d.SessionID, &d.Phase, &d.Kind, &d.Display, &fields,
		&d.WaitingStreak, &d.ActingStreak, &d.PixelOverrideStreak,
		&d.PixelConfidence, &d.PixelDensity, &d.CreatedAt); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &d.Fields); err != nil {
			return nil, err
		}
	}
	return &d, nil
}
