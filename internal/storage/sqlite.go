package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "chanpost/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Store wraps the sqlite posts database. All writes are single statements
// scoped to one id; concurrency control is the conditional WHERE clause,
// never application-side locking.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage: path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreatePost persists a draft with status=scheduled and returns the new id.
func (s *Store) CreatePost(ctx context.Context, d Draft) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts(owner_id, channel_id, channel_title, body, media_ref, media_kind, scheduled_at, status, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		d.OwnerID, d.ChannelID, d.ChannelTitle, d.Body,
		nullStr(d.MediaRef), nullStr(string(d.MediaKind)),
		d.ScheduledAt.UTC().Format(time.RFC3339Nano),
		string(StatusScheduled),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPost returns the record for id, or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id int64) (PostRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, channel_id, channel_title, body, media_ref, media_kind, scheduled_at, status, message_id, created_at
		 FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// UpdateStatus performs the conditional transition from -> to for id and
// returns the number of affected rows. Zero means the post was missing or no
// longer in the expected status; the caller must not assume the transition
// happened and must not retry the send.
func (s *Store) UpdateStatus(ctx context.Context, id int64, from, to Status, messageID int64) (int64, error) {
	var msg any
	if messageID != 0 {
		msg = messageID
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET status = ?, message_id = ? WHERE id = ? AND status = ?`,
		string(to), msg, id, string(from),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByOwner returns the owner's posts, newest first. Feeds the (out of
// scope) history UI. Ordered by id: rowids are monotonic with creation and,
// unlike the RFC3339Nano text column, compare correctly in SQL.
func (s *Store) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]PostRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, channel_id, channel_title, body, media_ref, media_kind, scheduled_at, status, message_id, created_at
		 FROM posts WHERE owner_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// ListScheduled returns every post still in the scheduled state, soonest
// first. Used by the startup reconciliation pass and the consistency sweep.
func (s *Store) ListScheduled(ctx context.Context) ([]PostRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, channel_id, channel_title, body, media_ref, media_kind, scheduled_at, status, message_id, created_at
		 FROM posts WHERE status = ? ORDER BY scheduled_at ASC`,
		string(StatusScheduled))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (PostRecord, error) {
	var (
		p            PostRecord
		mediaRef     sql.NullString
		mediaKind    sql.NullString
		messageID    sql.NullInt64
		scheduledRaw string
		createdRaw   string
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.ChannelID, &p.ChannelTitle, &p.Body,
		&mediaRef, &mediaKind, &scheduledRaw, &p.Status, &messageID, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return PostRecord{}, ErrNotFound
	}
	if err != nil {
		return PostRecord{}, err
	}
	p.MediaRef = mediaRef.String
	p.MediaKind = MediaKind(mediaKind.String)
	p.MessageID = messageID.Int64
	if p.ScheduledAt, err = time.Parse(time.RFC3339Nano, scheduledRaw); err != nil {
		return PostRecord{}, fmt.Errorf("storage: bad scheduled_at for post %d: %w", p.ID, err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
		return PostRecord{}, fmt.Errorf("storage: bad created_at for post %d: %w", p.ID, err)
	}
	return p, nil
}

func scanPosts(rows *sql.Rows) ([]PostRecord, error) {
	var out []PostRecord
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
