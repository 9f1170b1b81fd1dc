package spacetraveling

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/eringen/spacetraveling/listing"
	"github.com/eringen/spacetraveling/post"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested snapshot does not exist.
var ErrNotFound = sql.ErrNoRows

const (
	tableSnapshots = "snapshots"

	kindPost    = "post"
	kindListing = "listing"

	snapshotFieldKind        = "kind"
	snapshotFieldSlug        = "slug"
	snapshotFieldTitle       = "title"
	snapshotFieldPayload     = "payload"
	snapshotFieldGeneratedAt = "generated_at"

	// fixed width so generated_at sorts as text
	snapshotTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store keeps the generated pages: resolved post details and the seeded
// listing, so a restarted server does not refetch everything.
type Store struct {
	db *sql.DB
}

// SnapshotInfo describes one stored post without its payload.
type SnapshotInfo struct {
	Slug        string
	Title       string
	GeneratedAt time.Time
}

type storedListing struct {
	Cursor *string        `json:"cursor"`
	Items  []post.Summary `json:"items"`
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and applies migrations.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// WAL lets readers proceed during a write; busy_timeout makes writers
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.ExecContext(ctx, `
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure store: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePost upserts the snapshot of a resolved post.
func (s *Store) SavePost(ctx context.Context, d post.Detail, at time.Time) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode post %q: %w", d.UID, err)
	}
	return s.save(ctx, kindPost, d.UID, d.Title, payload, at)
}

// GetPost returns a stored post and when it was generated.
func (s *Store) GetPost(ctx context.Context, slug string) (post.Detail, time.Time, error) {
	payload, at, err := s.get(ctx, kindPost, slug)
	if err != nil {
		return post.Detail{}, time.Time{}, err
	}
	var d post.Detail
	if err := json.Unmarshal(payload, &d); err != nil {
		return post.Detail{}, time.Time{}, fmt.Errorf("decode post %q: %w", slug, err)
	}
	return d, at, nil
}

// ListPosts returns every stored post, most recently generated first.
func (s *Store) ListPosts(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := sq.Select(snapshotFieldSlug, snapshotFieldTitle, snapshotFieldGeneratedAt).
		From(tableSnapshots).
		Where(sq.Eq{snapshotFieldKind: kindPost}).
		OrderBy(snapshotFieldGeneratedAt + " DESC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var at string
		if err := rows.Scan(&info.Slug, &info.Title, &at); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.GeneratedAt, err = time.Parse(snapshotTimeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("parse generated_at of %q: %w", info.Slug, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeletePost removes a post snapshot. Deleting a missing one is not an error.
func (s *Store) DeletePost(ctx context.Context, slug string) error {
	return s.delete(ctx, kindPost, slug)
}

// SaveListing stores the seeded listing.
func (s *Store) SaveListing(ctx context.Context, st listing.State, at time.Time) error {
	payload, err := json.Marshal(storedListing{Cursor: st.Cursor, Items: st.Items})
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}
	return s.save(ctx, kindListing, "", "", payload, at)
}

// GetListing returns the stored listing seed and when it was generated.
func (s *Store) GetListing(ctx context.Context) (listing.State, time.Time, error) {
	payload, at, err := s.get(ctx, kindListing, "")
	if err != nil {
		return listing.State{}, time.Time{}, err
	}
	var sl storedListing
	if err := json.Unmarshal(payload, &sl); err != nil {
		return listing.State{}, time.Time{}, fmt.Errorf("decode listing: %w", err)
	}
	return listing.State{Cursor: sl.Cursor, Items: sl.Items}, at, nil
}

// DeleteListing drops the stored listing seed.
func (s *Store) DeleteListing(ctx context.Context) error {
	return s.delete(ctx, kindListing, "")
}

func (s *Store) save(ctx context.Context, kind, slug, title string, payload []byte, at time.Time) error {
	_, err := sq.Replace(tableSnapshots).
		Columns(snapshotFieldKind, snapshotFieldSlug, snapshotFieldTitle, snapshotFieldPayload, snapshotFieldGeneratedAt).
		Values(kind, slug, title, string(payload), at.UTC().Format(snapshotTimeLayout)).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("save %s snapshot %q: %w", kind, slug, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, kind, slug string) ([]byte, time.Time, error) {
	var payload, at string
	err := sq.Select(snapshotFieldPayload, snapshotFieldGeneratedAt).
		From(tableSnapshots).
		Where(sq.Eq{snapshotFieldKind: kind, snapshotFieldSlug: slug}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&payload, &at)
	if err != nil {
		return nil, time.Time{}, err
	}
	generated, err := time.Parse(snapshotTimeLayout, at)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse generated_at of %q: %w", slug, err)
	}
	return []byte(payload), generated, nil
}

func (s *Store) delete(ctx context.Context, kind, slug string) error {
	_, err := sq.Delete(tableSnapshots).
		Where(sq.Eq{snapshotFieldKind: kind, snapshotFieldSlug: slug}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete %s snapshot %q: %w", kind, slug, err)
	}
	return nil
}
