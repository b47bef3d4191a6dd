package library

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases are rebuilt by the next index run.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNoAlbum indicates no indexed album satisfies the request.
var ErrNoAlbum = errors.New("no album available")

// AlbumInfo summarizes one indexed album.
type AlbumInfo struct {
	Name       string
	PhotoCount int
	IndexedAt  time.Time
}

// PhotoInfo is one indexed image with its probed dimensions. File is the
// path relative to the library root.
type PhotoInfo struct {
	File   string
	Width  int
	Height int
}

// Index is the SQLite-backed photo library catalog the collaborator serves
// albums from.
type Index struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the library database.
func Open(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	idx := &Index{db: db, path: dbPath}
	if err := idx.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

// Close closes the underlying database connection.
func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	return x.db.Close()
}

// Path returns the database file path.
func (x *Index) Path() string { return x.path }

func (x *Index) initSchema(ctx context.Context) error {
	var tableExists int
	err := x.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return x.createSchema(ctx)
	}

	var version int
	err = x.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the database and re-index)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (x *Index) createSchema(ctx context.Context) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Replace swaps the catalog contents for a fresh scan result in one
// transaction.
func (x *Index) Replace(ctx context.Context, albums map[string][]PhotoInfo) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM albums"); err != nil {
		return fmt.Errorf("clear albums: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for name, photos := range albums {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO albums (name, photo_count, indexed_at) VALUES (?, ?, ?)",
			name, len(photos), now,
		)
		if err != nil {
			return fmt.Errorf("insert album %s: %w", name, err)
		}
		albumID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("album id: %w", err)
		}
		for _, p := range photos {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO photos (album_id, file, width, height) VALUES (?, ?, ?, ?)",
				albumID, p.File, p.Width, p.Height,
			); err != nil {
				return fmt.Errorf("insert photo %s: %w", p.File, err)
			}
		}
	}
	return tx.Commit()
}

// Albums lists every indexed album.
func (x *Index) Albums(ctx context.Context) ([]AlbumInfo, error) {
	rows, err := x.db.QueryContext(ctx,
		"SELECT name, photo_count, indexed_at FROM albums ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	var out []AlbumInfo
	for rows.Next() {
		var info AlbumInfo
		var indexedAt string
		if err := rows.Scan(&info.Name, &info.PhotoCount, &indexedAt); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, indexedAt); parseErr == nil {
			info.IndexedAt = ts
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// RandomAlbum draws a random album holding at least minPhotos images,
// preferring one different from avoid. The avoidance is best-effort: a
// single-album library serves the same album again.
func (x *Index) RandomAlbum(ctx context.Context, minPhotos int, avoid string) (string, error) {
	var name string
	err := x.db.QueryRowContext(ctx,
		"SELECT name FROM albums WHERE photo_count >= ? AND name != ? ORDER BY RANDOM() LIMIT 1",
		minPhotos, avoid,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		err = x.db.QueryRowContext(ctx,
			"SELECT name FROM albums WHERE photo_count >= ? ORDER BY RANDOM() LIMIT 1",
			minPhotos,
		).Scan(&name)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoAlbum
	}
	if err != nil {
		return "", fmt.Errorf("draw album: %w", err)
	}
	return name, nil
}

// RandomPhotos draws up to count random photos from the named album.
func (x *Index) RandomPhotos(ctx context.Context, albumName string, count int) ([]PhotoInfo, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT p.file, p.width, p.height
         FROM photos p JOIN albums a ON a.id = p.album_id
         WHERE a.name = ? ORDER BY RANDOM() LIMIT ?`,
		albumName, count,
	)
	if err != nil {
		return nil, fmt.Errorf("draw photos: %w", err)
	}
	defer rows.Close()

	var out []PhotoInfo
	for rows.Next() {
		var p PhotoInfo
		if err := rows.Scan(&p.File, &p.Width, &p.Height); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Lookup returns the indexed record for one file, or nil when unknown.
func (x *Index) Lookup(ctx context.Context, file string) (*PhotoInfo, error) {
	var p PhotoInfo
	err := x.db.QueryRowContext(ctx,
		"SELECT file, width, height FROM photos WHERE file = ? LIMIT 1",
		file,
	).Scan(&p.File, &p.Width, &p.Height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup photo: %w", err)
	}
	return &p, nil
}
