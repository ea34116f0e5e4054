package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// dbFileName is the ledger's SQLite file inside the data directory.
const dbFileName = "downloads.db"

// Download is one row in the ledger.
type Download struct {
	// ID is assigned by the database.
	ID int64

	// URL is the source of the download.
	URL string

	// Filename is the name suggested by the server or derived from the URL.
	Filename string

	// Dir is the directory the file was saved to.
	Dir string

	// StartedAt is when the engine began the download.
	StartedAt time.Time
}

// Ledger provides SQLite-backed storage for download records.
//
// Design decision: one database file under the XDG data directory rather
// than a sidecar file per download directory. The ledger outlives changes
// to the download_dir setting, and clear-on-exit has exactly one file's
// worth of rows to delete.
type Ledger struct {
	db     *sql.DB
	dbPath string
}

// Options configures Ledger behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if absent.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended; the ledger is
	// written from the download event callback while the UI reads it.
	EnableWAL bool
}

// DefaultOptions returns the default ledger options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the ledger in the given directory.
func Open(dir string, opts Options) (*Ledger, error) {
	dbPath := filepath.Join(dir, dbFileName)

	var dsn string
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("downloads ledger not found at %s: %w", dbPath, err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open downloads ledger: %w", err)
	}

	// SQLite supports a single writer; more connections buy nothing here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := l.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}

	return l, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Path returns the location of the ledger file.
func (l *Ledger) Path() string {
	return l.dbPath
}

// createSchema creates the downloads table if it does not exist.
func (l *Ledger) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		filename TEXT NOT NULL,
		dir TEXT NOT NULL,
		started_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_started_at ON downloads(started_at);
	`
	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// Record appends a download to the ledger and returns it with its ID set.
func (l *Ledger) Record(ctx context.Context, d Download) (Download, error) {
	if d.StartedAt.IsZero() {
		d.StartedAt = time.Now().UTC()
	}

	res, err := l.db.ExecContext(ctx,
		"INSERT INTO downloads (url, filename, dir, started_at) VALUES (?, ?, ?, ?)",
		d.URL, d.Filename, d.Dir, d.StartedAt,
	)
	if err != nil {
		return Download{}, fmt.Errorf("failed to record download: %w", err)
	}

	d.ID, err = res.LastInsertId()
	if err != nil {
		return Download{}, fmt.Errorf("failed to read download id: %w", err)
	}
	return d, nil
}

// List returns the most recent downloads, newest first, up to limit.
// A limit of 0 returns everything.
func (l *Ledger) List(ctx context.Context, limit int) ([]Download, error) {
	query := "SELECT id, url, filename, dir, started_at FROM downloads ORDER BY started_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	var downloads []Download
	for rows.Next() {
		var d Download
		if err := rows.Scan(&d.ID, &d.URL, &d.Filename, &d.Dir, &d.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download row: %w", err)
		}
		downloads = append(downloads, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate downloads: %w", err)
	}
	return downloads, nil
}

// Clear deletes every download record. Used by clear-on-exit.
func (l *Ledger) Clear(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM downloads"); err != nil {
		return fmt.Errorf("failed to clear downloads: %w", err)
	}
	return nil
}
