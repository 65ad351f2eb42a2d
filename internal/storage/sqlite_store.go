package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"go-page-builder/internal/model"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore keeps pages and their revisions in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// applySchema sets connection pragmas and creates the tables.
func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Pragmas such as foreign_keys are per connection.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Save upserts the page row and inserts the next revision in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *model.Snapshot) (model.Revision, error) {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return model.Revision{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Revision{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) FROM page_revisions WHERE page_id = ?`, snap.PageID,
	).Scan(&last); err != nil {
		return model.Revision{}, fmt.Errorf("failed to read revisions of page %s: %w", snap.PageID, err)
	}
	rev := model.Revision{
		PageID:  snap.PageID,
		Number:  last + 1,
		Title:   snap.Metadata.Title,
		SavedAt: s.now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (id, title, author, components, updated_at, revisions, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			components = excluded.components,
			updated_at = excluded.updated_at,
			revisions = excluded.revisions,
			data = excluded.data`,
		snap.PageID, snap.Metadata.Title, snap.Metadata.Author, len(snap.Components),
		snap.Metadata.UpdatedAt.UnixNano(), rev.Number, string(data))
	if err != nil {
		return model.Revision{}, fmt.Errorf("failed to upsert page %s: %w", snap.PageID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO page_revisions (page_id, number, title, saved_at, data) VALUES (?, ?, ?, ?, ?)`,
		rev.PageID, rev.Number, rev.Title, rev.SavedAt.UnixNano(), string(data))
	if err != nil {
		return model.Revision{}, fmt.Errorf("failed to insert revision %d of page %s: %w", rev.Number, snap.PageID, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Revision{}, fmt.Errorf("failed to commit page %s: %w", snap.PageID, err)
	}
	return rev, nil
}

// Load reads the latest version of a page.
func (s *SQLiteStore) Load(ctx context.Context, pageID string) (*model.Snapshot, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM pages WHERE id = ?`, pageID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load page %s: %w", pageID, err)
	}
	return decodeSnapshot(pageID, []byte(data))
}

// List reads the summary columns of every page.
func (s *SQLiteStore) List(ctx context.Context) ([]model.PageSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, author, components, updated_at, revisions
		FROM pages
		ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	out := []model.PageSummary{}
	for rows.Next() {
		var (
			sum     model.PageSummary
			updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Author, &sum.Components, &updated, &sum.Revisions); err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		sum.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a page and its revisions.
func (s *SQLiteStore) Delete(ctx context.Context, pageID string) error {
	if err := checkPageID(pageID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_revisions WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("failed to delete revisions of page %s: %w", pageID, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, pageID)
	if err != nil {
		return fmt.Errorf("failed to delete page %s: %w", pageID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
	}
	return tx.Commit()
}

// ListRevisions reads the revision headers of a page, oldest first.
func (s *SQLiteStore) ListRevisions(ctx context.Context, pageID string) ([]model.Revision, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM pages WHERE id = ?`, pageID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up page %s: %w", pageID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT number, title, saved_at FROM page_revisions WHERE page_id = ? ORDER BY number ASC`, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions of page %s: %w", pageID, err)
	}
	defer rows.Close()

	out := []model.Revision{}
	for rows.Next() {
		rev := model.Revision{PageID: pageID}
		var saved int64
		if err := rows.Scan(&rev.Number, &rev.Title, &saved); err != nil {
			return nil, fmt.Errorf("failed to scan revision row: %w", err)
		}
		rev.SavedAt = time.Unix(0, saved).UTC()
		out = append(out, rev)
	}
	return out, rows.Err()
}

// LoadRevision reads one saved version of a page.
func (s *SQLiteStore) LoadRevision(ctx context.Context, pageID string, number int) (*model.Snapshot, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM page_revisions WHERE page_id = ? AND number = ?`, pageID, number).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s revision %d: %w", pageID, number, ErrRevisionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load revision %d of page %s: %w", number, pageID, err)
	}
	return decodeSnapshot(pageID, []byte(data))
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
