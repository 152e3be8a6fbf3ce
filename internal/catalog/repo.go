package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/grimoire/internal/apperr"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path     string    `json:"path"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Checksum string    `json:"checksum,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	BuiltAt  time.Time `json:"built_at"`
}

// Entry is one generated page: its row, plain-text body and the site paths
// of the pages it links to.
type Entry struct {
	Row   NoteRow
	Body  string
	Links []string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ReplaceAll empties the catalog and loads entries in a single transaction.
func (db *DB) ReplaceAll(entries []Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return fmt.Errorf("catalog: clear links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes`); err != nil {
		return fmt.Errorf("catalog: clear notes: %w", err)
	}
	if err := ftsClear(tx); err != nil {
		return err
	}
	for _, e := range entries {
		if err := upsert(tx, e.Row, e.Body, e.Links); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsert(tx *sql.Tx, n NoteRow, body string, links []string) error {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	if n.BuiltAt.IsZero() {
		n.BuiltAt = time.Now().UTC()
	}

	_, err := tx.Exec(`
		INSERT INTO notes (path, title, category, checksum, tags, body, built_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title    = excluded.title,
			category = excluded.category,
			checksum = excluded.checksum,
			tags     = excluded.tags,
			body     = excluded.body,
			built_at = excluded.built_at
	`, n.Path, n.Title, n.Category, n.Checksum, string(tagsJSON), body, n.BuiltAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert note: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.Path, n.Title, body, n.Tags); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("catalog: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(n.Path, target); err != nil {
				return fmt.Errorf("catalog: insert link: %w", err)
			}
		}
	}
	return nil
}

// GetNote returns the row stored for path, or apperr.ErrNotFound.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	var (
		n        NoteRow
		tagsJSON string
	)
	err := db.conn.QueryRow(`
		SELECT path, title, category, checksum, tags, built_at
		FROM notes WHERE path = ?
	`, path).Scan(&n.Path, &n.Title, &n.Category, &n.Checksum, &tagsJSON, &n.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: note %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get note: %w", err)
	}
	_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
	return &n, nil
}

// Backlinks returns the notes that link to the given target path, ordered by
// title.
func (db *DB) Backlinks(target string) ([]NoteRow, error) {
	rows, err := db.conn.Query(`
		SELECT n.path, n.title, n.category
		FROM links l JOIN notes n ON n.path = l.source
		WHERE l.target = ?
		ORDER BY n.title, n.path
	`, target)
	if err != nil {
		return nil, fmt.Errorf("catalog: backlinks: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var n NoteRow
		if err := rows.Scan(&n.Path, &n.Title, &n.Category); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Count returns the number of cataloged notes.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count: %w", err)
	}
	return n, nil
}
