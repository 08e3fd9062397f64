// SQLite note store.
//
// Information Hiding:
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package vault

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sagevault/sage/model"
)

// SqliteVault implements Vault using SQLite.
type SqliteVault struct {
	db *sql.DB
}

// OpenSqlite opens or creates a vault database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteVault, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create vault directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault database: %w", err)
	}

	v := &SqliteVault{db: db}
	if err := v.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return v, nil
}

// NewSqliteInMemory creates an in-memory vault (useful for testing).
func NewSqliteInMemory() (*SqliteVault, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory vault: %w", err)
	}

	v := &SqliteVault{db: db}
	if err := v.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return v, nil
}

// Close closes the database connection.
func (v *SqliteVault) Close() error {
	return v.db.Close()
}

func (v *SqliteVault) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_notes_title
		ON notes(title COLLATE NOCASE);

		CREATE TABLE IF NOT EXISTS links (
			from_id TEXT NOT NULL,
			to_title TEXT NOT NULL,
			FOREIGN KEY (from_id) REFERENCES notes(id) ON DELETE CASCADE,
			UNIQUE(from_id, to_title)
		);

		CREATE INDEX IF NOT EXISTS idx_links_to
		ON links(to_title COLLATE NOCASE);
	`

	if _, err := v.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

var linkPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// ExtractLinks returns the wiki-link targets referenced by content.
func ExtractLinks(content string) []string {
	var links []string
	seen := make(map[string]bool)
	for _, match := range linkPattern.FindAllStringSubmatch(content, -1) {
		title := strings.TrimSpace(match[1])
		key := strings.ToLower(title)
		if title == "" || seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, title)
	}
	return links
}

// SaveNote upserts a note and refreshes its outgoing links.
// An empty ID gets a fresh uuid; UpdatedAt is stamped here.
func (v *SqliteVault) SaveNote(ctx context.Context, note model.Note) error {
	if note.Title == "" {
		return fmt.Errorf("note title must not be empty")
	}
	if note.ID == "" {
		note.ID = uuid.New().String()
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			updated_at = excluded.updated_at`,
		note.ID, note.Title, note.Content, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM links WHERE from_id = ?", note.ID); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}

	for _, target := range ExtractLinks(note.Content) {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO links (from_id, to_title) VALUES (?, ?)",
			note.ID, target)
		if err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit note: %w", err)
	}
	return nil
}

// GetNote fetches a note by ID.
func (v *SqliteVault) GetNote(ctx context.Context, id string) (*model.Note, error) {
	return v.getNote(ctx, "SELECT id, title, content, updated_at FROM notes WHERE id = ?", id)
}

// GetNoteByTitle fetches a note by exact title, case-insensitively.
func (v *SqliteVault) GetNoteByTitle(ctx context.Context, title string) (*model.Note, error) {
	return v.getNote(ctx,
		"SELECT id, title, content, updated_at FROM notes WHERE title = ? COLLATE NOCASE", title)
}

func (v *SqliteVault) getNote(ctx context.Context, query string, arg interface{}) (*model.Note, error) {
	var note model.Note
	var updatedAt int64

	err := v.db.QueryRowContext(ctx, query, arg).
		Scan(&note.ID, &note.Title, &note.Content, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch note: %w", err)
	}

	note.UpdatedAt = time.Unix(updatedAt, 0)
	note.Links = ExtractLinks(note.Content)
	return &note, nil
}

// ListNotes returns notes ordered by most recently updated.
func (v *SqliteVault) ListNotes(ctx context.Context, limit int) ([]model.Note, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := v.db.QueryContext(ctx,
		"SELECT id, title, content, updated_at FROM notes ORDER BY updated_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		var note model.Note
		var updatedAt int64
		if err := rows.Scan(&note.ID, &note.Title, &note.Content, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		note.UpdatedAt = time.Unix(updatedAt, 0)
		note.Links = ExtractLinks(note.Content)
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return notes, nil
}

// DeleteNote removes a note and its outgoing links.
func (v *SqliteVault) DeleteNote(ctx context.Context, id string) error {
	if _, err := v.db.ExecContext(ctx, "DELETE FROM links WHERE from_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}
	if _, err := v.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

// SearchKeyword scores every note by query-term overlap. A term hit in the
// title counts double. Scores are normalized to [0,1] by the term count.
func (v *SqliteVault) SearchKeyword(ctx context.Context, query string, limit int) ([]Hit, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := v.db.QueryContext(ctx, "SELECT id, title, content FROM notes")
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var id, title, content string
		if err := rows.Scan(&id, &title, &content); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}

		titleLower := strings.ToLower(title)
		contentLower := strings.ToLower(content)

		matched := 0.0
		for _, term := range terms {
			switch {
			case strings.Contains(titleLower, term):
				matched += 2
			case strings.Contains(contentLower, term):
				matched += 1
			}
		}
		if matched == 0 {
			continue
		}

		score := matched / float64(2*len(terms))
		if score > 1 {
			score = 1
		}
		hits = append(hits, Hit{NoteID: id, Title: title, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// graphDecay controls how fast graph scores fall off with hop distance.
const graphDecay = 0.5

// maxGraphDepth bounds the link walk.
const maxGraphDepth = 2

// SearchGraph finds seed notes whose titles match a query term, then walks
// outgoing and incoming wiki-links up to maxGraphDepth hops. Seeds score
// 1.0; each hop multiplies by graphDecay.
func (v *SqliteVault) SearchGraph(ctx context.Context, query string, limit int) ([]Hit, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	seeds, err := v.seedNotes(ctx, terms)
	if err != nil {
		return nil, err
	}

	best := make(map[string]float64) // note id -> best score
	titles := make(map[string]string)
	frontier := make([]string, 0, len(seeds))

	for id, title := range seeds {
		best[id] = 1.0
		titles[id] = title
		frontier = append(frontier, id)
	}

	score := 1.0
	for depth := 1; depth <= maxGraphDepth && len(frontier) > 0; depth++ {
		score *= graphDecay

		next := []string{}
		for _, id := range frontier {
			neighbors, err := v.neighbors(ctx, id, titles[id])
			if err != nil {
				return nil, err
			}
			for nid, ntitle := range neighbors {
				if _, seen := best[nid]; seen {
					continue
				}
				best[nid] = score
				titles[nid] = ntitle
				next = append(next, nid)
			}
		}
		frontier = next
	}

	hits := make([]Hit, 0, len(best))
	for id, s := range best {
		hits = append(hits, Hit{NoteID: id, Title: titles[id], Score: s})
	}

	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// seedNotes returns notes whose title contains any query term.
func (v *SqliteVault) seedNotes(ctx context.Context, terms []string) (map[string]string, error) {
	seeds := make(map[string]string)
	for _, term := range terms {
		rows, err := v.db.QueryContext(ctx,
			"SELECT id, title FROM notes WHERE title LIKE ? COLLATE NOCASE",
			"%"+term+"%")
		if err != nil {
			return nil, fmt.Errorf("graph seed query failed: %w", err)
		}
		for rows.Next() {
			var id, title string
			if err := rows.Scan(&id, &title); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan seed: %w", err)
			}
			seeds[id] = title
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error iterating seeds: %w", err)
		}
		rows.Close()
	}
	return seeds, nil
}

// neighbors returns notes one link away in either direction.
func (v *SqliteVault) neighbors(ctx context.Context, id, title string) (map[string]string, error) {
	out := make(map[string]string)

	// outgoing: notes whose title this note links to
	rows, err := v.db.QueryContext(ctx, `
		SELECT n.id, n.title FROM links l
		JOIN notes n ON n.title = l.to_title COLLATE NOCASE
		WHERE l.from_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("outgoing link query failed: %w", err)
	}
	if err := collectIDTitle(rows, out); err != nil {
		return nil, err
	}

	// incoming: notes that link to this note's title
	rows, err = v.db.QueryContext(ctx, `
		SELECT n.id, n.title FROM links l
		JOIN notes n ON n.id = l.from_id
		WHERE l.to_title = ? COLLATE NOCASE`, title)
	if err != nil {
		return nil, fmt.Errorf("incoming link query failed: %w", err)
	}
	if err := collectIDTitle(rows, out); err != nil {
		return nil, err
	}

	return out, nil
}

func collectIDTitle(rows *sql.Rows, out map[string]string) error {
	defer rows.Close()
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return fmt.Errorf("failed to scan link row: %w", err)
		}
		out[id] = title
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating link rows: %w", err)
	}
	return nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// sortHits orders by score descending, then title for determinism.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Title < hits[j].Title
	})
}

var _ Vault = (*SqliteVault)(nil)
