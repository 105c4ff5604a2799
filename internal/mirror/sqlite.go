package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brogergvhs/mangacat/internal/catalog"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS stories (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	title       TEXT NOT NULL,
	author      TEXT NOT NULL,
	description TEXT NOT NULL,
	thumbnail   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chapters (
	story_id TEXT NOT NULL REFERENCES stories(id),
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	images   TEXT NOT NULL,
	PRIMARY KEY (story_id, name)
);
`

// SQLite mirrors the catalog into two tables. Rows are only ever inserted,
// the same way merges only ever append.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, stmt := range []string{`PRAGMA foreign_keys = ON;`, schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Sync(ctx context.Context, stories []catalog.Story) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	storyStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO stories
		(id, position, title, author, description, thumbnail) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer storyStmt.Close()

	chapterStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO chapters
		(story_id, position, name, images) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer chapterStmt.Close()

	for i, st := range stories {
		if _, err := storyStmt.ExecContext(ctx, st.ID, i, st.Title, st.Author, st.Description, st.Thumbnail); err != nil {
			return fmt.Errorf("story %s: %w", st.ID, err)
		}

		for j, ch := range st.Chapters {
			images, err := json.Marshal(ch.Images)
			if err != nil {
				return err
			}
			if _, err := chapterStmt.ExecContext(ctx, st.ID, j, ch.Name, string(images)); err != nil {
				return fmt.Errorf("story %s chapter %q: %w", st.ID, ch.Name, err)
			}
		}
	}

	return tx.Commit()
}

// Counts reports how many stories and chapters the mirror holds.
func (s *SQLite) Counts(ctx context.Context) (stories, chapters int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM stories), (SELECT COUNT(*) FROM chapters)`).
		Scan(&stories, &chapters)
	return stories, chapters, err
}

func (s *SQLite) Close(context.Context) error {
	return s.db.Close()
}
