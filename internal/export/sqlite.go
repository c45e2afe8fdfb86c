package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cifkit/cif"
	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteExporter stores documents in a SQLite database. Every exported
// document gets a fresh id; items and loop cells are stored one row per value.
type SQLiteExporter struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteExporter, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports single writer

	e := &SQLiteExporter{db: db}
	if err := e.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return e, nil
}

func (e *SQLiteExporter) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		exported_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		block TEXT NOT NULL,
		frame TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		tag TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT,
		number REAL,
		uncertainty TEXT
	);

	CREATE TABLE IF NOT EXISTS loop_values (
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		block TEXT NOT NULL,
		frame TEXT NOT NULL DEFAULT '',
		loop_index INTEGER NOT NULL,
		row_index INTEGER NOT NULL,
		tag TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT,
		number REAL,
		uncertainty TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_items_tag ON items(document_id, tag);
	CREATE INDEX IF NOT EXISTS idx_loop_values_tag ON loop_values(document_id, tag);
	`

	_, err := e.db.Exec(schema)
	return err
}

// Export writes doc under name in one transaction and returns its id.
func (e *SQLiteExporter) Export(ctx context.Context, name string, doc *cif.Document) (string, error) {
	id := uuid.NewString()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, name, exported_at) VALUES (?, ?, ?)`,
		id, name, time.Now().Unix()); err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	itemStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (document_id, block, frame, position, tag, kind, text, number, uncertainty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	loopStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO loop_values (document_id, block, frame, loop_index, row_index, tag, kind, text, number, uncertainty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare loop insert: %w", err)
	}
	defer loopStmt.Close()

	w := scopeWriter{ctx: ctx, id: id, items: itemStmt, loops: loopStmt}
	for _, b := range doc.Blocks() {
		if err := w.write(b.Name(), "", b); err != nil {
			return "", err
		}
		for _, f := range b.Frames() {
			if err := w.write(b.Name(), f.Name(), f); err != nil {
				return "", err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit export: %w", err)
	}
	return id, nil
}

// DB returns the underlying database handle.
func (e *SQLiteExporter) DB() *sql.DB {
	return e.db
}

// Close closes the database.
func (e *SQLiteExporter) Close() error {
	return e.db.Close()
}

type scopeWriter struct {
	ctx   context.Context
	id    string
	items *sql.Stmt
	loops *sql.Stmt
}

func (w scopeWriter) write(block, frame string, s cif.Scope) error {
	for i, item := range s.Items() {
		text, number, su := columns(item.Value)
		if _, err := w.items.ExecContext(w.ctx, w.id, block, frame, i, item.Tag,
			item.Value.TypeName(), text, number, su); err != nil {
			return fmt.Errorf("failed to insert item %s: %w", item.Tag, err)
		}
	}

	for li, l := range s.Loops() {
		tags := l.Tags()
		for r, row := range l.Rows() {
			for c, v := range row {
				text, number, su := columns(v)
				if _, err := w.loops.ExecContext(w.ctx, w.id, block, frame, li, r, tags[c],
					v.TypeName(), text, number, su); err != nil {
					return fmt.Errorf("failed to insert loop value %s row %d: %w", tags[c], r, err)
				}
			}
		}
	}
	return nil
}

// columns splits a value into the nullable text, number and uncertainty
// columns.
func columns(v cif.Value) (text, number, su any) {
	if s, ok := v.Text(); ok {
		return s, nil, nil
	}
	if f, ok := v.Float(); ok {
		if u, ok := v.Uncertainty(); ok {
			return nil, f, u
		}
		return nil, f, nil
	}
	return nil, nil, nil
}
