package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/textnorm"
)

// SQLiteStorage implements Storage using SQLite.
// Every text field has a folded shadow column used by filter queries.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	memory := dbPath == ":memory:"
	if dir := filepath.Dir(dbPath); !memory && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS fatwas (
		fatwa_id INTEGER PRIMARY KEY,
		title_ar TEXT NOT NULL DEFAULT '',
		title_en TEXT NOT NULL DEFAULT '',
		question_ar TEXT NOT NULL DEFAULT '',
		question_en TEXT NOT NULL DEFAULT '',
		answer_ar TEXT NOT NULL DEFAULT '',
		answer_en TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		title_ar_f TEXT NOT NULL DEFAULT '',
		title_en_f TEXT NOT NULL DEFAULT '',
		question_ar_f TEXT NOT NULL DEFAULT '',
		question_en_f TEXT NOT NULL DEFAULT '',
		answer_ar_f TEXT NOT NULL DEFAULT '',
		answer_en_f TEXT NOT NULL DEFAULT '',
		category_f TEXT NOT NULL DEFAULT '',
		tags_f TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		is_embedded INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_fatwas_active ON fatwas(is_active);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		parent_id INTEGER,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS category_fatwas (
		category_id INTEGER NOT NULL,
		fatwa_id INTEGER NOT NULL,
		PRIMARY KEY (category_id, fatwa_id),
		FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

const fatwaColumns = `fatwa_id, title_ar, title_en, question_ar, question_en, answer_ar, answer_en,
	category, tags, is_active, is_embedded, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFatwa(row scanner) (*models.Fatwa, error) {
	var f models.Fatwa
	var tagsJSON string
	if err := row.Scan(&f.FatwaID, &f.TitleAr, &f.TitleEn, &f.QuestionAr, &f.QuestionEn,
		&f.AnswerAr, &f.AnswerEn, &f.Category, &tagsJSON, &f.IsActive, &f.IsEmbedded,
		&f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &f.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &f, nil
}

// UpsertFatwa inserts a fatwa or replaces the stored fields of an existing one.
// CreatedAt is kept on update.
func (s *SQLiteStorage) UpsertFatwa(ctx context.Context, f *models.Fatwa) error {
	if f.FatwaID <= 0 {
		return models.WrapError(models.ErrInvalidInput, "upsert fatwa", fmt.Errorf("fatwa_id must be positive, got %d", f.FatwaID))
	}
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fatwas (fatwa_id, title_ar, title_en, question_ar, question_en, answer_ar, answer_en,
			category, tags, title_ar_f, title_en_f, question_ar_f, question_en_f, answer_ar_f, answer_en_f,
			category_f, tags_f, is_active, is_embedded, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(fatwa_id) DO UPDATE SET
			title_ar = excluded.title_ar, title_en = excluded.title_en,
			question_ar = excluded.question_ar, question_en = excluded.question_en,
			answer_ar = excluded.answer_ar, answer_en = excluded.answer_en,
			category = excluded.category, tags = excluded.tags,
			title_ar_f = excluded.title_ar_f, title_en_f = excluded.title_en_f,
			question_ar_f = excluded.question_ar_f, question_en_f = excluded.question_en_f,
			answer_ar_f = excluded.answer_ar_f, answer_en_f = excluded.answer_en_f,
			category_f = excluded.category_f, tags_f = excluded.tags_f,
			is_active = excluded.is_active, is_embedded = excluded.is_embedded,
			updated_at = excluded.updated_at`,
		f.FatwaID, f.TitleAr, f.TitleEn, f.QuestionAr, f.QuestionEn, f.AnswerAr, f.AnswerEn,
		f.Category, string(tagsJSON),
		textnorm.Fold(f.TitleAr), textnorm.Fold(f.TitleEn),
		textnorm.Fold(f.QuestionAr), textnorm.Fold(f.QuestionEn),
		textnorm.Fold(f.AnswerAr), textnorm.Fold(f.AnswerEn),
		textnorm.Fold(f.Category), textnorm.Fold(strings.Join(f.Tags, " ")),
		f.IsActive, f.IsEmbedded, f.CreatedAt, f.UpdatedAt,
	)
	return err
}

// GetFatwa returns a fatwa by id, active or not.
func (s *SQLiteStorage) GetFatwa(ctx context.Context, id int64) (*models.Fatwa, error) {
	f, err := scanFatwa(s.db.QueryRowContext(ctx,
		`SELECT `+fatwaColumns+` FROM fatwas WHERE fatwa_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.WrapError(models.ErrNotFound, "get fatwa", fmt.Errorf("fatwa %d", id))
	}
	return f, err
}

// DeleteFatwa removes a fatwa and its category links.
func (s *SQLiteStorage) DeleteFatwa(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM fatwas WHERE fatwa_id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.WrapError(models.ErrNotFound, "delete fatwa", fmt.Errorf("fatwa %d", id))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_fatwas WHERE fatwa_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListFatwas returns fatwas ordered by id with offset and limit.
func (s *SQLiteStorage) ListFatwas(ctx context.Context, offset, limit int) ([]*models.Fatwa, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fatwaColumns+` FROM fatwas ORDER BY fatwa_id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return collectFatwas(rows)
}

// SetEmbedded records whether the fatwa's vectors are present in the vector indexes.
func (s *SQLiteStorage) SetEmbedded(ctx context.Context, id int64, embedded bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE fatwas SET is_embedded = ?, updated_at = ? WHERE fatwa_id = ?`,
		embedded, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.WrapError(models.ErrNotFound, "set embedded", fmt.Errorf("fatwa %d", id))
	}
	return nil
}

// Query returns up to limit active fatwas matching filter, ordered by id.
// A non-positive limit returns every match.
func (s *SQLiteStorage) Query(ctx context.Context, filter Filter, limit int) ([]*models.Fatwa, error) {
	where, args, err := filter.toSQL()
	if err != nil {
		return nil, models.WrapError(models.ErrInvalidInput, "query", err)
	}
	q := `SELECT ` + fatwaColumns + ` FROM fatwas WHERE is_active = 1 AND (` + where + `) ORDER BY fatwa_id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectFatwas(rows)
}

// QueryIDs is Query returning ids only.
func (s *SQLiteStorage) QueryIDs(ctx context.Context, filter Filter, limit int) ([]int64, error) {
	where, args, err := filter.toSQL()
	if err != nil {
		return nil, models.WrapError(models.ErrInvalidInput, "query ids", err)
	}
	q := `SELECT fatwa_id FROM fatwas WHERE is_active = 1 AND (` + where + `) ORDER BY fatwa_id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of active fatwas matching filter.
func (s *SQLiteStorage) Count(ctx context.Context, filter Filter) (int, error) {
	where, args, err := filter.toSQL()
	if err != nil {
		return 0, models.WrapError(models.ErrInvalidInput, "count", err)
	}
	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fatwas WHERE is_active = 1 AND (`+where+`)`, args...).Scan(&n)
	return n, err
}

// FetchByIDs returns the active fatwas among ids. Unknown ids are skipped.
func (s *SQLiteStorage) FetchByIDs(ctx context.Context, ids []int64) ([]*models.Fatwa, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fatwaColumns+` FROM fatwas WHERE is_active = 1 AND fatwa_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	return collectFatwas(rows)
}

func collectFatwas(rows *sql.Rows) ([]*models.Fatwa, error) {
	defer rows.Close()
	var out []*models.Fatwa
	for rows.Next() {
		f, err := scanFatwa(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertCategory inserts or replaces a category and its fatwa links.
func (s *SQLiteStorage) UpsertCategory(ctx context.Context, c *models.Category) error {
	if c.ID <= 0 {
		return models.WrapError(models.ErrInvalidInput, "upsert category", fmt.Errorf("id must be positive, got %d", c.ID))
	}
	if strings.TrimSpace(c.Title) == "" {
		return models.WrapError(models.ErrInvalidInput, "upsert category", errors.New("title is required"))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO categories (id, title, parent_id, description) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, parent_id = excluded.parent_id,
			description = excluded.description`,
		c.ID, c.Title, c.ParentID, c.Description); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_fatwas WHERE category_id = ?`, c.ID); err != nil {
		return err
	}
	if len(c.FatwaIDs) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO category_fatwas (category_id, fatwa_id) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range c.FatwaIDs {
			if _, err := stmt.ExecContext(ctx, c.ID, id); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetCategory returns a category with its fatwa ids.
func (s *SQLiteStorage) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	var parent sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, parent_id, description FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &parent, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.WrapError(models.ErrNotFound, "get category", fmt.Errorf("category %d", id))
	}
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.Int64
		c.ParentID = &p
	}
	links, err := s.categoryLinks(ctx, &c.ID)
	if err != nil {
		return nil, err
	}
	c.FatwaIDs = links[c.ID]
	return &c, nil
}

// ListCategories returns all categories ordered by id.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, parent_id, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var cats []*models.Category
	for rows.Next() {
		var c models.Category
		var parent sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Title, &parent, &c.Description); err != nil {
			rows.Close()
			return nil, err
		}
		if parent.Valid {
			p := parent.Int64
			c.ParentID = &p
		}
		cats = append(cats, &c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	links, err := s.categoryLinks(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range cats {
		c.FatwaIDs = links[c.ID]
	}
	return cats, nil
}

// categoryLinks loads fatwa ids per category, for one category when id is set.
func (s *SQLiteStorage) categoryLinks(ctx context.Context, id *int64) (map[int64][]int64, error) {
	q := `SELECT category_id, fatwa_id FROM category_fatwas`
	var args []any
	if id != nil {
		q += ` WHERE category_id = ?`
		args = append(args, *id)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY category_id, fatwa_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[int64][]int64)
	for rows.Next() {
		var cid, fid int64
		if err := rows.Scan(&cid, &fid); err != nil {
			return nil, err
		}
		links[cid] = append(links[cid], fid)
	}
	return links, rows.Err()
}

// CountFatwas returns the number of stored fatwas and how many are embedded.
func (s *SQLiteStorage) CountFatwas(ctx context.Context) (int64, int64, error) {
	var total, embedded sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(is_embedded) FROM fatwas`).Scan(&total, &embedded)
	return total.Int64, embedded.Int64, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
