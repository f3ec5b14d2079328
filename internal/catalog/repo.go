package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"reviewhub/pkg/models"
)

var (
	ErrSlugTaken       = errors.New("slug already exists")
	ErrUnknownCategory = errors.New("unknown category slug")
	ErrUnknownGenre    = errors.New("unknown genre slug")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Categories and genres share the same shape, so both sets of methods
// delegate to slug-table helpers parameterized by table name. The table
// names are fixed constants, never caller input.

func (r *Repo) CreateCategory(ctx context.Context, name, slug string) error {
	return r.createNamed(ctx, "categories", name, slug)
}

func (r *Repo) CountCategories(ctx context.Context, search string) (int, error) {
	return r.countNamed(ctx, "categories", search)
}

func (r *Repo) ListCategories(ctx context.Context, search string, limit, offset int) ([]models.Category, error) {
	rows, err := r.listNamed(ctx, "categories", search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Category, 0, limit)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteCategory(ctx context.Context, slug string) (bool, error) {
	return r.deleteNamed(ctx, "categories", slug)
}

func (r *Repo) CreateGenre(ctx context.Context, name, slug string) error {
	return r.createNamed(ctx, "genres", name, slug)
}

func (r *Repo) CountGenres(ctx context.Context, search string) (int, error) {
	return r.countNamed(ctx, "genres", search)
}

func (r *Repo) ListGenres(ctx context.Context, search string, limit, offset int) ([]models.Genre, error) {
	rows, err := r.listNamed(ctx, "genres", search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Genre, 0, limit)
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.Name, &g.Slug); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteGenre(ctx context.Context, slug string) (bool, error) {
	return r.deleteNamed(ctx, "genres", slug)
}

func (r *Repo) createNamed(ctx context.Context, table, name, slug string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO `+table+` (name, slug) VALUES (?, ?)`,
		name, slug,
	)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (r *Repo) countNamed(ctx context.Context, table, search string) (int, error) {
	sqlStr := `SELECT COUNT(*) FROM ` + table
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		sqlStr += ` WHERE LOWER(name) LIKE ?`
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

func (r *Repo) listNamed(ctx context.Context, table, search string, limit, offset int) (*sql.Rows, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	sqlStr := `SELECT name, slug FROM ` + table
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		sqlStr += ` WHERE LOWER(name) LIKE ?`
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	sqlStr += ` ORDER BY id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return rows, nil
}

func (r *Repo) deleteNamed(ctx context.Context, table, slug string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM `+table+` WHERE slug = ?`, slug)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}
