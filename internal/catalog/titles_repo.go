package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"reviewhub/pkg/models"
)

type TitleFilter struct {
	Category string // category slug
	Genre    string // genre slug
	Name     string // substring match
	Year     int    // exact match; 0 means no filter
	Limit    int
	Offset   int
}

// TitlePatch carries the fields of a partial title update. Nil means
// "leave unchanged".
type TitlePatch struct {
	Name         *string
	Year         *int
	Description  *string
	CategorySlug *string
	GenreSlugs   *[]string
}

// titleSelect computes the rating inline on every read: the integer-truncated
// mean of the title's review scores, NULL when the title has no reviews.
const titleSelect = `
	SELECT t.id, t.name, t.year, t.description, c.name, c.slug,
	       (SELECT CAST(AVG(r.score) AS INTEGER) FROM reviews r WHERE r.title_id = t.id) AS rating
	FROM titles t
	LEFT JOIN categories c ON c.id = t.category_id
`

func scanTitle(row interface{ Scan(...any) error }) (*models.Title, error) {
	var (
		t            models.Title
		categoryName sql.NullString
		categorySlug sql.NullString
		rating       sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Year, &t.Description, &categoryName, &categorySlug, &rating); err != nil {
		return nil, err
	}
	if categorySlug.Valid {
		t.Category = &models.Category{Name: categoryName.String, Slug: categorySlug.String}
	}
	if rating.Valid {
		v := int(rating.Int64)
		t.Rating = &v
	}
	t.Genres = []models.Genre{}
	return &t, nil
}

func (r *Repo) GetTitle(ctx context.Context, id int64) (*models.Title, error) {
	row := r.DB.QueryRowContext(ctx, titleSelect+` WHERE t.id = ?`, id)

	t, err := scanTitle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get title: %w", err)
	}

	if err := r.attachGenres(ctx, []*models.Title{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Repo) CountTitles(ctx context.Context, f TitleFilter) (int, error) {
	where, args := titleWhere(f)
	sqlStr := `SELECT COUNT(*) FROM titles t LEFT JOIN categories c ON c.id = t.category_id` + where

	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count titles: %w", err)
	}
	return total, nil
}

func (r *Repo) ListTitles(ctx context.Context, f TitleFilter) ([]models.Title, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := titleWhere(f)
	sqlStr := titleSelect + where + ` ORDER BY t.year ASC, t.id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var titles []*models.Title
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	if err := r.attachGenres(ctx, titles); err != nil {
		return nil, err
	}

	out := make([]models.Title, 0, len(titles))
	for _, t := range titles {
		out = append(out, *t)
	}
	return out, nil
}

func titleWhere(f TitleFilter) (string, []any) {
	var where []string
	var args []any

	if s := strings.TrimSpace(f.Category); s != "" {
		where = append(where, "c.slug = ?")
		args = append(args, s)
	}
	if s := strings.TrimSpace(f.Genre); s != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM title_genres tg
			JOIN genres g ON g.id = tg.genre_id
			WHERE tg.title_id = t.id AND g.slug = ?
		)`)
		args = append(args, s)
	}
	if s := strings.TrimSpace(f.Name); s != "" {
		where = append(where, "LOWER(t.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	if f.Year != 0 {
		where = append(where, "t.year = ?")
		args = append(args, f.Year)
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// attachGenres loads the genre lists for a batch of titles in one query.
func (r *Repo) attachGenres(ctx context.Context, titles []*models.Title) error {
	if len(titles) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Title, len(titles))
	placeholders := make([]string, 0, len(titles))
	args := make([]any, 0, len(titles))
	for _, t := range titles {
		byID[t.ID] = t
		placeholders = append(placeholders, "?")
		args = append(args, t.ID)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT tg.title_id, g.name, g.slug
		FROM title_genres tg
		JOIN genres g ON g.id = tg.genre_id
		WHERE tg.title_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY g.id ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("load title genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var titleID int64
		var g models.Genre
		if err := rows.Scan(&titleID, &g.Name, &g.Slug); err != nil {
			return fmt.Errorf("scan title genre: %w", err)
		}
		if t, ok := byID[titleID]; ok {
			t.Genres = append(t.Genres, g)
		}
	}
	return rows.Err()
}

func (r *Repo) CreateTitle(ctx context.Context, name string, year int, description, categorySlug string, genreSlugs []string) (*models.Title, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create title: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	categoryID, err := resolveCategory(ctx, tx, categorySlug)
	if err != nil {
		return nil, err
	}
	genreIDs, err := resolveGenres(ctx, tx, genreSlugs)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO titles (name, year, description, category_id)
		VALUES (?, ?, ?, ?)
	`, name, year, description, categoryID)
	if err != nil {
		return nil, fmt.Errorf("insert title: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := replaceTitleGenres(ctx, tx, id, genreIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create title: %w", err)
	}
	return r.GetTitle(ctx, id)
}

// UpdateTitle applies a partial update. Returns (nil, nil) when the title
// does not exist.
func (r *Repo) UpdateTitle(ctx context.Context, id int64, p TitlePatch) (*models.Title, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update title: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		name        string
		year        int
		description string
		categoryID  sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT name, year, description, category_id
		FROM titles
		WHERE id = ?
	`, id).Scan(&name, &year, &description, &categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load title for update: %w", err)
	}

	if p.Name != nil {
		name = *p.Name
	}
	if p.Year != nil {
		year = *p.Year
	}
	if p.Description != nil {
		description = *p.Description
	}
	if p.CategorySlug != nil {
		cid, err := resolveCategory(ctx, tx, *p.CategorySlug)
		if err != nil {
			return nil, err
		}
		categoryID = sql.NullInt64{Int64: cid, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE titles
		SET name = ?, year = ?, description = ?, category_id = ?
		WHERE id = ?
	`, name, year, description, categoryID, id); err != nil {
		return nil, fmt.Errorf("update title: %w", err)
	}

	if p.GenreSlugs != nil {
		genreIDs, err := resolveGenres(ctx, tx, *p.GenreSlugs)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM title_genres WHERE title_id = ?`, id); err != nil {
			return nil, fmt.Errorf("clear title genres: %w", err)
		}
		if err := replaceTitleGenres(ctx, tx, id, genreIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update title: %w", err)
	}
	return r.GetTitle(ctx, id)
}

func (r *Repo) DeleteTitle(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM titles WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete title: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

func resolveCategory(ctx context.Context, tx *sql.Tx, slug string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE slug = ?`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnknownCategory
		}
		return 0, fmt.Errorf("resolve category: %w", err)
	}
	return id, nil
}

func resolveGenres(ctx context.Context, tx *sql.Tx, slugs []string) ([]int64, error) {
	ids := make([]int64, 0, len(slugs))
	for _, slug := range slugs {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM genres WHERE slug = ?`, slug).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrUnknownGenre
			}
			return nil, fmt.Errorf("resolve genre: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func replaceTitleGenres(ctx context.Context, tx *sql.Tx, titleID int64, genreIDs []int64) error {
	for _, gid := range genreIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO title_genres (title_id, genre_id) VALUES (?, ?)
		`, titleID, gid); err != nil {
			return fmt.Errorf("link title genre: %w", err)
		}
	}
	return nil
}
