package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"reviewhub/pkg/models"
)

// ErrDuplicateReview is returned when an author already has a review for the
// title. The UNIQUE(title_id, author_id) constraint is the authoritative
// guard; the handler's pre-check only exists for a friendlier error message.
var ErrDuplicateReview = errors.New("author already reviewed this title")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) TitleExists(ctx context.Context, titleID int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM titles WHERE id = ?`, titleID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("title exists: %w", err)
	}
	return true, nil
}

func (r *Repo) Exists(ctx context.Context, titleID int64, authorID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `
		SELECT 1 FROM reviews WHERE title_id = ? AND author_id = ?
	`, titleID, authorID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("review exists: %w", err)
	}
	return true, nil
}

func (r *Repo) Create(ctx context.Context, titleID int64, authorID, text string, score int) (*models.Review, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (title_id, author_id, text, score)
		VALUES (?, ?, ?, ?)
	`, titleID, authorID, text, score)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return r.GetByID(ctx, titleID, id)
}

const reviewSelect = `
	SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date
	FROM reviews r
	JOIN users u ON u.id = r.author_id
`

func scanReview(row interface{ Scan(...any) error }) (*models.Review, error) {
	var rv models.Review
	if err := row.Scan(&rv.ID, &rv.TitleID, &rv.AuthorID, &rv.Author, &rv.Text, &rv.Score, &rv.PubDate); err != nil {
		return nil, err
	}
	return &rv, nil
}

// GetByID looks a review up within a title; a review id reached through the
// wrong title path is treated as not found.
func (r *Repo) GetByID(ctx context.Context, titleID, id int64) (*models.Review, error) {
	row := r.DB.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ? AND r.title_id = ?`, id, titleID)

	rv, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

func (r *Repo) CountByTitle(ctx context.Context, titleID int64) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE title_id = ?`, titleID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return total, nil
}

func (r *Repo) ListByTitle(ctx context.Context, titleID int64, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, reviewSelect+`
		WHERE r.title_id = ?
		ORDER BY r.pub_date DESC, r.id DESC
		LIMIT ? OFFSET ?
	`, titleID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]models.Review, 0, limit)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		out = append(out, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Update(ctx context.Context, rv *models.Review) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE reviews SET text = ?, score = ? WHERE id = ?
	`, rv.Text, rv.Score, rv.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update review: not found")
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}
