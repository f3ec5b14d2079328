package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reviewhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// ReviewExists checks that the review sits under the given title, so a
// comment path with mismatched title/review ids reads as not found.
func (r *Repo) ReviewExists(ctx context.Context, titleID, reviewID int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `
		SELECT 1 FROM reviews WHERE id = ? AND title_id = ?
	`, reviewID, titleID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("review exists: %w", err)
	}
	return true, nil
}

func (r *Repo) Create(ctx context.Context, reviewID int64, authorID, text string) (*models.Comment, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO comments (review_id, author_id, text)
		VALUES (?, ?, ?)
	`, reviewID, authorID, text)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return r.GetByID(ctx, reviewID, id)
}

const commentSelect = `
	SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
	FROM comments c
	JOIN users u ON u.id = c.author_id
`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	var cm models.Comment
	if err := row.Scan(&cm.ID, &cm.ReviewID, &cm.AuthorID, &cm.Author, &cm.Text, &cm.PubDate); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (r *Repo) GetByID(ctx context.Context, reviewID, id int64) (*models.Comment, error) {
	row := r.DB.QueryRowContext(ctx, commentSelect+` WHERE c.id = ? AND c.review_id = ?`, id, reviewID)

	cm, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return cm, nil
}

func (r *Repo) CountByReview(ctx context.Context, reviewID int64) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE review_id = ?`, reviewID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return total, nil
}

func (r *Repo) ListByReview(ctx context.Context, reviewID int64, limit, offset int) ([]models.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, commentSelect+`
		WHERE c.review_id = ?
		ORDER BY c.pub_date DESC, c.id DESC
		LIMIT ? OFFSET ?
	`, reviewID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make([]models.Comment, 0, limit)
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		out = append(out, *cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Update(ctx context.Context, cm *models.Comment) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE comments SET text = ? WHERE id = ?`, cm.Text, cm.ID)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update comment rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update comment: not found")
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}
