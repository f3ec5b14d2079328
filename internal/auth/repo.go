package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"reviewhub/pkg/models"
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, username, email, first_name, last_name, bio, role, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.Bio, &u.Role, &u.Active, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Create(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, first_name, last_name, bio, role, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.Bio, u.Role, u.Active)

	if err != nil {
		// The unique constraints are the authoritative guard when two
		// signups race past the advisory lookups.
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			if strings.Contains(sqlErr.Error(), "users.email") {
				return ErrEmailTaken
			}
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?
	`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = ?
	`, strings.TrimSpace(username))

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by username: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = ?
	`, strings.ToLower(strings.TrimSpace(email)))

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by email: %w", err)
	}
	return u, nil
}

func (r *Repo) Count(ctx context.Context, search string) (int, error) {
	sqlStr, args := usersListSQL(search, 0, 0, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, search string, limit, offset int) ([]models.User, error) {
	sqlStr, args := usersListSQL(search, limit, offset, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func usersListSQL(search string, limit, offset int, countOnly bool) (string, []any) {
	sqlStr := `SELECT ` + userColumns + ` FROM users`
	if countOnly {
		sqlStr = `SELECT COUNT(*) FROM users`
	}

	var args []any
	if s := strings.TrimSpace(search); s != "" {
		sqlStr += ` WHERE LOWER(username) LIKE ?`
		args = append(args, "%"+strings.ToLower(s)+"%")
	}

	if !countOnly {
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		if offset < 0 {
			offset = 0
		}
		sqlStr += ` ORDER BY username ASC LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	return sqlStr, args
}

func (r *Repo) Update(ctx context.Context, u *models.User) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET username = ?, email = ?, first_name = ?, last_name = ?, bio = ?, role = ?
		WHERE id = ?
	`, u.Username, u.Email, u.FirstName, u.LastName, u.Bio, u.Role, u.ID)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			if strings.Contains(sqlErr.Error(), "users.email") {
				return ErrEmailTaken
			}
			return ErrUsernameTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update user: user not found")
	}
	return nil
}

func (r *Repo) DeleteByUsername(ctx context.Context, username string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM users
		WHERE username = ?
	`, username)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// SetConfirmation stores a freshly issued confirmation-code hash. Re-signup
// deactivates the account until the next successful token exchange.
func (r *Repo) SetConfirmation(ctx context.Context, id, hash string, sentAt time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET confirmation_hash = ?, confirmation_sent_at = ?, is_active = 0
		WHERE id = ?
	`, hash, sentAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("set confirmation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set confirmation rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set confirmation: user not found")
	}
	return nil
}

// Confirmation returns the pending code hash and its issue time.
// ok is false when no code is pending.
func (r *Repo) Confirmation(ctx context.Context, id string) (hash string, sentAt time.Time, ok bool, err error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT confirmation_hash, confirmation_sent_at
		FROM users
		WHERE id = ?
	`, id)

	var h sql.NullString
	var at sql.NullTime
	if err := row.Scan(&h, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, fmt.Errorf("get confirmation: %w", err)
	}
	if !h.Valid || !at.Valid {
		return "", time.Time{}, false, nil
	}
	return h.String, at.Time, true, nil
}

// Activate marks the user active and clears the pending confirmation code,
// making each issued code single-use.
func (r *Repo) Activate(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET is_active = 1, confirmation_hash = NULL, confirmation_sent_at = NULL
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate user rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("activate user: user not found")
	}
	return nil
}
