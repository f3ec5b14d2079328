package testutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"reviewhub/pkg/models"
)

// SeedUser inserts an active user directly, bypassing the signup flow.
func SeedUser(t *testing.T, db *sql.DB, username, role string) *models.User {
	t.Helper()

	u := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Active:   true,
	}
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, role, is_active)
		VALUES (?, ?, ?, ?, 1)
	`, u.ID, u.Username, u.Email, u.Role)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

// SeedTitle inserts a bare title (no category, no genres) and returns its id.
func SeedTitle(t *testing.T, db *sql.DB, name string, year int) int64 {
	t.Helper()

	res, err := db.Exec(`INSERT INTO titles (name, year) VALUES (?, ?)`, name, year)
	if err != nil {
		t.Fatalf("seed title %s: %v", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed title id: %v", err)
	}
	return id
}

// SeedReview inserts a review row and returns its id.
func SeedReview(t *testing.T, db *sql.DB, titleID int64, authorID, text string, score int) int64 {
	t.Helper()

	res, err := db.Exec(`
		INSERT INTO reviews (title_id, author_id, text, score)
		VALUES (?, ?, ?, ?)
	`, titleID, authorID, text, score)
	if err != nil {
		t.Fatalf("seed review: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed review id: %v", err)
	}
	return id
}
