package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))

	// migrations are idempotent
	require.NoError(t, Migrate(db))

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(`INSERT INTO titles (name, year, category_id) VALUES ('x', 2000, 999)`)
	assert.Error(t, err)
}

func TestCascadesAndSetNull(t *testing.T) {
	db, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(`INSERT INTO users (id, username, email, is_active) VALUES ('u1', 'alice', 'a@x', 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO categories (name, slug) VALUES ('Books', 'books')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO titles (name, year, category_id) VALUES ('Hamlet', 1601, 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO reviews (title_id, author_id, text, score) VALUES (1, 'u1', 'x', 5)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO comments (review_id, author_id, text) VALUES (1, 'u1', 'y')`)
	require.NoError(t, err)

	// deleting the category detaches the title
	_, err = db.Exec(`DELETE FROM categories WHERE slug = 'books'`)
	require.NoError(t, err)
	var cat any
	require.NoError(t, db.QueryRow(`SELECT category_id FROM titles WHERE id = 1`).Scan(&cat))
	assert.Nil(t, cat)

	// deleting the title cascades through reviews to comments
	_, err = db.Exec(`DELETE FROM titles WHERE id = 1`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM reviews`).Scan(&n))
	assert.Equal(t, 0, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestReviewConstraints(t *testing.T) {
	db, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(`INSERT INTO users (id, username, email, is_active) VALUES ('u1', 'alice', 'a@x', 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO titles (name, year) VALUES ('Hamlet', 1601)`)
	require.NoError(t, err)

	// score range is checked at the schema level too
	_, err = db.Exec(`INSERT INTO reviews (title_id, author_id, text, score) VALUES (1, 'u1', 'x', 11)`)
	assert.Error(t, err)

	_, err = db.Exec(`INSERT INTO reviews (title_id, author_id, text, score) VALUES (1, 'u1', 'x', 10)`)
	require.NoError(t, err)

	// one review per author per title
	_, err = db.Exec(`INSERT INTO reviews (title_id, author_id, text, score) VALUES (1, 'u1', 'y', 2)`)
	assert.Error(t, err)
}
