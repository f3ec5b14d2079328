package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"reviewhub/pkg/database"
	"reviewhub/pkg/utils"
)

// import-csv loads catalog seed data from CSV files. Rows that violate
// uniqueness or reference constraints are logged and skipped so a partial
// dataset never aborts the whole run.
func main() {
	dataDir := flag.String("data", "data", "directory containing the CSV files")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := utils.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	db, err := database.Open(database.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Import order follows the reference graph.
	steps := []struct {
		file string
		fn   func(context.Context, *sql.DB, zerolog.Logger, string) error
	}{
		{"users.csv", importUsers},
		{"category.csv", importCategories},
		{"genre.csv", importGenres},
		{"titles.csv", importTitles},
		{"genre_title.csv", importTitleGenres},
		{"review.csv", importReviews},
		{"comments.csv", importComments},
	}

	for _, step := range steps {
		path := filepath.Join(*dataDir, step.file)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("file", path).Msg("file missing, skipped")
			continue
		}
		if err := step.fn(ctx, db, log, path); err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("import failed")
		}
		log.Info().Str("file", path).Msg("imported")
	}
}

func importUsers(ctx context.Context, db *sql.DB, log zerolog.Logger, path string) error {
	return forEachRow(path, func(header map[string]int, row []string) error {
		role := valueAt(header, row, "role")
		if role == "" {
			role = "user"
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO users (id, username, email, first_name, last_name, bio, role, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		`,
			valueAt(header, row, "id"),
			valueAt(header, row, "username"),
			valueAt(header, row, "email"),
			valueAt(header, row, "first_name"),
			valueAt(header, row, "last_name"),
			valueAt(header, row, "bio"),
			role,
		)
		return skipConstraint(log, "user", valueAt(header, row, "username"), err)
	})
}

func importCategories(ctx context.Context, db *sql.DB, log zerolog.Logger, path string) error {
	return forEachRow(path, func(header map[string]int, row []string) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO categories (id, name, slug) VALUES (?, ?, ?)
		`,
			valueAt(header, row, "id"),
			valueAt(header, row, "name"),
			valueAt(header, row, "slug"),
		)
		return skipConstraint(log, "category", valueAt(header, row, "slug"), err)
	})
}

func importGenres(ctx context.Context, db *sql.DB, log zerolog.Logger, path string) error {
	return forEachRow(path, func(header map[string]int, row []string) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO genres (id, name, slug) VALUES (?, ?, ?)
		`,
			valueAt(header, row, "id"),
			valueAt(header, row, "name"),
			valueAt(header, row, "slug"),
		)
		return skipConstraint(log, "genre", valueAt(header, row, "slug"), err)
	})
}

func importTitles(ctx context.Context, db *sql.DB, log zerolog.Logger, path string) error {
	return forEachRow(path, func(header map[string]int, row []string) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO titles (id, name, year, description, category_id)
			VALUES (?, ?, ?, ?, ?)
		`,
			valueAt(header, row, "id"),
			valueAt(header, row, "name"),
			valueAt(header, row, "year"),
			valueAt(header, row, "description"),
			nullString(valueAt(header, row, "category")),
		)
		return skipConstraint(log, "title", valueAt(header, row, "name"), err)
	})
}

func importTitleGenres(ctx context.Context, db *sql.DB, log zerolog.Logger, path string) error {
	return forEachRow(path, func(header map[string]int, row []string) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO title_genres (title_id, genre_id) VALUES (?, ?)
		`,
			valueAt(header, row, "title_id"),
			valueAt(header, row, "genre_id"),
		)
		return skipConstraint(log, "title_genre", valueAt(header, row, "id"), err)
	})
}

func importReviews(ctx context.Context, db *sql.DB, log zerolog.Logger, path string) error {
	return forEachRow(path, func(header map[string]int, row []string) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO reviews (id, title_id, author_id, text, score, pub_date)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			valueAt(header, row, "id"),
			valueAt(header, row, "title_id"),
			valueAt(header, row, "author"),
			valueAt(header, row, "text"),
			valueAt(header, row, "score"),
			parseDate(valueAt(header, row, "pub_date")),
		)
		return skipConstraint(log, "review", valueAt(header, row, "id"), err)
	})
}

func importComments(ctx context.Context, db *sql.DB, log zerolog.Logger, path string) error {
	return forEachRow(path, func(header map[string]int, row []string) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO comments (id, review_id, author_id, text, pub_date)
			VALUES (?, ?, ?, ?, ?)
		`,
			valueAt(header, row, "id"),
			valueAt(header, row, "review_id"),
			valueAt(header, row, "author"),
			valueAt(header, row, "text"),
			parseDate(valueAt(header, row, "pub_date")),
		)
		return skipConstraint(log, "comment", valueAt(header, row, "id"), err)
	})
}

// skipConstraint turns constraint violations into a logged skip; any other
// error aborts the import.
func skipConstraint(log zerolog.Logger, kind, key string, err error) error {
	if err == nil {
		return nil
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		log.Warn().Str("kind", kind).Str("key", key).Err(err).Msg("row skipped")
		return nil
	}
	return fmt.Errorf("insert %s %q: %w", kind, key, err)
}

func forEachRow(path string, fn func(header map[string]int, row []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headerRow, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.TrimSpace(strings.ToLower(name))] = i
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}
		if err := fn(header, row); err != nil {
			return err
		}
	}
	return nil
}

func valueAt(header map[string]int, row []string, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseDate(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now().UTC()
}
