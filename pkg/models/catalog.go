package models

// Category and Genre are named records identified by a URL-safe slug.
// Titles reference a category by slug on write; reads nest the full object.
type Category struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Genre struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Title is a catalogued work. Rating is the integer-truncated mean of the
// title's review scores, recomputed on every read; null when no reviews exist.
type Title struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Rating      *int      `json:"rating"`
	Description string    `json:"description"`
	Category    *Category `json:"category"`
	Genres      []Genre   `json:"genre"`
}
