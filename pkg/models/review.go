package models

import "time"

type Review struct {
	ID      int64     `json:"id"`
	TitleID int64     `json:"-"`
	Author  string    `json:"author"` // username
	Text    string    `json:"text"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`

	// AuthorID is kept for permission checks, never serialized.
	AuthorID string `json:"-"`
}

type Comment struct {
	ID       int64     `json:"id"`
	ReviewID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`

	AuthorID string `json:"-"`
}
