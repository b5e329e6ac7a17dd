package domain

import "time"

// Game represents a hosted HTML5 game. Plays is a monotonically
// non-decreasing counter; authorId is not referentially validated.
type Game struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	AuthorID     int       `json:"authorId"`
	Version      string    `json:"version"`
	GameURL      string    `json:"gameUrl"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	DonationURL  *string   `json:"donationUrl"`
	AdScript     *string   `json:"adScript"`
	Plays        int       `json:"plays"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"createdAt"`
}

// InsertGame is the create payload for a game
type InsertGame struct {
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	AuthorID     int     `json:"authorId"`
	Version      string  `json:"version"`
	GameURL      string  `json:"gameUrl"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	DonationURL  *string `json:"donationUrl"`
	AdScript     *string `json:"adScript"`
	Published    *bool   `json:"published"`
}

// Validate checks required fields
func (in *InsertGame) Validate() error {
	var ve ValidationError
	if in.Title == "" {
		ve.Add("title", "title is required")
	}
	if in.AuthorID <= 0 {
		ve.Add("authorId", "authorId is required")
	}
	if in.Version == "" {
		ve.Add("version", "version is required")
	}
	if in.GameURL == "" {
		ve.Add("gameUrl", "gameUrl is required")
	}
	return ve.Err()
}

// UpdateGame is a partial update: nil fields keep their prior value.
// AuthorID and Plays are not mutable through updates.
type UpdateGame struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Version      *string `json:"version"`
	GameURL      *string `json:"gameUrl"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	DonationURL  *string `json:"donationUrl"`
	AdScript     *string `json:"adScript"`
	Published    *bool   `json:"published"`
}

// ApplyTo merges non-nil fields over an existing game
func (in *UpdateGame) ApplyTo(g *Game) {
	if in.Title != nil {
		g.Title = *in.Title
	}
	if in.Description != nil {
		g.Description = in.Description
	}
	if in.Version != nil {
		g.Version = *in.Version
	}
	if in.GameURL != nil {
		g.GameURL = *in.GameURL
	}
	if in.ThumbnailURL != nil {
		g.ThumbnailURL = in.ThumbnailURL
	}
	if in.DonationURL != nil {
		g.DonationURL = in.DonationURL
	}
	if in.AdScript != nil {
		g.AdScript = in.AdScript
	}
	if in.Published != nil {
		g.Published = *in.Published
	}
}
