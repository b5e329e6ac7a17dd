package domain

import "time"

// Score represents a single submitted score. A user may submit any number
// of scores for the same game; gameId and userId are not referentially
// validated.
type Score struct {
	ID        int                    `json:"id"`
	GameID    int                    `json:"gameId"`
	UserID    int                    `json:"userId"`
	Score     int                    `json:"score"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"createdAt"`
}

// InsertScore is the create payload for a score. Score is a pointer so a
// missing value is distinguishable from an explicit zero.
type InsertScore struct {
	GameID   int                    `json:"gameId"`
	UserID   int                    `json:"userId"`
	Score    *int                   `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Validate checks required fields
func (in *InsertScore) Validate() error {
	var ve ValidationError
	if in.GameID <= 0 {
		ve.Add("gameId", "gameId is required")
	}
	if in.UserID <= 0 {
		ve.Add("userId", "userId is required")
	}
	if in.Score == nil {
		ve.Add("score", "score is required")
	}
	return ve.Err()
}

// ScoreSubmission is the wire format for bulk score ingestion (Kafka)
type ScoreSubmission struct {
	GameID   int                    `json:"gameId"`
	UserID   int                    `json:"userId"`
	Score    int                    `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
