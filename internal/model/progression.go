package model

import "time"

// Progression is a player's game state. There is exactly one per user.
//
// All counters are int64: idle games grow geometrically and a few thousand
// resets would overflow int32 long before anything else breaks.
type Progression struct {
	UserID          string    `json:"userId"`
	ClickCount      int64     `json:"clickCount"`
	TotalClickValue int64     `json:"totalClickValue"`
	Multiplier      int64     `json:"multiplier"`
	BestScore       int64     `json:"bestScore"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ClickResult is what a click returns to the player.
type ClickResult struct {
	ClickCount int64 `json:"clickCount"`
	Multiplier int64 `json:"multiplier"`
}

// BestScore is the process-wide record holder.
type BestScore struct {
	UserID    string `json:"userId"`
	BestScore int64  `json:"bestScore"`
}

// LeaderboardEntry is one row of the personal-best ranking.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	BestScore int64  `json:"bestScore"`
}
