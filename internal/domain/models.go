package domain

import (
	"cmp"
	"slices"
	"time"

	"league-ratings/internal/elo"
)

type MatchStatus string

const (
	MatchStatusUpcoming  MatchStatus = "upcoming"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusFinished  MatchStatus = "finished"
	MatchStatusCancelled MatchStatus = "cancelled"
)

type Team struct {
	ID        string
	Name      string
	City      string
	Rating    *int // nil until the first rated match
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentRating counts an unrated team at the initial rating.
func (t Team) CurrentRating() int {
	if t.Rating == nil {
		return elo.InitialRating
	}
	return *t.Rating
}

// SortByRating orders teams for the leaderboard: rating descending, then name
// and id for a stable order among equals.
func SortByRating(teams []Team) {
	slices.SortStableFunc(teams, func(a, b Team) int {
		if c := cmp.Compare(b.CurrentRating(), a.CurrentRating()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

type Match struct {
	ID              string
	Team1ID         string
	Team2ID         string
	Status          MatchStatus
	Score           string // "A:B"
	PlayedAt        *time.Time
	RatingAppliedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type RatingHistoryEntry struct {
	ID        string // nanoid
	MatchID   string
	TeamID    string
	OldRating int
	NewRating int
	CreatedAt time.Time
}

func (e RatingHistoryEntry) Change() int {
	return e.NewRating - e.OldRating
}
