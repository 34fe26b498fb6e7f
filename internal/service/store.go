package service

import (
	"context"
	"time"

	"league-ratings/internal/domain"
)

// RatingStore is what the rating update needs from storage. A missing rating
// is reported as found=false, not as an error.
type RatingStore interface {
	GetRating(ctx context.Context, teamID string) (rating int, found bool, err error)
	SetRating(ctx context.Context, teamID string, rating int) error
	AppendHistory(ctx context.Context, entry domain.RatingHistoryEntry) error
}

// MatchClaimer atomically marks a match as rated. It returns false when the
// match was already claimed or does not exist.
type MatchClaimer interface {
	ClaimRatingApplication(ctx context.Context, matchID string, at time.Time) (bool, error)
}

type TeamStore interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	GetTeam(ctx context.Context, teamID string) (*domain.Team, error)
	ListLeaderboard(ctx context.Context, city string, limit int) ([]domain.Team, error)
}

type MatchStore interface {
	CreateMatch(ctx context.Context, match *domain.Match) error
	GetMatch(ctx context.Context, matchID string) (*domain.Match, error)
	FinishMatch(ctx context.Context, matchID, score string, at time.Time) error
}

type HistoryReader interface {
	GetHistory(ctx context.Context, teamID string, limit int) ([]domain.RatingHistoryEntry, error)
}

// Store is implemented by repository.Store and api.SupabaseClient.
type Store interface {
	RatingStore
	MatchClaimer
	TeamStore
	MatchStore
	HistoryReader
}
