package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Store bundles the SQL repositories into the single storage handle the
// services consume.
type Store struct {
	*TeamRepository
	*MatchRepository
	*RatingHistoryRepository
}

func NewStore(db *sqlx.DB, logger zerolog.Logger) *Store {
	return &Store{
		TeamRepository:          NewTeamRepository(db, logger),
		MatchRepository:         NewMatchRepository(db, logger),
		RatingHistoryRepository: NewRatingHistoryRepository(db, logger),
	}
}
