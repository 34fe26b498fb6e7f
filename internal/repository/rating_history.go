package repository

import (
	"context"
	"fmt"
	"time"

	"league-ratings/internal/database"
	"league-ratings/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type ratingHistoryRow struct {
	ID        string    `db:"id"`
	MatchID   string    `db:"match_id"`
	TeamID    string    `db:"team_id"`
	OldRating int       `db:"old_rating"`
	NewRating int       `db:"new_rating"`
	CreatedAt time.Time `db:"created_at"`
}

type RatingHistoryRepository struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	logger  zerolog.Logger
}

func NewRatingHistoryRepository(db *sqlx.DB, logger zerolog.Logger) *RatingHistoryRepository {
	return &RatingHistoryRepository{
		db:      db,
		builder: database.Builder(db),
		logger:  logger,
	}
}

func (r *RatingHistoryRepository) AppendHistory(ctx context.Context, entry domain.RatingHistoryEntry) error {
	id := entry.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query, args, err := r.builder.Insert("team_rating_history").SetMap(sq.Eq{
		"id":         id,
		"match_id":   entry.MatchID,
		"team_id":    entry.TeamID,
		"old_rating": entry.OldRating,
		"new_rating": entry.NewRating,
		"created_at": createdAt,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append rating history: %w", err)
	}
	return nil
}

func (r *RatingHistoryRepository) GetHistory(ctx context.Context, teamID string, limit int) ([]domain.RatingHistoryEntry, error) {
	query, args, err := r.builder.
		Select("id", "match_id", "team_id", "old_rating", "new_rating", "created_at").
		From("team_rating_history").
		Where(sq.Eq{"team_id": teamID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []ratingHistoryRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get rating history for team %s: %w", teamID, err)
	}

	result := make([]domain.RatingHistoryEntry, len(rows))
	for i, row := range rows {
		result[i] = domain.RatingHistoryEntry{
			ID:        row.ID,
			MatchID:   row.MatchID,
			TeamID:    row.TeamID,
			OldRating: row.OldRating,
			NewRating: row.NewRating,
			CreatedAt: row.CreatedAt,
		}
	}
	return result, nil
}
