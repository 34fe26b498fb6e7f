package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"league-ratings/internal/database"
	"league-ratings/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var matchColumns = []string{
	"id", "team1_id", "team2_id", "status", "score",
	"played_at", "rating_applied_at", "created_at", "updated_at",
}

type matchRow struct {
	ID              string         `db:"id"`
	Team1ID         sql.NullString `db:"team1_id"`
	Team2ID         sql.NullString `db:"team2_id"`
	Status          string         `db:"status"`
	Score           string         `db:"score"`
	PlayedAt        sql.NullTime   `db:"played_at"`
	RatingAppliedAt sql.NullTime   `db:"rating_applied_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r matchRow) toDomain() domain.Match {
	m := domain.Match{
		ID:        r.ID,
		Team1ID:   r.Team1ID.String,
		Team2ID:   r.Team2ID.String,
		Status:    domain.MatchStatus(r.Status),
		Score:     r.Score,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.PlayedAt.Valid {
		m.PlayedAt = &r.PlayedAt.Time
	}
	if r.RatingAppliedAt.Valid {
		m.RatingAppliedAt = &r.RatingAppliedAt.Time
	}
	return m
}

type MatchRepository struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	logger  zerolog.Logger
}

func NewMatchRepository(db *sqlx.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		db:      db,
		builder: database.Builder(db),
		logger:  logger,
	}
}

func (r *MatchRepository) CreateMatch(ctx context.Context, match *domain.Match) error {
	query, args, err := r.builder.Insert("matches").SetMap(sq.Eq{
		"id":         match.ID,
		"team1_id":   nullString(match.Team1ID),
		"team2_id":   nullString(match.Team2ID),
		"status":     string(match.Status),
		"score":      match.Score,
		"played_at":  match.PlayedAt,
		"created_at": match.CreatedAt,
		"updated_at": match.UpdatedAt,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert match %s: %w", match.ID, err)
	}
	return nil
}

func (r *MatchRepository) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	return getMatch(ctx, r.db, r.builder, matchID)
}

// FinishMatch records the final score. A match whose rating has already been
// applied keeps its score.
func (r *MatchRepository) FinishMatch(ctx context.Context, matchID, score string, at time.Time) error {
	return database.Transaction(ctx, r.db, func(tx *sqlx.Tx) error {
		match, err := getMatch(ctx, tx, r.builder, matchID)
		if err != nil {
			return err
		}
		if match.RatingAppliedAt != nil {
			return domain.NewRatingError(domain.KindAlreadyApplied, matchID, "", nil)
		}
		if match.Status == domain.MatchStatusCancelled {
			return domain.NewRatingError(domain.KindInvalidMatchState, matchID, "", errors.New("match was cancelled"))
		}

		playedAt := at
		if match.PlayedAt != nil {
			playedAt = *match.PlayedAt
		}

		query, args, err := r.builder.Update("matches").SetMap(sq.Eq{
			"status":     string(domain.MatchStatusFinished),
			"score":      score,
			"played_at":  playedAt,
			"updated_at": at,
		}).Where(sq.Eq{"id": matchID}).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to finish match %s: %w", matchID, err)
		}
		return nil
	})
}

// ClaimRatingApplication marks the match as rated. It returns false when
// another caller already claimed it.
func (r *MatchRepository) ClaimRatingApplication(ctx context.Context, matchID string, at time.Time) (bool, error) {
	query, args, err := r.builder.Update("matches").SetMap(sq.Eq{
		"rating_applied_at": at,
		"updated_at":        at,
	}).Where(sq.Eq{"id": matchID, "rating_applied_at": nil}).ToSql()
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to claim match %s: %w", matchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim match %s: %w", matchID, err)
	}

	r.logger.Debug().Str("match_id", matchID).Bool("claimed", n == 1).Msg("rating claim")
	return n == 1, nil
}

func getMatch(ctx context.Context, q sqlx.QueryerContext, builder sq.StatementBuilderType, matchID string) (*domain.Match, error) {
	query, args, err := builder.Select(matchColumns...).From("matches").Where(sq.Eq{"id": matchID}).ToSql()
	if err != nil {
		return nil, err
	}

	var row matchRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewRatingError(domain.KindNotFound, matchID, "", err)
		}
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, err)
	}

	match := row.toDomain()
	return &match, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
