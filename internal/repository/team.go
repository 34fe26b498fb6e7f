package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"league-ratings/internal/database"
	"league-ratings/internal/domain"
	"league-ratings/internal/elo"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var teamColumns = []string{"id", "name", "city", "rating", "created_at", "updated_at"}

type teamRow struct {
	ID        string        `db:"id"`
	Name      string        `db:"name"`
	City      string        `db:"city"`
	Rating    sql.NullInt64 `db:"rating"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

func (r teamRow) toDomain() domain.Team {
	t := domain.Team{
		ID:        r.ID,
		Name:      r.Name,
		City:      r.City,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Rating.Valid {
		rating := int(r.Rating.Int64)
		t.Rating = &rating
	}
	return t
}

type TeamRepository struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	logger  zerolog.Logger
}

func NewTeamRepository(db *sqlx.DB, logger zerolog.Logger) *TeamRepository {
	return &TeamRepository{
		db:      db,
		builder: database.Builder(db),
		logger:  logger,
	}
}

func (r *TeamRepository) CreateTeam(ctx context.Context, team *domain.Team) error {
	var rating any
	if team.Rating != nil {
		rating = *team.Rating
	}

	query, args, err := r.builder.Insert("teams").SetMap(sq.Eq{
		"id":         team.ID,
		"name":       team.Name,
		"city":       team.City,
		"rating":     rating,
		"created_at": team.CreatedAt,
		"updated_at": team.UpdatedAt,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert team %s: %w", team.ID, err)
	}
	return nil
}

func (r *TeamRepository) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	query, args, err := r.builder.Select(teamColumns...).From("teams").Where(sq.Eq{"id": teamID}).ToSql()
	if err != nil {
		return nil, err
	}

	var row teamRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewRatingError(domain.KindNotFound, "", teamID, err)
		}
		return nil, fmt.Errorf("failed to get team %s: %w", teamID, err)
	}

	team := row.toDomain()
	return &team, nil
}

// GetRating reports found=false when the team has no row or no rating yet.
func (r *TeamRepository) GetRating(ctx context.Context, teamID string) (int, bool, error) {
	query, args, err := r.builder.Select("rating").From("teams").Where(sq.Eq{"id": teamID}).ToSql()
	if err != nil {
		return 0, false, err
	}

	var rating sql.NullInt64
	if err := sqlx.GetContext(ctx, r.db, &rating, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug().Str("team_id", teamID).Msg("team not found, rating absent")
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get rating for team %s: %w", teamID, err)
	}
	if !rating.Valid {
		return 0, false, nil
	}
	return int(rating.Int64), true, nil
}

func (r *TeamRepository) SetRating(ctx context.Context, teamID string, rating int) error {
	query, args, err := r.builder.Update("teams").SetMap(sq.Eq{
		"rating":     rating,
		"updated_at": time.Now().UTC(),
	}).Where(sq.Eq{"id": teamID}).ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set rating for team %s: %w", teamID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set rating for team %s: %w", teamID, err)
	}
	if n == 0 {
		return domain.NewRatingError(domain.KindNotFound, "", teamID, errors.New("team does not exist"))
	}
	return nil
}

// ListLeaderboard orders teams by rating, counting unrated teams at the
// initial rating. An empty city lists every team.
func (r *TeamRepository) ListLeaderboard(ctx context.Context, city string, limit int) ([]domain.Team, error) {
	qb := r.builder.Select(teamColumns...).From("teams").
		OrderBy(fmt.Sprintf("COALESCE(rating, %d) DESC", elo.InitialRating), "name ASC", "id ASC").
		Limit(uint64(limit))
	if city != "" {
		qb = qb.Where(sq.Eq{"city": city})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []teamRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}

	teams := make([]domain.Team, len(rows))
	for i, row := range rows {
		teams[i] = row.toDomain()
	}
	return teams, nil
}
