package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"league-ratings/internal/constants"
	"league-ratings/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type MatchService struct {
	store   Store
	ratings *RatingService
	logger  zerolog.Logger
	now     func() time.Time
}

func NewMatchService(store Store, ratings *RatingService, logger zerolog.Logger) *MatchService {
	return &MatchService{
		store:   store,
		ratings: ratings,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MatchService) CreateTeam(ctx context.Context, name, city string) (*domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewRatingError(domain.KindInvalidArgument, "", "", errors.New("team name is required"))
	}

	now := s.now()
	team := &domain.Team{
		ID:        uuid.NewString(),
		Name:      name,
		City:      strings.TrimSpace(city),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTeam(ctx, team); err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create team")
		return nil, err
	}

	s.logger.Info().Str("team_id", team.ID).Str("name", name).Str("city", team.City).Msg("team created")
	return team, nil
}

func (s *MatchService) CreateMatch(ctx context.Context, team1ID, team2ID string, playedAt *time.Time) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if team1ID == "" || team2ID == "" {
		return nil, domain.NewRatingError(domain.KindInvalidArgument, "", "", errors.New("match must reference two teams"))
	}
	if team1ID == team2ID {
		return nil, domain.NewRatingError(domain.KindInvalidArgument, "", team1ID, errors.New("team cannot play itself"))
	}
	for _, id := range []string{team1ID, team2ID} {
		if _, err := s.store.GetTeam(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("team_id", id).Msg("match references unknown team")
			return nil, err
		}
	}

	now := s.now()
	match := &domain.Match{
		ID:        uuid.NewString(),
		Team1ID:   team1ID,
		Team2ID:   team2ID,
		Status:    domain.MatchStatusUpcoming,
		PlayedAt:  playedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateMatch(ctx, match); err != nil {
		s.logger.Error().Err(err).Msg("failed to create match")
		return nil, err
	}

	s.logger.Info().Str("match_id", match.ID).Str("team1_id", team1ID).Str("team2_id", team2ID).Msg("match created")
	return match, nil
}

// FinishMatch stores the final score and applies the rating update.
func (s *MatchService) FinishMatch(ctx context.Context, matchID, score string) (*MatchRatingResult, error) {
	if _, _, err := domain.ParseScore(score); err != nil {
		return nil, domain.NewRatingError(domain.KindInvalidMatchState, matchID, "", err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.store.FinishMatch(dbCtx, matchID, strings.TrimSpace(score), s.now()); err != nil {
		s.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to finish match")
		return nil, err
	}

	s.logger.Info().Str("match_id", matchID).Str("score", score).Msg("match finished")
	return s.OnMatchFinished(ctx, matchID)
}

// OnMatchFinished loads the match and applies its result to the team ratings.
func (s *MatchService) OnMatchFinished(ctx context.Context, matchID string) (*MatchRatingResult, error) {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	match, err := s.store.GetMatch(dbCtx, matchID)
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to load finished match")
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.NewRatingError(domain.KindInvalidMatchState, matchID, "", err)
		}
		return nil, domain.NewRatingError(domain.KindRatingFetch, matchID, "", err)
	}

	if match.Status != domain.MatchStatusFinished || match.Team1ID == "" || match.Team2ID == "" {
		s.logger.Debug().
			Str("match_id", matchID).
			Str("status", string(match.Status)).
			Msg("match not eligible for rating update")
	}

	return s.ratings.ApplyMatchResult(ctx, match)
}
