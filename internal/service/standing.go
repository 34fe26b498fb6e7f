package service

import (
	"context"

	"league-ratings/internal/constants"
	"league-ratings/internal/domain"
	"league-ratings/internal/elo"

	"golang.org/x/sync/errgroup"
)

type TeamStanding struct {
	Team     domain.Team
	Rating   int
	Rank     elo.Tier
	Progress elo.Progress
}

type LeaderboardEntry struct {
	Position int
	Team     domain.Team
	Rating   int
	Rank     elo.Tier
}

func (s *RatingService) GetTeamStanding(ctx context.Context, teamID string) (*TeamStanding, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		s.logger.Error().Err(err).Str("team_id", teamID).Msg("failed to get team")
		return nil, err
	}

	rating := team.CurrentRating()
	return &TeamStanding{
		Team:     *team,
		Rating:   rating,
		Rank:     elo.GetRank(rating),
		Progress: elo.GetNextRankProgress(rating),
	}, nil
}

func (s *RatingService) GetRatingHistory(ctx context.Context, teamID string, limit int) ([]domain.RatingHistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	limit = clampLimit(limit, constants.DefaultHistoryLimit, constants.MaxHistoryLimit)

	entries, err := s.store.GetHistory(ctx, teamID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("team_id", teamID).Msg("failed to get rating history")
		return nil, err
	}
	return entries, nil
}

func (s *RatingService) GetLeaderboard(ctx context.Context, city string, limit int) ([]LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	limit = clampLimit(limit, constants.DefaultLeaderboardLimit, constants.MaxLeaderboardLimit)

	teams, err := s.store.ListLeaderboard(ctx, city, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("city", city).Msg("failed to list leaderboard")
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(teams))
	for i, t := range teams {
		rating := t.CurrentRating()
		entries[i] = LeaderboardEntry{
			Position: i + 1,
			Team:     t,
			Rating:   rating,
			Rank:     elo.GetRank(rating),
		}
	}

	s.logger.Debug().Str("city", city).Int("count", len(entries)).Msg("leaderboard listed")
	return entries, nil
}

// PredictMatch estimates the outcome from stored ratings. A team whose rating
// is missing or unreadable counts at the initial rating; if neither can be
// read the neutral prediction is returned.
func (s *RatingService) PredictMatch(ctx context.Context, team1ID, team2ID string) elo.Prediction {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	ratings := [2]int{elo.InitialRating, elo.InitialRating}
	failed := [2]bool{}

	var g errgroup.Group
	for i, teamID := range [2]string{team1ID, team2ID} {
		i, teamID := i, teamID
		g.Go(func() error {
			rating, found, err := s.store.GetRating(ctx, teamID)
			if err != nil {
				s.logger.Warn().Err(err).Str("team_id", teamID).Msg("failed to get rating for prediction")
				failed[i] = true
				return nil
			}
			if found {
				ratings[i] = rating
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed[0] && failed[1] {
		return elo.NeutralPrediction()
	}
	return elo.GetMatchPrediction(ratings[0], ratings[1])
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}
