package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"league-ratings/internal/constants"
	"league-ratings/internal/domain"
	"league-ratings/internal/elo"
	"league-ratings/internal/lock"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type TeamRatingChange struct {
	TeamID    string `json:"team_id"`
	OldRating int    `json:"old_rating"`
	NewRating int    `json:"new_rating"`
}

type MatchRatingResult struct {
	elo.Result
	MatchID string           `json:"match_id"`
	Outcome domain.Outcome   `json:"-"`
	Draw    bool             `json:"draw"`
	Team1   TeamRatingChange `json:"team1"`
	Team2   TeamRatingChange `json:"team2"`

	// WriteErrors holds one RatingWriteError per team whose new rating could
	// not be saved. The other team's rating is kept.
	WriteErrors []error `json:"-"`
}

type Stats struct {
	WriteFailures   int64
	HistoryFailures int64
}

type RatingService struct {
	store  Store
	locker lock.Locker
	logger zerolog.Logger
	now    func() time.Time

	pending         sync.WaitGroup
	writeFailures   atomic.Int64
	historyFailures atomic.Int64
}

func NewRatingService(store Store, locker lock.Locker, logger zerolog.Logger) *RatingService {
	return &RatingService{
		store:  store,
		locker: locker,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ApplyMatchResult updates both teams' ratings for a finished match. It fails
// only before anything is written: for an ineligible match, an unreadable
// rating, or a match that was already rated. Failures after that point are
// logged and reported through the result.
func (s *RatingService) ApplyMatchResult(ctx context.Context, match *domain.Match) (*MatchRatingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	score1, score2, err := validateMatch(match)
	if err != nil {
		s.logger.Warn().Err(err).Msg("match is not eligible for rating update")
		return nil, err
	}
	log := s.logger.With().Str("match_id", match.ID).Logger()

	release, err := s.locker.Acquire(ctx, match.ID)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			log.Warn().Msg("rating update already in progress")
			return nil, domain.NewRatingError(domain.KindAlreadyApplied, match.ID, "", err)
		}
		log.Error().Err(err).Msg("failed to lock match")
		return nil, domain.NewRatingError(domain.KindRatingFetch, match.ID, "", err)
	}
	defer release()

	old1, old2, err := s.fetchRatings(ctx, match)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch team ratings")
		return nil, err
	}

	claimed, err := s.store.ClaimRatingApplication(ctx, match.ID, s.now())
	if err != nil {
		log.Error().Err(err).Msg("failed to claim match for rating update")
		return nil, domain.NewRatingError(domain.KindRatingFetch, match.ID, "", err)
	}
	if !claimed {
		log.Warn().Msg("match rating already applied")
		return nil, domain.NewRatingError(domain.KindAlreadyApplied, match.ID, "", nil)
	}

	outcome := domain.OutcomeOf(score1, score2)
	result := compute(match, outcome, old1, old2)

	for _, change := range []TeamRatingChange{result.Team1, result.Team2} {
		if err := s.store.SetRating(ctx, change.TeamID, change.NewRating); err != nil {
			s.writeFailures.Add(1)
			werr := domain.NewRatingError(domain.KindRatingWrite, match.ID, change.TeamID, err)
			result.WriteErrors = append(result.WriteErrors, werr)
			log.Error().
				Err(err).
				Str("team_id", change.TeamID).
				Int("old_rating", change.OldRating).
				Int("new_rating", change.NewRating).
				Msg("failed to save team rating")
		}
	}

	s.recordHistory(ctx, match.ID, result.Team1, result.Team2)

	log.Info().
		Str("outcome", outcome.String()).
		Str("team1_id", result.Team1.TeamID).
		Int("team1_old", result.Team1.OldRating).
		Int("team1_new", result.Team1.NewRating).
		Str("team2_id", result.Team2.TeamID).
		Int("team2_old", result.Team2.OldRating).
		Int("team2_new", result.Team2.NewRating).
		Int("write_errors", len(result.WriteErrors)).
		Msg("match rating applied")

	return result, nil
}

func validateMatch(match *domain.Match) (int, int, error) {
	if match == nil {
		return 0, 0, domain.NewRatingError(domain.KindInvalidMatchState, "", "", errors.New("no match"))
	}
	if match.Status != domain.MatchStatusFinished {
		return 0, 0, domain.NewRatingError(domain.KindInvalidMatchState, match.ID, "",
			fmt.Errorf("status is %q", match.Status))
	}
	if match.Team1ID == "" || match.Team2ID == "" {
		return 0, 0, domain.NewRatingError(domain.KindInvalidMatchState, match.ID, "",
			errors.New("match must reference two teams"))
	}
	if match.Team1ID == match.Team2ID {
		return 0, 0, domain.NewRatingError(domain.KindInvalidMatchState, match.ID, "",
			errors.New("team cannot play itself"))
	}
	score1, score2, err := domain.ParseScore(match.Score)
	if err != nil {
		return 0, 0, domain.NewRatingError(domain.KindInvalidMatchState, match.ID, "", err)
	}
	return score1, score2, nil
}

func (s *RatingService) fetchRatings(ctx context.Context, match *domain.Match) (int, int, error) {
	var rating1, rating2 int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.ratingOf(gctx, match.ID, match.Team1ID)
		rating1 = r
		return err
	})
	g.Go(func() error {
		r, err := s.ratingOf(gctx, match.ID, match.Team2ID)
		rating2 = r
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	return rating1, rating2, nil
}

func (s *RatingService) ratingOf(ctx context.Context, matchID, teamID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	rating, found, err := s.store.GetRating(ctx, teamID)
	if err != nil {
		return 0, domain.NewRatingError(domain.KindRatingFetch, matchID, teamID, err)
	}
	if !found {
		s.logger.Debug().Str("team_id", teamID).Int("rating", elo.InitialRating).Msg("team has no rating yet")
		return elo.InitialRating, nil
	}
	return rating, nil
}

func compute(match *domain.Match, outcome domain.Outcome, old1, old2 int) *MatchRatingResult {
	var res elo.Result
	var new1, new2 int

	switch outcome {
	case domain.OutcomeTeam1Win:
		res = elo.CalculateElo(old1, old2, false)
		new1, new2 = res.Winner, res.Loser
	case domain.OutcomeTeam2Win:
		res = elo.CalculateElo(old2, old1, false)
		new1, new2 = res.Loser, res.Winner
	default:
		res = elo.CalculateElo(old1, old2, true)
		new1, new2 = res.Winner, res.Loser
	}

	return &MatchRatingResult{
		Result:  res,
		MatchID: match.ID,
		Outcome: outcome,
		Draw:    outcome == domain.OutcomeDraw,
		Team1:   TeamRatingChange{TeamID: match.Team1ID, OldRating: old1, NewRating: new1},
		Team2:   TeamRatingChange{TeamID: match.Team2ID, OldRating: old2, NewRating: new2},
	}
}

// recordHistory appends the audit entries in the background. Failures are
// counted and logged, never reported to the caller.
func (s *RatingService) recordHistory(ctx context.Context, matchID string, changes ...TeamRatingChange) {
	bg := context.WithoutCancel(ctx)
	at := s.now()

	g := new(errgroup.Group)
	for _, change := range changes {
		entry := domain.RatingHistoryEntry{
			MatchID:   matchID,
			TeamID:    change.TeamID,
			OldRating: change.OldRating,
			NewRating: change.NewRating,
			CreatedAt: at,
		}
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(bg, constants.DatabaseTimeout)
			defer cancel()

			if err := s.store.AppendHistory(ctx, entry); err != nil {
				s.historyFailures.Add(1)
				return domain.NewRatingError(domain.KindHistoryAppend, matchID, entry.TeamID, err)
			}
			return nil
		})
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := g.Wait(); err != nil {
			s.logger.Warn().Err(err).Str("match_id", matchID).Msg("failed to record rating history")
		}
	}()
}

// Wait blocks until background history writes have finished.
func (s *RatingService) Wait() {
	s.pending.Wait()
}

func (s *RatingService) Stats() Stats {
	return Stats{
		WriteFailures:   s.writeFailures.Load(),
		HistoryFailures: s.historyFailures.Load(),
	}
}
