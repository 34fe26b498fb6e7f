package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"league-ratings/internal/domain"
	"league-ratings/internal/lock"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRatingService(store *fakeStore) *RatingService {
	return NewRatingService(store, lock.NewLocalLocker(), zerolog.Nop())
}

func finished(id, score string) domain.Match {
	return domain.Match{ID: id, Team1ID: "t1", Team2ID: "t2", Status: domain.MatchStatusFinished, Score: score}
}

func TestApplyMatchResultTeam1Wins(t *testing.T) {
	store := newFakeStore()
	svc := newRatingService(store)
	match := store.addMatch(finished("m1", "2:1"))

	res, err := svc.ApplyMatchResult(context.Background(), match)
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, 1016, res.Winner)
	assert.Equal(t, 984, res.Loser)
	assert.Equal(t, 16, res.PointsGained)
	assert.Equal(t, 16, res.PointsLost)
	assert.False(t, res.Draw)
	assert.Equal(t, domain.OutcomeTeam1Win, res.Outcome)
	assert.Equal(t, TeamRatingChange{TeamID: "t1", OldRating: 1000, NewRating: 1016}, res.Team1)
	assert.Equal(t, TeamRatingChange{TeamID: "t2", OldRating: 1000, NewRating: 984}, res.Team2)
	assert.Empty(t, res.WriteErrors)

	assert.Equal(t, []string{"t1", "t2"}, store.writes)
	r1, _ := store.rating("t1")
	r2, _ := store.rating("t2")
	assert.Equal(t, 1016, r1)
	assert.Equal(t, 984, r2)

	require.Equal(t, 2, store.historyLen())
	for _, e := range store.history {
		assert.Equal(t, "m1", e.MatchID)
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func TestApplyMatchResultTeam2Wins(t *testing.T) {
	store := newFakeStore()
	store.ratings["t1"] = 1200
	svc := newRatingService(store)
	match := store.addMatch(finished("m1", "0:3"))

	res, err := svc.ApplyMatchResult(context.Background(), match)
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, domain.OutcomeTeam2Win, res.Outcome)
	assert.Equal(t, 1024, res.Team2.NewRating)
	assert.Equal(t, 1176, res.Team1.NewRating)
	assert.Equal(t, 1024, res.Winner)
	assert.Equal(t, 1176, res.Loser)
	assert.Equal(t, 24, res.PointsGained)
	assert.Equal(t, 24, res.PointsLost)
	assert.Equal(t, []string{"t1", "t2"}, store.writes)
}

func TestApplyMatchResultDraw(t *testing.T) {
	store := newFakeStore()
	store.ratings["t1"] = 1200
	store.ratings["t2"] = 1000
	svc := newRatingService(store)
	match := store.addMatch(finished("m1", "0:0"))

	res, err := svc.ApplyMatchResult(context.Background(), match)
	require.NoError(t, err)
	svc.Wait()

	assert.True(t, res.Draw)
	assert.Equal(t, 1192, res.Team1.NewRating)
	assert.Equal(t, 1008, res.Team2.NewRating)
}

func TestApplyMatchResultRejectsIneligibleMatch(t *testing.T) {
	cases := map[string]*domain.Match{
		"nil match":      nil,
		"not finished":   {ID: "m1", Team1ID: "t1", Team2ID: "t2", Status: domain.MatchStatusLive, Score: "1:0"},
		"bad score":      {ID: "m1", Team1ID: "t1", Team2ID: "t2", Status: domain.MatchStatusFinished, Score: "1-0"},
		"empty score":    {ID: "m1", Team1ID: "t1", Team2ID: "t2", Status: domain.MatchStatusFinished},
		"missing team":   {ID: "m1", Team1ID: "t1", Status: domain.MatchStatusFinished, Score: "1:0"},
		"same team":      {ID: "m1", Team1ID: "t1", Team2ID: "t1", Status: domain.MatchStatusFinished, Score: "1:0"},
		"negative score": {ID: "m1", Team1ID: "t1", Team2ID: "t2", Status: domain.MatchStatusFinished, Score: "-1:0"},
	}

	for name, match := range cases {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			store.addMatch(finished("m1", "1:0"))
			svc := newRatingService(store)

			res, err := svc.ApplyMatchResult(context.Background(), match)
			svc.Wait()

			assert.Nil(t, res)
			assert.ErrorIs(t, err, domain.ErrInvalidMatchState)
			assert.Empty(t, store.writes)
			assert.Zero(t, store.historyLen())
			assert.Nil(t, store.matches["m1"].RatingAppliedAt)
		})
	}
}

func TestApplyMatchResultFetchFailure(t *testing.T) {
	store := newFakeStore()
	store.getErr["t2"] = errors.New("connection reset")
	svc := newRatingService(store)
	match := store.addMatch(finished("m1", "2:1"))

	res, err := svc.ApplyMatchResult(context.Background(), match)
	svc.Wait()

	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrRatingFetch)
	assert.Empty(t, store.writes)
	assert.Zero(t, store.historyLen())
	assert.Nil(t, store.matches["m1"].RatingAppliedAt, "a failed fetch must not consume the match")
}

func TestApplyMatchResultClaimFailure(t *testing.T) {
	store := newFakeStore()
	store.claimErr = errors.New("timeout")
	svc := newRatingService(store)
	match := store.addMatch(finished("m1", "2:1"))

	res, err := svc.ApplyMatchResult(context.Background(), match)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrRatingFetch)
	assert.Empty(t, store.writes)
}

func TestApplyMatchResultPartialWrite(t *testing.T) {
	store := newFakeStore()
	store.setErr["t1"] = errors.New("disk full")
	svc := newRatingService(store)
	match := store.addMatch(finished("m1", "2:1"))

	res, err := svc.ApplyMatchResult(context.Background(), match)
	require.NoError(t, err)
	svc.Wait()

	require.NotNil(t, res)
	assert.Equal(t, 1016, res.Team1.NewRating)
	require.Len(t, res.WriteErrors, 1)
	assert.ErrorIs(t, res.WriteErrors[0], domain.ErrRatingWrite)
	assert.Equal(t, "t1", res.WriteErrors[0].(*domain.RatingError).TeamID)

	assert.Equal(t, []string{"t1", "t2"}, store.writes)
	_, ok := store.rating("t1")
	assert.False(t, ok)
	r2, _ := store.rating("t2")
	assert.Equal(t, 984, r2)
	assert.Equal(t, int64(1), svc.Stats().WriteFailures)
}

func TestApplyMatchResultHistoryFailureIsIgnored(t *testing.T) {
	store := newFakeStore()
	store.historyErr = errors.New("relation team_rating_history does not exist")
	svc := newRatingService(store)
	match := store.addMatch(finished("m1", "2:1"))

	res, err := svc.ApplyMatchResult(context.Background(), match)
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, 1016, res.Winner)
	assert.Empty(t, res.WriteErrors)
	assert.Equal(t, int64(2), svc.Stats().HistoryFailures)
	r1, _ := store.rating("t1")
	assert.Equal(t, 1016, r1)
}

func TestApplyMatchResultIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newRatingService(store)
	match := store.addMatch(finished("m1", "2:1"))

	_, err := svc.ApplyMatchResult(context.Background(), match)
	require.NoError(t, err)

	res, err := svc.ApplyMatchResult(context.Background(), match)
	svc.Wait()

	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrAlreadyApplied)
	r1, _ := store.rating("t1")
	r2, _ := store.rating("t2")
	assert.Equal(t, 1016, r1)
	assert.Equal(t, 984, r2)
	assert.Equal(t, 2, store.historyLen())
}

func TestApplyMatchResultLockHeld(t *testing.T) {
	store := newFakeStore()
	locker := lock.NewLocalLocker()
	svc := NewRatingService(store, locker, zerolog.Nop())
	match := store.addMatch(finished("m1", "2:1"))

	release, err := locker.Acquire(context.Background(), "m1")
	require.NoError(t, err)
	defer release()

	res, err := svc.ApplyMatchResult(context.Background(), match)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrAlreadyApplied)
	assert.Empty(t, store.writes)
}

func TestApplyMatchResultConcurrentDoubleSubmit(t *testing.T) {
	store := newFakeStore()
	svc := newRatingService(store)
	match := store.addMatch(finished("m1", "2:1"))

	var applied atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := *match
			if _, err := svc.ApplyMatchResult(context.Background(), &m); err == nil {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()
	svc.Wait()

	assert.Equal(t, int32(1), applied.Load())
	r1, _ := store.rating("t1")
	assert.Equal(t, 1016, r1)
	assert.Equal(t, 2, store.historyLen())
}

func TestPredictMatch(t *testing.T) {
	store := newFakeStore()
	store.ratings["t1"] = 1200
	svc := newRatingService(store)

	p := svc.PredictMatch(context.Background(), "t1", "t2")
	assert.Equal(t, 76.0, p.Team1Win)
	assert.Equal(t, 24.0, p.Team2Win)
	assert.Equal(t, 10.0, p.Draw)
	assert.Equal(t, 200, p.RatingDifference)

	p = svc.PredictMatch(context.Background(), "t3", "t4")
	assert.Equal(t, 50.0, p.Team1Win)
	assert.Equal(t, 0, p.RatingDifference)
}

func TestPredictMatchUnreadableRatings(t *testing.T) {
	store := newFakeStore()
	store.ratings["t2"] = 1200
	store.getErr["t1"] = errors.New("boom")
	svc := newRatingService(store)

	p := svc.PredictMatch(context.Background(), "t1", "t2")
	assert.Equal(t, 24.0, p.Team1Win, "unreadable rating counts as initial")

	store.getErr["t2"] = errors.New("boom")
	p = svc.PredictMatch(context.Background(), "t1", "t2")
	assert.Equal(t, 0.5, p.Team1Win)
	assert.Equal(t, 0.5, p.Team2Win)
	assert.Equal(t, 0.05, p.Draw)
}

func TestGetTeamStanding(t *testing.T) {
	store := newFakeStore()
	store.teams["t1"] = domain.Team{ID: "t1", Name: "Альфа"}
	store.teams["t2"] = domain.Team{ID: "t2", Name: "Бета"}
	store.ratings["t2"] = 1300
	svc := newRatingService(store)

	st, err := svc.GetTeamStanding(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1000, st.Rating)
	assert.Equal(t, "Начинающий", st.Rank.Name)
	assert.Equal(t, 83, st.Progress.Progress)

	st, err = svc.GetTeamStanding(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, "Новичок", st.Rank.Name)
	assert.Equal(t, 50, st.Progress.Progress)
	assert.Equal(t, 100, st.Progress.PointsToNext)

	_, err = svc.GetTeamStanding(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetLeaderboard(t *testing.T) {
	store := newFakeStore()
	store.teams["a"] = domain.Team{ID: "a", Name: "Альфа", City: "Казань"}
	store.teams["b"] = domain.Team{ID: "b", Name: "Бета", City: "Казань"}
	store.teams["c"] = domain.Team{ID: "c", Name: "Гамма", City: "Самара"}
	store.ratings["b"] = 2450
	store.ratings["c"] = 1500
	svc := newRatingService(store)

	entries, err := svc.GetLeaderboard(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, "b", entries[0].Team.ID)
	assert.Equal(t, "Гроссмейстер", entries[0].Rank.Name)
	assert.Equal(t, "c", entries[1].Team.ID)
	assert.Equal(t, 3, entries[2].Position)
	assert.Equal(t, 1000, entries[2].Rating)

	kazan, err := svc.GetLeaderboard(context.Background(), "Казань", 1)
	require.NoError(t, err)
	require.Len(t, kazan, 1)
	assert.Equal(t, "b", kazan[0].Team.ID)
}

func TestGetRatingHistoryLimit(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 150; i++ {
		store.history = append(store.history, domain.RatingHistoryEntry{TeamID: "t1", OldRating: 1000 + i, NewRating: 1001 + i})
	}
	svc := newRatingService(store)

	entries, err := svc.GetRatingHistory(context.Background(), "t1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
	assert.Equal(t, 1149, entries[0].OldRating)

	entries, err = svc.GetRatingHistory(context.Background(), "t1", 1000)
	require.NoError(t, err)
	assert.Len(t, entries, 100)
}
