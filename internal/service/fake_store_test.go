package service

import (
	"context"
	"sync"
	"time"

	"league-ratings/internal/domain"
)

type fakeStore struct {
	mu sync.Mutex

	ratings map[string]int
	teams   map[string]domain.Team
	matches map[string]*domain.Match
	history []domain.RatingHistoryEntry
	writes  []string

	getErr     map[string]error
	setErr     map[string]error
	historyErr error
	claimErr   error
	matchErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ratings: map[string]int{},
		teams:   map[string]domain.Team{},
		matches: map[string]*domain.Match{},
		getErr:  map[string]error{},
		setErr:  map[string]error{},
	}
}

func (f *fakeStore) addMatch(m domain.Match) *domain.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[m.ID] = &m
	cp := m
	return &cp
}

func (f *fakeStore) rating(teamID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.ratings[teamID]
	return r, ok
}

func (f *fakeStore) historyLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}

func (f *fakeStore) GetRating(_ context.Context, teamID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[teamID]; err != nil {
		return 0, false, err
	}
	r, ok := f.ratings[teamID]
	return r, ok, nil
}

func (f *fakeStore) SetRating(_ context.Context, teamID string, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, teamID)
	if err := f.setErr[teamID]; err != nil {
		return err
	}
	f.ratings[teamID] = rating
	return nil
}

func (f *fakeStore) AppendHistory(_ context.Context, entry domain.RatingHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return f.historyErr
	}
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeStore) GetHistory(_ context.Context, teamID string, limit int) ([]domain.RatingHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RatingHistoryEntry
	for i := len(f.history) - 1; i >= 0 && len(out) < limit; i-- {
		if f.history[i].TeamID == teamID {
			out = append(out, f.history[i])
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimRatingApplication(_ context.Context, matchID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	m, ok := f.matches[matchID]
	if !ok || m.RatingAppliedAt != nil {
		return false, nil
	}
	m.RatingAppliedAt = &at
	return true, nil
}

func (f *fakeStore) CreateTeam(_ context.Context, team *domain.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teams[team.ID] = *team
	return nil
}

func (f *fakeStore) GetTeam(_ context.Context, teamID string) (*domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[teamID]
	if !ok {
		return nil, domain.NewRatingError(domain.KindNotFound, "", teamID, nil)
	}
	if r, ok := f.ratings[teamID]; ok {
		t.Rating = &r
	}
	return &t, nil
}

func (f *fakeStore) ListLeaderboard(_ context.Context, city string, limit int) ([]domain.Team, error) {
	f.mu.Lock()
	var teams []domain.Team
	for _, t := range f.teams {
		if city != "" && t.City != city {
			continue
		}
		if r, ok := f.ratings[t.ID]; ok {
			t.Rating = &r
		}
		teams = append(teams, t)
	}
	f.mu.Unlock()

	domain.SortByRating(teams)
	if len(teams) > limit {
		teams = teams[:limit]
	}
	return teams, nil
}

func (f *fakeStore) CreateMatch(_ context.Context, match *domain.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := *match
	f.matches[m.ID] = &m
	return nil
}

func (f *fakeStore) GetMatch(_ context.Context, matchID string) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	m, ok := f.matches[matchID]
	if !ok {
		return nil, domain.NewRatingError(domain.KindNotFound, matchID, "", nil)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) FinishMatch(_ context.Context, matchID, score string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return domain.NewRatingError(domain.KindNotFound, matchID, "", nil)
	}
	if m.RatingAppliedAt != nil {
		return domain.NewRatingError(domain.KindAlreadyApplied, matchID, "", nil)
	}
	m.Status = domain.MatchStatusFinished
	m.Score = score
	if m.PlayedAt == nil {
		m.PlayedAt = &at
	}
	return nil
}
