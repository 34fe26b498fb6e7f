package server

import (
	"time"

	"league-ratings/internal/domain"
	"league-ratings/internal/elo"
	"league-ratings/internal/service"
)

type CreateTeamRequest struct {
	Name string `json:"name"`
	City string `json:"city"`
}

type CreateMatchRequest struct {
	Team1ID  string     `json:"team1_id"`
	Team2ID  string     `json:"team2_id"`
	PlayedAt *time.Time `json:"played_at,omitempty"`
}

type FinishMatchRequest struct {
	MatchID string `json:"match_id"`
	Score   string `json:"score"`
}

type ApplyMatchResultRequest struct {
	MatchID string `json:"match_id"`
}

type TeamRequest struct {
	TeamID string `json:"team_id"`
}

type RatingHistoryRequest struct {
	TeamID string `json:"team_id"`
	Limit  int    `json:"limit"`
}

type LeaderboardRequest struct {
	City  string `json:"city"`
	Limit int    `json:"limit"`
}

type PredictMatchRequest struct {
	Team1ID string `json:"team1_id"`
	Team2ID string `json:"team2_id"`
}

type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Rating    int       `json:"rating"`
	Rated     bool      `json:"rated"`
	CreatedAt time.Time `json:"created_at"`
}

type Match struct {
	ID              string     `json:"id"`
	Team1ID         string     `json:"team1_id"`
	Team2ID         string     `json:"team2_id"`
	Status          string     `json:"status"`
	Score           string     `json:"score,omitempty"`
	PlayedAt        *time.Time `json:"played_at,omitempty"`
	RatingAppliedAt *time.Time `json:"rating_applied_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type RatingResult struct {
	MatchID      string                   `json:"match_id"`
	Outcome      string                   `json:"outcome"`
	Draw         bool                     `json:"draw"`
	Team1        service.TeamRatingChange `json:"team1"`
	Team2        service.TeamRatingChange `json:"team2"`
	Winner       int                      `json:"winner"`
	Loser        int                      `json:"loser"`
	PointsGained int                      `json:"points_gained"`
	PointsLost   int                      `json:"points_lost"`
	WriteErrors  []string                 `json:"write_errors,omitempty"`
}

type TeamStanding struct {
	Team     Team         `json:"team"`
	Rating   int          `json:"rating"`
	Rank     elo.Tier     `json:"rank"`
	Progress elo.Progress `json:"progress"`
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	OldRating int       `json:"old_rating"`
	NewRating int       `json:"new_rating"`
	Change    int       `json:"change"`
	CreatedAt time.Time `json:"created_at"`
}

type RatingHistoryResponse struct {
	TeamID  string         `json:"team_id"`
	Entries []HistoryEntry `json:"entries"`
}

type LeaderboardEntry struct {
	Position int      `json:"position"`
	Team     Team     `json:"team"`
	Rating   int      `json:"rating"`
	Rank     elo.Tier `json:"rank"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

func toTeam(t domain.Team) Team {
	return Team{
		ID:        t.ID,
		Name:      t.Name,
		City:      t.City,
		Rating:    t.CurrentRating(),
		Rated:     t.Rating != nil,
		CreatedAt: t.CreatedAt,
	}
}

func toMatch(m *domain.Match) *Match {
	return &Match{
		ID:              m.ID,
		Team1ID:         m.Team1ID,
		Team2ID:         m.Team2ID,
		Status:          string(m.Status),
		Score:           m.Score,
		PlayedAt:        m.PlayedAt,
		RatingAppliedAt: m.RatingAppliedAt,
		CreatedAt:       m.CreatedAt,
	}
}

func toRatingResult(r *service.MatchRatingResult) *RatingResult {
	res := &RatingResult{
		MatchID:      r.MatchID,
		Outcome:      r.Outcome.String(),
		Draw:         r.Draw,
		Team1:        r.Team1,
		Team2:        r.Team2,
		Winner:       r.Winner,
		Loser:        r.Loser,
		PointsGained: r.PointsGained,
		PointsLost:   r.PointsLost,
	}
	for _, err := range r.WriteErrors {
		res.WriteErrors = append(res.WriteErrors, err.Error())
	}
	return res
}
