package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"league-ratings/internal/config"
	"league-ratings/internal/constants"
	"league-ratings/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// SupabaseClient stores teams, matches and rating history through the
// PostgREST endpoint of a hosted Supabase project.
type SupabaseClient struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

func NewSupabaseClient(cfg *config.Config, logger zerolog.Logger) *SupabaseClient {
	return &SupabaseClient{
		baseURL: strings.TrimRight(cfg.SupabaseURL, "/") + "/rest/v1",
		apiKey:  cfg.SupabaseKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     50,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

type teamDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Rating    *int      `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d teamDTO) toDomain() domain.Team {
	return domain.Team{
		ID:        d.ID,
		Name:      d.Name,
		City:      d.City,
		Rating:    d.Rating,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type matchDTO struct {
	ID              string     `json:"id"`
	Team1ID         *string    `json:"team1_id"`
	Team2ID         *string    `json:"team2_id"`
	Status          string     `json:"status"`
	Score           string     `json:"score"`
	PlayedAt        *time.Time `json:"played_at"`
	RatingAppliedAt *time.Time `json:"rating_applied_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (d matchDTO) toDomain() domain.Match {
	m := domain.Match{
		ID:              d.ID,
		Status:          domain.MatchStatus(d.Status),
		Score:           d.Score,
		PlayedAt:        d.PlayedAt,
		RatingAppliedAt: d.RatingAppliedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.Team1ID != nil {
		m.Team1ID = *d.Team1ID
	}
	if d.Team2ID != nil {
		m.Team2ID = *d.Team2ID
	}
	return m
}

type historyDTO struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	TeamID    string    `json:"team_id"`
	OldRating int       `json:"old_rating"`
	NewRating int       `json:"new_rating"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *SupabaseClient) GetRating(ctx context.Context, teamID string) (int, bool, error) {
	q := url.Values{}
	q.Set("select", "rating")
	q.Set("id", "eq."+teamID)

	rows, err := doRequest[[]struct {
		Rating *int `json:"rating"`
	}](ctx, c, fasthttp.MethodGet, "teams", q, nil, "")
	if err != nil {
		return 0, false, fmt.Errorf("failed to get rating for team %s: %w", teamID, err)
	}
	if len(*rows) == 0 || (*rows)[0].Rating == nil {
		return 0, false, nil
	}
	return *(*rows)[0].Rating, true, nil
}

func (c *SupabaseClient) SetRating(ctx context.Context, teamID string, rating int) error {
	q := url.Values{}
	q.Set("id", "eq."+teamID)

	body := map[string]any{"rating": rating, "updated_at": time.Now().UTC()}
	rows, err := doRequest[[]teamDTO](ctx, c, fasthttp.MethodPatch, "teams", q, body, "return=representation")
	if err != nil {
		return fmt.Errorf("failed to set rating for team %s: %w", teamID, err)
	}
	if len(*rows) == 0 {
		return domain.NewRatingError(domain.KindNotFound, "", teamID, errors.New("team does not exist"))
	}
	return nil
}

func (c *SupabaseClient) AppendHistory(ctx context.Context, entry domain.RatingHistoryEntry) error {
	dto := historyDTO{
		ID:        entry.ID,
		MatchID:   entry.MatchID,
		TeamID:    entry.TeamID,
		OldRating: entry.OldRating,
		NewRating: entry.NewRating,
		CreatedAt: entry.CreatedAt,
	}
	if dto.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		dto.ID = id
	}
	if dto.CreatedAt.IsZero() {
		dto.CreatedAt = time.Now().UTC()
	}

	if _, err := doRequest[struct{}](ctx, c, fasthttp.MethodPost, "team_rating_history", nil, dto, "return=minimal"); err != nil {
		return fmt.Errorf("failed to append rating history: %w", err)
	}
	return nil
}

func (c *SupabaseClient) GetHistory(ctx context.Context, teamID string, limit int) ([]domain.RatingHistoryEntry, error) {
	q := url.Values{}
	q.Set("team_id", "eq."+teamID)
	q.Set("order", "created_at.desc,id.desc")
	q.Set("limit", strconv.Itoa(limit))

	rows, err := doRequest[[]historyDTO](ctx, c, fasthttp.MethodGet, "team_rating_history", q, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get rating history for team %s: %w", teamID, err)
	}

	result := make([]domain.RatingHistoryEntry, len(*rows))
	for i, r := range *rows {
		result[i] = domain.RatingHistoryEntry{
			ID:        r.ID,
			MatchID:   r.MatchID,
			TeamID:    r.TeamID,
			OldRating: r.OldRating,
			NewRating: r.NewRating,
			CreatedAt: r.CreatedAt,
		}
	}
	return result, nil
}

func (c *SupabaseClient) CreateTeam(ctx context.Context, team *domain.Team) error {
	dto := teamDTO{
		ID:        team.ID,
		Name:      team.Name,
		City:      team.City,
		Rating:    team.Rating,
		CreatedAt: team.CreatedAt,
		UpdatedAt: team.UpdatedAt,
	}
	if _, err := doRequest[struct{}](ctx, c, fasthttp.MethodPost, "teams", nil, dto, "return=minimal"); err != nil {
		return fmt.Errorf("failed to insert team %s: %w", team.ID, err)
	}
	return nil
}

func (c *SupabaseClient) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	q := url.Values{}
	q.Set("id", "eq."+teamID)

	rows, err := doRequest[[]teamDTO](ctx, c, fasthttp.MethodGet, "teams", q, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get team %s: %w", teamID, err)
	}
	if len(*rows) == 0 {
		return nil, domain.NewRatingError(domain.KindNotFound, "", teamID, nil)
	}
	team := (*rows)[0].toDomain()
	return &team, nil
}

// ListLeaderboard sorts client side: PostgREST cannot order by
// COALESCE(rating, 1000).
func (c *SupabaseClient) ListLeaderboard(ctx context.Context, city string, limit int) ([]domain.Team, error) {
	q := url.Values{}
	if city != "" {
		q.Set("city", "eq."+city)
	}

	rows, err := doRequest[[]teamDTO](ctx, c, fasthttp.MethodGet, "teams", q, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}

	teams := make([]domain.Team, len(*rows))
	for i, r := range *rows {
		teams[i] = r.toDomain()
	}
	domain.SortByRating(teams)
	if len(teams) > limit {
		teams = teams[:limit]
	}
	return teams, nil
}

func (c *SupabaseClient) CreateMatch(ctx context.Context, match *domain.Match) error {
	dto := matchDTO{
		ID:        match.ID,
		Team1ID:   optional(match.Team1ID),
		Team2ID:   optional(match.Team2ID),
		Status:    string(match.Status),
		Score:     match.Score,
		PlayedAt:  match.PlayedAt,
		CreatedAt: match.CreatedAt,
		UpdatedAt: match.UpdatedAt,
	}
	if _, err := doRequest[struct{}](ctx, c, fasthttp.MethodPost, "matches", nil, dto, "return=minimal"); err != nil {
		return fmt.Errorf("failed to insert match %s: %w", match.ID, err)
	}
	return nil
}

func (c *SupabaseClient) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	q := url.Values{}
	q.Set("id", "eq."+matchID)

	rows, err := doRequest[[]matchDTO](ctx, c, fasthttp.MethodGet, "matches", q, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, err)
	}
	if len(*rows) == 0 {
		return nil, domain.NewRatingError(domain.KindNotFound, matchID, "", nil)
	}
	match := (*rows)[0].toDomain()
	return &match, nil
}

func (c *SupabaseClient) FinishMatch(ctx context.Context, matchID, score string, at time.Time) error {
	match, err := c.GetMatch(ctx, matchID)
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

	q := url.Values{}
	q.Set("id", "eq."+matchID)
	q.Set("rating_applied_at", "is.null")
	body := map[string]any{
		"status":     string(domain.MatchStatusFinished),
		"score":      score,
		"played_at":  playedAt,
		"updated_at": at,
	}

	rows, err := doRequest[[]matchDTO](ctx, c, fasthttp.MethodPatch, "matches", q, body, "return=representation")
	if err != nil {
		return fmt.Errorf("failed to finish match %s: %w", matchID, err)
	}
	if len(*rows) == 0 {
		return domain.NewRatingError(domain.KindAlreadyApplied, matchID, "", nil)
	}
	return nil
}

func (c *SupabaseClient) ClaimRatingApplication(ctx context.Context, matchID string, at time.Time) (bool, error) {
	q := url.Values{}
	q.Set("id", "eq."+matchID)
	q.Set("rating_applied_at", "is.null")
	body := map[string]any{"rating_applied_at": at, "updated_at": at}

	rows, err := doRequest[[]matchDTO](ctx, c, fasthttp.MethodPatch, "matches", q, body, "return=representation")
	if err != nil {
		return false, fmt.Errorf("failed to claim match %s: %w", matchID, err)
	}

	c.logger.Debug().Str("match_id", matchID).Bool("claimed", len(*rows) == 1).Msg("rating claim")
	return len(*rows) == 1, nil
}

func doRequest[T any](ctx context.Context, c *SupabaseClient, method, table string, query url.Values, body any, prefer string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + "/" + table
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.DoTimeout(req, resp, constants.ExternalAPITimeout); err != nil {
			return nil, err
		}
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		c.logger.Warn().
			Int("status", status).
			Str("method", method).
			Str("table", table).
			Bytes("body", resp.Body()).
			Msg("supabase request failed")
		return nil, fmt.Errorf("supabase error: %d", status)
	}

	var result T
	if len(resp.Body()) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode supabase response: %w", err)
	}
	return &result, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
