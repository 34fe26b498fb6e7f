package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"league-ratings/internal/domain"
	"league-ratings/internal/elo"
	"league-ratings/internal/middleware"
	"league-ratings/internal/service"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

const RatingServicePath = "/league.v1.RatingService/"

const (
	CreateTeamProcedure       = RatingServicePath + "CreateTeam"
	CreateMatchProcedure      = RatingServicePath + "CreateMatch"
	FinishMatchProcedure      = RatingServicePath + "FinishMatch"
	ApplyMatchResultProcedure = RatingServicePath + "ApplyMatchResult"
	GetTeamStandingProcedure  = RatingServicePath + "GetTeamStanding"
	GetRatingHistoryProcedure = RatingServicePath + "GetRatingHistory"
	GetLeaderboardProcedure   = RatingServicePath + "GetLeaderboard"
	PredictMatchProcedure     = RatingServicePath + "PredictMatch"
)

// MutatingProcedures change stored state and sit behind bearer auth.
var MutatingProcedures = []string{
	CreateTeamProcedure,
	CreateMatchProcedure,
	FinishMatchProcedure,
	ApplyMatchResultProcedure,
}

type RatingServer struct {
	ratingSvc *service.RatingService
	matchSvc  *service.MatchService
	logger    zerolog.Logger
}

func NewRatingServer(ratingSvc *service.RatingService, matchSvc *service.MatchService, logger zerolog.Logger) *RatingServer {
	return &RatingServer{ratingSvc: ratingSvc, matchSvc: matchSvc, logger: logger}
}

// Handler returns the mount path and the connect handler for every procedure.
func (s *RatingServer) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodecPlain), connect.WithCodec(jsonCodecUTF8)}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateTeamProcedure, connect.NewUnaryHandler(CreateTeamProcedure, s.CreateTeam, opts...))
	mux.Handle(CreateMatchProcedure, connect.NewUnaryHandler(CreateMatchProcedure, s.CreateMatch, opts...))
	mux.Handle(FinishMatchProcedure, connect.NewUnaryHandler(FinishMatchProcedure, s.FinishMatch, opts...))
	mux.Handle(ApplyMatchResultProcedure, connect.NewUnaryHandler(ApplyMatchResultProcedure, s.ApplyMatchResult, opts...))
	mux.Handle(GetTeamStandingProcedure, connect.NewUnaryHandler(GetTeamStandingProcedure, s.GetTeamStanding, opts...))
	mux.Handle(GetRatingHistoryProcedure, connect.NewUnaryHandler(GetRatingHistoryProcedure, s.GetRatingHistory, opts...))
	mux.Handle(GetLeaderboardProcedure, connect.NewUnaryHandler(GetLeaderboardProcedure, s.GetLeaderboard, opts...))
	mux.Handle(PredictMatchProcedure, connect.NewUnaryHandler(PredictMatchProcedure, s.PredictMatch, opts...))
	return RatingServicePath, mux
}

func (s *RatingServer) CreateTeam(ctx context.Context, req *connect.Request[CreateTeamRequest]) (*connect.Response[Team], error) {
	defer s.observe(ctx, "CreateTeam", time.Now())

	team, err := s.matchSvc.CreateTeam(ctx, req.Msg.Name, req.Msg.City)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := toTeam(*team)
	return connect.NewResponse(&resp), nil
}

func (s *RatingServer) CreateMatch(ctx context.Context, req *connect.Request[CreateMatchRequest]) (*connect.Response[Match], error) {
	defer s.observe(ctx, "CreateMatch", time.Now())

	match, err := s.matchSvc.CreateMatch(ctx, req.Msg.Team1ID, req.Msg.Team2ID, req.Msg.PlayedAt)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toMatch(match)), nil
}

func (s *RatingServer) FinishMatch(ctx context.Context, req *connect.Request[FinishMatchRequest]) (*connect.Response[RatingResult], error) {
	defer s.observe(ctx, "FinishMatch", time.Now())

	if req.Msg.MatchID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("match_id is required"))
	}
	res, err := s.matchSvc.FinishMatch(ctx, req.Msg.MatchID, req.Msg.Score)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toRatingResult(res)), nil
}

func (s *RatingServer) ApplyMatchResult(ctx context.Context, req *connect.Request[ApplyMatchResultRequest]) (*connect.Response[RatingResult], error) {
	defer s.observe(ctx, "ApplyMatchResult", time.Now())

	if req.Msg.MatchID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("match_id is required"))
	}
	res, err := s.matchSvc.OnMatchFinished(ctx, req.Msg.MatchID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toRatingResult(res)), nil
}

func (s *RatingServer) GetTeamStanding(ctx context.Context, req *connect.Request[TeamRequest]) (*connect.Response[TeamStanding], error) {
	defer s.observe(ctx, "GetTeamStanding", time.Now())

	if req.Msg.TeamID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("team_id is required"))
	}
	st, err := s.ratingSvc.GetTeamStanding(ctx, req.Msg.TeamID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TeamStanding{
		Team:     toTeam(st.Team),
		Rating:   st.Rating,
		Rank:     st.Rank,
		Progress: st.Progress,
	}), nil
}

func (s *RatingServer) GetRatingHistory(ctx context.Context, req *connect.Request[RatingHistoryRequest]) (*connect.Response[RatingHistoryResponse], error) {
	defer s.observe(ctx, "GetRatingHistory", time.Now())

	if req.Msg.TeamID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("team_id is required"))
	}
	entries, err := s.ratingSvc.GetRatingHistory(ctx, req.Msg.TeamID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &RatingHistoryResponse{TeamID: req.Msg.TeamID, Entries: make([]HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, HistoryEntry{
			ID:        e.ID,
			MatchID:   e.MatchID,
			OldRating: e.OldRating,
			NewRating: e.NewRating,
			Change:    e.Change(),
			CreatedAt: e.CreatedAt,
		})
	}
	return connect.NewResponse(resp), nil
}

func (s *RatingServer) GetLeaderboard(ctx context.Context, req *connect.Request[LeaderboardRequest]) (*connect.Response[LeaderboardResponse], error) {
	defer s.observe(ctx, "GetLeaderboard", time.Now())

	entries, err := s.ratingSvc.GetLeaderboard(ctx, req.Msg.City, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &LeaderboardResponse{Entries: make([]LeaderboardEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, LeaderboardEntry{
			Position: e.Position,
			Team:     toTeam(e.Team),
			Rating:   e.Rating,
			Rank:     e.Rank,
		})
	}
	return connect.NewResponse(resp), nil
}

func (s *RatingServer) PredictMatch(ctx context.Context, req *connect.Request[PredictMatchRequest]) (*connect.Response[elo.Prediction], error) {
	defer s.observe(ctx, "PredictMatch", time.Now())

	if req.Msg.Team1ID == "" || req.Msg.Team2ID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("team1_id and team2_id are required"))
	}
	p := s.ratingSvc.PredictMatch(ctx, req.Msg.Team1ID, req.Msg.Team2ID)
	return connect.NewResponse(&p), nil
}

func (s *RatingServer) observe(ctx context.Context, method string, start time.Time) {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &s.logger
	}
	event := logger.Debug().
		Str("method", method).
		Int64("duration_ms", time.Since(start).Milliseconds())
	if claims := middleware.ClaimsFrom(ctx); claims != nil {
		event = event.Str("subject", claims.Subject)
	}
	event.Msg("rpc handled")
}

// toConnectError maps the rating error kinds onto connect codes. The
// user-facing message of the kind leads the error text; the kind name is
// sent in the Error-Kind metadata.
func toConnectError(err error) *connect.Error {
	kind := domain.KindOf(err)

	var code connect.Code
	switch kind {
	case domain.KindInvalidMatchState, domain.KindInvalidArgument:
		code = connect.CodeInvalidArgument
	case domain.KindRatingFetch:
		code = connect.CodeUnavailable
	case domain.KindAlreadyApplied:
		code = connect.CodeAlreadyExists
	case domain.KindNotFound:
		code = connect.CodeNotFound
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return connect.NewError(connect.CodeDeadlineExceeded, err)
		}
		return connect.NewError(connect.CodeInternal, err)
	}

	cerr := connect.NewError(code, fmt.Errorf("%s: %w", kind.Message(), err))
	cerr.Meta().Set("Error-Kind", kind.String())
	return cerr
}
