package domain

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindInvalidMatchState ErrorKind = iota + 1
	KindRatingFetch
	KindAlreadyApplied
	KindRatingWrite
	KindHistoryAppend
	KindNotFound
	KindInvalidArgument
)

var kindNames = map[ErrorKind]string{
	KindInvalidMatchState: "invalid_match_state",
	KindRatingFetch:       "rating_fetch_error",
	KindAlreadyApplied:    "already_applied",
	KindRatingWrite:       "rating_write_error",
	KindHistoryAppend:     "history_append_error",
	KindNotFound:          "not_found",
	KindInvalidArgument:   "invalid_argument",
}

// user-facing texts shown by the league client
var kindMessages = map[ErrorKind]string{
	KindInvalidMatchState: "Матч ещё не завершён или счёт указан неверно",
	KindRatingFetch:       "Не удалось загрузить рейтинг команд",
	KindAlreadyApplied:    "Рейтинг по этому матчу уже начислен",
	KindRatingWrite:       "Не удалось сохранить рейтинг команды",
	KindHistoryAppend:     "Не удалось записать историю рейтинга",
	KindNotFound:          "Запись не найдена",
	KindInvalidArgument:   "Некорректные данные",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error_kind(%d)", int(k))
}

func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "Неизвестная ошибка"
}

// Sentinels for errors.Is; a *RatingError matches the sentinel of its kind.
var (
	ErrInvalidMatchState = &RatingError{Kind: KindInvalidMatchState}
	ErrRatingFetch       = &RatingError{Kind: KindRatingFetch}
	ErrAlreadyApplied    = &RatingError{Kind: KindAlreadyApplied}
	ErrRatingWrite       = &RatingError{Kind: KindRatingWrite}
	ErrHistoryAppend     = &RatingError{Kind: KindHistoryAppend}
	ErrNotFound          = &RatingError{Kind: KindNotFound}
	ErrInvalidArgument   = &RatingError{Kind: KindInvalidArgument}
)

type RatingError struct {
	Kind    ErrorKind
	MatchID string
	TeamID  string
	Err     error
}

func NewRatingError(kind ErrorKind, matchID, teamID string, err error) *RatingError {
	return &RatingError{Kind: kind, MatchID: matchID, TeamID: teamID, Err: err}
}

func (e *RatingError) Error() string {
	msg := e.Kind.String()
	if e.MatchID != "" {
		msg += " match=" + e.MatchID
	}
	if e.TeamID != "" {
		msg += " team=" + e.TeamID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RatingError) Unwrap() error {
	return e.Err
}

func (e *RatingError) Is(target error) bool {
	var t *RatingError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.MatchID == "" && t.TeamID == "" && t.Err == nil
}

// KindOf reports the kind carried by err, or 0 when err is not a *RatingError.
func KindOf(err error) ErrorKind {
	var re *RatingError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}
