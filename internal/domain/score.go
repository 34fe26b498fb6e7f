package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type Outcome int

const (
	OutcomeDraw Outcome = iota
	OutcomeTeam1Win
	OutcomeTeam2Win
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTeam1Win:
		return "team1"
	case OutcomeTeam2Win:
		return "team2"
	default:
		return "draw"
	}
}

// ParseScore reads a final score of the form "A:B" where both sides are
// non-negative integers.
func ParseScore(score string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(score), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid score %q: expected \"A:B\"", score)
	}

	s1, err := parseGoals(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid score %q: %w", score, err)
	}
	s2, err := parseGoals(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid score %q: %w", score, err)
	}

	return s1, s2, nil
}

func parseGoals(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%q is not a non-negative integer", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a non-negative integer", s)
	}
	return n, nil
}

func OutcomeOf(score1, score2 int) Outcome {
	switch {
	case score1 > score2:
		return OutcomeTeam1Win
	case score2 > score1:
		return OutcomeTeam2Win
	default:
		return OutcomeDraw
	}
}
