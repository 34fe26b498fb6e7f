// Package elo holds the pure rating math of the league: Elo updates, rank
// tiers and pre-match predictions. Nothing here touches storage.
package elo

import "math"

const (
	KFactor       = 32.0
	InitialRating = 1000
)

type Result struct {
	Winner       int `json:"winner"`
	Loser        int `json:"loser"`
	PointsGained int `json:"points_gained"`
	PointsLost   int `json:"points_lost"`
}

// ExpectedScore is the logistic probability of a side rated ra beating a side
// rated rb.
func ExpectedScore(ra, rb int) float64 {
	return 1 / (1 + math.Pow(10, float64(rb-ra)/400))
}

// CalculateElo returns the updated ratings of both sides. With isDraw set the
// winner/loser labels are arbitrary, both sides score 0.5.
func CalculateElo(winnerRating, loserRating int, isDraw bool) Result {
	expectedWinner := ExpectedScore(winnerRating, loserRating)
	expectedLoser := ExpectedScore(loserRating, winnerRating)

	winnerScore, loserScore := 1.0, 0.0
	if isDraw {
		winnerScore, loserScore = 0.5, 0.5
	}

	newWinner := Round(float64(winnerRating) + KFactor*(winnerScore-expectedWinner))
	newLoser := Round(float64(loserRating) + KFactor*(loserScore-expectedLoser))

	return Result{
		Winner:       newWinner,
		Loser:        newLoser,
		PointsGained: newWinner - winnerRating,
		PointsLost:   loserRating - newLoser,
	}
}

// Round rounds half up, -2.5 becomes -2.
func Round(f float64) int {
	return int(math.Floor(f + 0.5))
}
