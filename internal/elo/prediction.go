package elo

// DrawProbability is reported as is and never renormalised against the win
// probabilities, so the three numbers do not sum to 100.
const DrawProbability = 0.1

type Prediction struct {
	Team1Win         float64 `json:"team1_win"`
	Team2Win         float64 `json:"team2_win"`
	Draw             float64 `json:"draw"`
	RatingDifference int     `json:"rating_difference"`
}

// GetMatchPrediction returns win/draw chances as whole percentages.
func GetMatchPrediction(ratingA, ratingB int) Prediction {
	pA := ExpectedScore(ratingA, ratingB)
	pB := 1 - pA

	diff := ratingA - ratingB
	if diff < 0 {
		diff = -diff
	}

	return Prediction{
		Team1Win:         float64(Round(pA * 100)),
		Team2Win:         float64(Round(pB * 100)),
		Draw:             float64(Round(DrawProbability * 100)),
		RatingDifference: diff,
	}
}

// NeutralPrediction is used when neither team's rating can be resolved. Unlike
// GetMatchPrediction its values are fractions, not percentages.
func NeutralPrediction() Prediction {
	return Prediction{Team1Win: 0.5, Team2Win: 0.5, Draw: 0.05}
}
