package elo

type Tier struct {
	Threshold int    `json:"threshold"`
	Name      string `json:"name"`
	Color     string `json:"color"`
}

// Tiers is ordered by threshold, highest first.
var Tiers = []Tier{
	{Threshold: 2400, Name: "Гроссмейстер", Color: "#ff4d4f"},
	{Threshold: 2200, Name: "Мастер", Color: "#fa8c16"},
	{Threshold: 2000, Name: "Кандидат в мастера", Color: "#faad14"},
	{Threshold: 1800, Name: "Эксперт", Color: "#722ed1"},
	{Threshold: 1600, Name: "Специалист", Color: "#1890ff"},
	{Threshold: 1400, Name: "Любитель", Color: "#13c2c2"},
	{Threshold: 1200, Name: "Новичок", Color: "#52c41a"},
	{Threshold: 0, Name: "Начинающий", Color: "#8c8c8c"},
}

// progressThresholds omits the zero tier.
var progressThresholds = []int{2400, 2200, 2000, 1800, 1600, 1400, 1200}

func GetRank(rating int) Tier {
	for _, t := range Tiers {
		if rating >= t.Threshold {
			return t
		}
	}
	return Tiers[len(Tiers)-1]
}

type Progress struct {
	Progress     int     `json:"progress"`
	NextRank     *string `json:"next_rank"`
	PointsToNext int     `json:"points_to_next"`
}

func GetNextRankProgress(rating int) Progress {
	current := len(progressThresholds)
	for i, t := range progressThresholds {
		if rating >= t {
			current = i
			break
		}
	}

	if current == 0 {
		return Progress{Progress: 100, NextRank: nil, PointsToNext: 0}
	}

	next := progressThresholds[current-1]
	prev := 0
	if current < len(progressThresholds) {
		prev = progressThresholds[current]
	}

	progress := Round(float64(rating-prev) / float64(next-prev) * 100)
	progress = max(0, min(100, progress))

	nextRank := GetRank(next).Name
	return Progress{
		Progress:     progress,
		NextRank:     &nextRank,
		PointsToNext: next - rating,
	}
}
