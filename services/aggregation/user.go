package aggregation

import "github.com/SirCraft007/grade-api/model"

// UserSummary is the derived state of one user
type UserSummary struct {
	UserID       uint    `json:"user_id"`
	TotalAverage float64 `json:"total_average"`
	TotalPoints  float64 `json:"total_points"`
	TotalExams   int     `json:"total_exams"`
}

// UserAggregator derives a user summary from the user's already recomputed subjects
type UserAggregator struct {
	Scheme Scheme
}

// Aggregate folds the subject summaries into user totals. Subjects without exams are
// left out of the mean entirely.
func (a UserAggregator) Aggregate(userID uint, subjects []model.Subject) UserSummary {
	var val, sumer, points float64
	exams := 0
	for _, s := range subjects {
		if s.NumExams == nil {
			continue
		}
		exams += intValue(s.NumExams)
		val += floatValue(s.Average) * s.Weight
		if a.Scheme.Denominator == DenominatorCount {
			sumer++
		} else {
			sumer += 1 * s.Weight
		}
		points += floatValue(s.Points) * s.Weight
	}

	total := 0.0
	if sumer != 0 {
		total = Round3(val / sumer)
	}

	return UserSummary{
		UserID:       userID,
		TotalAverage: total,
		TotalPoints:  points,
		TotalExams:   exams,
	}
}
