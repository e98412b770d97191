package aggregation

import "github.com/SirCraft007/grade-api/model"

// SubjectSummary is the derived state of one subject. Average, Points and NumExams are
// nil when the subject has no exams.
type SubjectSummary struct {
	SubjectID uint     `json:"subject_id"`
	UserID    uint     `json:"user_id"`
	Average   *float64 `json:"average"`
	Points    *float64 `json:"points"`
	NumExams  *int     `json:"num_exams"`
	Weight    float64  `json:"weight"`
}

// SubjectAggregator derives a subject summary from the subject's grades
type SubjectAggregator struct {
	Policy WeightPolicy
	Scheme Scheme
}

// Aggregate computes the summary of subject from the complete set of its grades.
// Only graded entries feed the weighted mean; the order of grades is irrelevant.
func (a SubjectAggregator) Aggregate(subject model.Subject, grades []model.Grade) SubjectSummary {
	summary := SubjectSummary{
		SubjectID: subject.ID,
		UserID:    subject.UserID,
		Weight:    a.Policy.Resolve(subject.Name, subject.BaseWeight),
	}

	var val, sumer float64
	graded := 0
	for _, g := range grades {
		if !g.IsGraded() {
			continue
		}
		val += *g.Value * g.Weight
		sumer += g.Weight
		graded++
	}

	average := 0.0
	if sumer != 0 {
		average = Round3(val / sumer)
	}

	numExams := len(grades)
	if a.Scheme.ExamCount == CountGradedOnly {
		numExams = graded
	}
	if numExams == 0 {
		return summary
	}

	points := a.Scheme.points(average)
	summary.Average = &average
	summary.Points = &points
	summary.NumExams = &numExams
	return summary
}

// Apply copies the derived fields of s onto subject
func (s SubjectSummary) Apply(subject *model.Subject) {
	subject.Average = s.Average
	subject.Points = s.Points
	subject.NumExams = s.NumExams
	subject.Weight = s.Weight
}
