package aggregation

import (
	"fmt"
	"strings"
)

// ExamCount selects which grades count toward Subject.NumExams
type ExamCount int

const (
	// CountAllGrades counts every grade row, graded or not
	CountAllGrades ExamCount = iota
	// CountGradedOnly counts only grades with a non-zero value
	CountGradedOnly
)

// PointsRule selects how an average is converted into points
type PointsRule int

const (
	// PointsDoubled awards (average-4)*2 above the passing grade and 0 otherwise
	PointsDoubled PointsRule = iota
	// PointsLegacy awards (average-4) above the passing grade and a doubled
	// negative margin below it
	PointsLegacy
)

// Denominator selects what the user-level mean divides by
type Denominator int

const (
	// DenominatorWeight divides by the summed weight of graded subjects
	DenominatorWeight Denominator = iota
	// DenominatorCount divides by the number of graded subjects
	DenominatorCount
)

// Scheme bundles the interpretation choices of the aggregation rules
type Scheme struct {
	ExamCount   ExamCount
	Points      PointsRule
	Denominator Denominator
}

// CanonicalScheme returns the weight-accumulating scheme with full-row exam counts
// and doubled points
func CanonicalScheme() Scheme {
	return Scheme{
		ExamCount:   CountAllGrades,
		Points:      PointsDoubled,
		Denominator: DenominatorWeight,
	}
}

// ParseScheme builds a Scheme from its configuration names. Empty names keep the
// canonical choice.
func ParseScheme(examCount, points, denominator string) (Scheme, error) {
	scheme := CanonicalScheme()

	switch strings.ToLower(strings.TrimSpace(examCount)) {
	case "", "all":
	case "graded":
		scheme.ExamCount = CountGradedOnly
	default:
		return Scheme{}, fmt.Errorf("unknown exam count mode %q", examCount)
	}

	switch strings.ToLower(strings.TrimSpace(points)) {
	case "", "doubled":
	case "legacy":
		scheme.Points = PointsLegacy
	default:
		return Scheme{}, fmt.Errorf("unknown points rule %q", points)
	}

	switch strings.ToLower(strings.TrimSpace(denominator)) {
	case "", "weight":
	case "count":
		scheme.Denominator = DenominatorCount
	default:
		return Scheme{}, fmt.Errorf("unknown denominator %q", denominator)
	}

	return scheme, nil
}

// points converts a subject average into points
func (s Scheme) points(average float64) float64 {
	if s.Points == PointsLegacy {
		switch {
		case average > PassingGrade:
			return Round3(average - PassingGrade)
		case average == 0:
			return 0
		default:
			return Round3((average - PassingGrade) * 2)
		}
	}

	if average > PassingGrade {
		return Round3((average - PassingGrade) * 2)
	}
	return 0
}
