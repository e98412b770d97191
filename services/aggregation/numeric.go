package aggregation

import "strconv"

// PassingGrade is the threshold on the 1-6 scale above which points are earned
const PassingGrade = 4.0

// Round3 rounds v to three decimal places. Rounding is done on the exact binary value,
// so exact ties go to the even neighbour and near-ties follow the stored value.
func Round3(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// floatValue treats a missing value as zero
func floatValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// intValue treats a missing value as zero
func intValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
