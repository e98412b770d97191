package aggregation

import "testing"

func TestRound3(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{11.0 / 3, 3.667},
		{2.0 / 3, 0.667},
		{7.25 / 1.5, 4.833},
		{5, 5},
		{-2, -2},
		{0, 0},
		// exact binary tie rounds to the even neighbour
		{0.0625, 0.062},
		{0.1875, 0.188},
	}
	for _, tt := range tests {
		if got := Round3(tt.in); got != tt.want {
			t.Errorf("Round3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRound3Idempotent(t *testing.T) {
	for _, v := range []float64{1.0 / 3, 4.8333333, 5.5555, 123.4567} {
		once := Round3(v)
		if twice := Round3(once); twice != once {
			t.Errorf("Round3(Round3(%v)) = %v, want %v", v, twice, once)
		}
	}
}
