package engine

import "fmt"

func NextNumber(drawn []int) (int, error) {
	return NextNumberWith(drawn, defaultRand)
}

// NextNumberWith picks uniformly from the numbers not yet in drawn.
// Callers must serialise draws per session; see the draw CAS in game.Service.
func NextNumberWith(drawn []int, r Rand) (int, error) {
	called := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		called[n] = true
	}

	avail := make([]int, 0, MaxNumber)
	for n := 1; n <= MaxNumber; n++ {
		if !called[n] {
			avail = append(avail, n)
		}
	}
	if len(avail) == 0 {
		return 0, ErrExhausted
	}
	return avail[r.IntN(len(avail))], nil
}

func Remaining(drawn []int) int {
	return MaxNumber - len(drawn)
}

// ValidateDrawn checks the drawn sequence: every entry in range, no repeats.
func ValidateDrawn(drawn []int) error {
	seen := make(map[int]bool, len(drawn))
	for i, n := range drawn {
		if !ValidNumber(n) {
			return fmt.Errorf("draw %d: %d out of range", i+1, n)
		}
		if seen[n] {
			return fmt.Errorf("draw %d: %d already called", i+1, n)
		}
		seen[n] = true
	}
	return nil
}
