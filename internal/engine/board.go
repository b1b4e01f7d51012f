package engine

import (
	"fmt"
	"math/rand/v2"
)

// Board is a player's card, indexed [row][col]. The centre holds FreeCell.
type Board [Size][Size]int

// Rand is the randomness the generators need; *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

var defaultRand Rand = globalRand{}

func GenerateBoard() Board {
	return GenerateBoardWith(defaultRand)
}

// GenerateBoardWith samples five distinct numbers per column from that
// column's range. Reseeding r reproduces the board.
func GenerateBoardWith(r Rand) Board {
	var b Board
	for col, c := range Columns {
		pool := make([]int, 0, c.Max-c.Min+1)
		for n := c.Min; n <= c.Max; n++ {
			pool = append(pool, n)
		}
		for row := 0; row < Size; row++ {
			i := r.IntN(len(pool))
			b[row][col] = pool[i]
			pool[i] = pool[len(pool)-1]
			pool = pool[:len(pool)-1]
		}
	}
	b[Center][Center] = FreeCell
	return b
}

// ValidateBoard reports the first structural problem with b, if any.
func ValidateBoard(b Board) error {
	if b[Center][Center] != FreeCell {
		return fmt.Errorf("centre cell is %d, want free", b[Center][Center])
	}
	for col, c := range Columns {
		seen := make(map[int]bool, Size)
		for row := 0; row < Size; row++ {
			if row == Center && col == Center {
				continue
			}
			n := b[row][col]
			if n < c.Min || n > c.Max {
				return fmt.Errorf("cell [%d][%d]=%d outside %s range %d-%d", row, col, n, c.Letter, c.Min, c.Max)
			}
			if seen[n] {
				return fmt.Errorf("duplicate %d in column %s", n, c.Letter)
			}
			seen[n] = true
		}
	}
	return nil
}
