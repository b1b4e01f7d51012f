package engine

import "fmt"

const (
	Size      = 5
	Center    = 2
	FreeCell  = 0
	MaxNumber = 75
)

type Column struct {
	Letter string
	Min    int
	Max    int
}

// Columns is the B-I-N-G-O layout: column c of every board draws from Columns[c].
var Columns = [Size]Column{
	{Letter: "B", Min: 1, Max: 15},
	{Letter: "I", Min: 16, Max: 30},
	{Letter: "N", Min: 31, Max: 45},
	{Letter: "G", Min: 46, Max: 60},
	{Letter: "O", Min: 61, Max: 75},
}

func ValidNumber(n int) bool {
	return n >= 1 && n <= MaxNumber
}

// ColumnOf returns the board column a number belongs to, or -1.
func ColumnOf(n int) int {
	for i, c := range Columns {
		if n >= c.Min && n <= c.Max {
			return i
		}
	}
	return -1
}

func Letter(n int) string {
	if c := ColumnOf(n); c >= 0 {
		return Columns[c].Letter
	}
	return ""
}

// FormatNumber renders a called number the way it is announced, e.g. "G-52".
func FormatNumber(n int) string {
	return fmt.Sprintf("%s-%d", Letter(n), n)
}
