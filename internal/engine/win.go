package engine

import "fmt"

type PatternKind string

const (
	PatternRow      PatternKind = "row"
	PatternColumn   PatternKind = "column"
	PatternDiagonal PatternKind = "diagonal"
)

// Pattern names one line on the board. Diagonal line 0 runs top-left to
// bottom-right, line 1 top-right to bottom-left.
type Pattern struct {
	Kind PatternKind `json:"kind"`
	Line int         `json:"line"`
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s %d", p.Kind, p.Line)
}

func (p Pattern) Validate() error {
	switch p.Kind {
	case PatternRow, PatternColumn:
		if p.Line < 0 || p.Line >= Size {
			return fmt.Errorf("%w: %s line %d out of range", ErrPatternInvalid, p.Kind, p.Line)
		}
	case PatternDiagonal:
		if p.Line != 0 && p.Line != 1 {
			return fmt.Errorf("%w: diagonal line %d out of range", ErrPatternInvalid, p.Line)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrPatternInvalid, p.Kind)
	}
	return nil
}

// Cells lists the [row, col] coordinates of the line. p must be valid.
func (p Pattern) Cells() [Size][2]int {
	var cells [Size][2]int
	for i := 0; i < Size; i++ {
		switch p.Kind {
		case PatternRow:
			cells[i] = [2]int{p.Line, i}
		case PatternColumn:
			cells[i] = [2]int{i, p.Line}
		case PatternDiagonal:
			if p.Line == 0 {
				cells[i] = [2]int{i, i}
			} else {
				cells[i] = [2]int{i, Size - 1 - i}
			}
		}
	}
	return cells
}

type Marks [Size][Size]bool

type Result struct {
	Won     bool    `json:"won"`
	Pattern Pattern `json:"pattern,omitzero"`
}

// MarkBoard marks every free cell and every cell whose number was drawn.
func MarkBoard(b Board, drawn []int) Marks {
	called := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		called[n] = true
	}
	var m Marks
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			m[r][c] = b[r][c] == FreeCell || called[b[r][c]]
		}
	}
	return m
}

// winOrder is the tie-break order: rows, columns, main then anti diagonal.
var winOrder = func() []Pattern {
	out := make([]Pattern, 0, 2*Size+2)
	for i := 0; i < Size; i++ {
		out = append(out, Pattern{Kind: PatternRow, Line: i})
	}
	for i := 0; i < Size; i++ {
		out = append(out, Pattern{Kind: PatternColumn, Line: i})
	}
	return append(out, Pattern{Kind: PatternDiagonal, Line: 0}, Pattern{Kind: PatternDiagonal, Line: 1})
}()

func CheckWin(m Marks) Result {
	for _, p := range winOrder {
		if lineMarked(m, p) {
			return Result{Won: true, Pattern: p}
		}
	}
	return Result{}
}

// VerifyPattern reports whether p is complete on b given the drawn numbers.
func VerifyPattern(b Board, drawn []int, p Pattern) bool {
	if p.Validate() != nil {
		return false
	}
	return lineMarked(MarkBoard(b, drawn), p)
}

func lineMarked(m Marks, p Pattern) bool {
	for _, cell := range p.Cells() {
		if !m[cell[0]][cell[1]] {
			return false
		}
	}
	return true
}
