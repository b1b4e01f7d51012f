package engine

import "testing"

func TestCheckWin(t *testing.T) {
	b := testBoard()
	cases := []struct {
		name  string
		drawn []int
		want  Result
	}{
		{
			name:  "nothing marked",
			drawn: nil,
			want:  Result{},
		},
		{
			name:  "almost a row",
			drawn: []int{1, 16, 31, 46},
			want:  Result{},
		},
		{
			name:  "single full row",
			drawn: []int{4, 19, 34, 49, 64, 1, 17},
			want:  Result{Won: true, Pattern: Pattern{Kind: PatternRow, Line: 3}},
		},
		{
			name:  "row 2 through the free cell",
			drawn: []int{3, 18, 48, 63},
			want:  Result{Won: true, Pattern: Pattern{Kind: PatternRow, Line: 2}},
		},
		{
			name:  "column",
			drawn: []int{46, 47, 48, 49, 50},
			want:  Result{Won: true, Pattern: Pattern{Kind: PatternColumn, Line: 3}},
		},
		{
			name:  "centre column uses free cell",
			drawn: []int{31, 32, 34, 35},
			want:  Result{Won: true, Pattern: Pattern{Kind: PatternColumn, Line: 2}},
		},
		{
			name:  "main diagonal",
			drawn: []int{1, 17, 49, 65},
			want:  Result{Won: true, Pattern: Pattern{Kind: PatternDiagonal, Line: 0}},
		},
		{
			name:  "anti diagonal",
			drawn: []int{61, 47, 19, 5},
			want:  Result{Won: true, Pattern: Pattern{Kind: PatternDiagonal, Line: 1}},
		},
		{
			name:  "row beats column when both complete",
			drawn: []int{1, 16, 31, 46, 61, 2, 3, 4, 5},
			want:  Result{Won: true, Pattern: Pattern{Kind: PatternRow, Line: 0}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckWin(MarkBoard(b, tc.drawn))
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestMarkBoard_FreeCellAlwaysMarked(t *testing.T) {
	m := MarkBoard(testBoard(), nil)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			want := r == Center && c == Center
			if m[r][c] != want {
				t.Fatalf("cell [%d][%d] marked=%v, want %v", r, c, m[r][c], want)
			}
		}
	}
}

func TestVerifyPattern(t *testing.T) {
	b := testBoard()
	drawn := []int{3, 18, 48, 63}

	if !VerifyPattern(b, drawn, Pattern{Kind: PatternRow, Line: 2}) {
		t.Fatalf("row 2 should verify")
	}
	if VerifyPattern(b, drawn, Pattern{Kind: PatternRow, Line: 1}) {
		t.Fatalf("row 1 should not verify")
	}
	if VerifyPattern(b, drawn, Pattern{Kind: PatternRow, Line: 7}) {
		t.Fatalf("out of range line should not verify")
	}
	if VerifyPattern(b, drawn, Pattern{Kind: "corners", Line: 0}) {
		t.Fatalf("unknown kind should not verify")
	}
}
