package main

import (
	"strings"
	"testing"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/game"
	"github.com/DoyleJ11/bingo-backend/internal/store"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func TestRenderSnapshot(t *testing.T) {
	pterm.DisableColor()
	t.Cleanup(pterm.EnableColor)

	board := engine.Board{
		{1, 16, 31, 46, 61},
		{2, 17, 32, 47, 62},
		{3, 18, 0, 48, 63},
		{4, 19, 34, 49, 64},
		{5, 20, 35, 50, 65},
	}
	snap := game.Snapshot{
		Session: store.Session{
			ID: "s1", Code: "ABC123", Phase: engine.PhaseStarted,
			Drawn: []int{3, 18, 48, 63}, CurrentNumber: 63, Revision: 9,
		},
		Players: []store.Player{
			{ID: "host", Name: "Hana", IsHost: true, Board: board},
			{ID: "p2", Name: "Gus", Board: board},
		},
		Remaining: 71,
	}

	out := renderSnapshot(snap, "p2")
	for _, want := range []string{"ABC123", "O-63", "71 left", "Hana (host)", "Gus", "FREE", "row 2"} {
		assert.True(t, strings.Contains(out, want), "missing %q in:\n%s", want, out)
	}

	spectator := renderSnapshot(snap, "nobody")
	assert.NotContains(t, spectator, "FREE")
}
