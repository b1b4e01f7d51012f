package main

import (
	"strconv"
	"strings"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/game"
	"github.com/pterm/pterm"
)

// renderBoard draws a card with called numbers highlighted.
func renderBoard(b engine.Board, drawn []int) string {
	marks := engine.MarkBoard(b, drawn)

	data := pterm.TableData{make([]string, 0, engine.Size)}
	for _, col := range engine.Columns {
		data[0] = append(data[0], col.Letter)
	}
	for r := 0; r < engine.Size; r++ {
		row := make([]string, 0, engine.Size)
		for c := 0; c < engine.Size; c++ {
			cell := "FREE"
			if b[r][c] != engine.FreeCell {
				cell = strconv.Itoa(b[r][c])
			}
			if marks[r][c] {
				cell = pterm.LightGreen(cell)
			}
			row = append(row, cell)
		}
		data = append(data, row)
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return err.Error()
	}
	return out
}

func renderSnapshot(snap game.Snapshot, playerID string) string {
	var sb strings.Builder
	s := snap.Session

	sb.WriteString(pterm.Sprintfln("Session %s  code %s  phase %s  revision %d",
		s.ID, pterm.LightYellow(s.Code), s.Phase, s.Revision))

	if s.CurrentNumber != 0 {
		sb.WriteString(pterm.Sprintfln("Last called: %s   (%d left)",
			pterm.LightGreen(engine.FormatNumber(s.CurrentNumber)), snap.Remaining))
	}
	if len(s.Drawn) > 0 {
		called := make([]string, 0, len(s.Drawn))
		for _, n := range s.Drawn {
			called = append(called, engine.FormatNumber(n))
		}
		sb.WriteString(pterm.Sprintfln("Called: %s", strings.Join(called, " ")))
	}

	names := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		name := p.Name
		if p.IsHost {
			name += " (host)"
		}
		if p.HasWon {
			name = pterm.LightMagenta(name + " BINGO")
		}
		names = append(names, name)
	}
	sb.WriteString(pterm.Sprintfln("Players: %s", strings.Join(names, ", ")))

	if me, ok := snap.Player(playerID); ok {
		sb.WriteString(renderBoard(me.Board, s.Drawn))
		sb.WriteString("\n")
		if s.Phase == engine.PhaseStarted {
			if res := engine.CheckWin(engine.MarkBoard(me.Board, s.Drawn)); res.Won {
				sb.WriteString(pterm.LightGreen(pterm.Sprintfln("You have %s, claim it!", res.Pattern)))
			}
		}
	}
	return sb.String()
}
