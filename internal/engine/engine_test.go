package engine

import (
	"errors"
	"fmt"
	"testing"
)

// stubDeals makes every dealt board the fixed test board and restores the
// real generator when the test ends.
func stubDeals(t *testing.T) *int {
	t.Helper()
	dealt := 0
	orig := dealBoard
	dealBoard = func() Board {
		dealt++
		return testBoard()
	}
	t.Cleanup(func() { dealBoard = orig })
	return &dealt
}

func startedState() State {
	return State{
		Phase:  PhaseStarted,
		HostID: "host",
		Boards: map[string]Board{"host": testBoard(), "p2": testBoard()},
	}
}

func TestApply_Start(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
	}{
		{
			name:    "non-host cannot start",
			setup:   State{Phase: PhaseWaiting, HostID: "host", Boards: map[string]Board{"host": {}, "p2": {}}},
			cmd:     Command{Type: CmdStart, PlayerID: "p2"},
			wantErr: ErrNotHost,
		},
		{
			name:    "host alone cannot start",
			setup:   State{Phase: PhaseWaiting, HostID: "host", Boards: map[string]Board{"host": {}}},
			cmd:     Command{Type: CmdStart, PlayerID: "host"},
			wantErr: ErrInsufficientPlayers,
		},
		{
			name:    "min players is configurable",
			setup:   State{Phase: PhaseWaiting, HostID: "host", MinPlayers: 3, Boards: map[string]Board{"host": {}, "p2": {}}},
			cmd:     Command{Type: CmdStart, PlayerID: "host"},
			wantErr: ErrInsufficientPlayers,
		},
		{
			name:    "already started",
			setup:   startedState(),
			cmd:     Command{Type: CmdStart, PlayerID: "host"},
			wantErr: ErrSessionNotWaiting,
		},
		{
			name:  "host with two players starts",
			setup: State{Phase: PhaseWaiting, HostID: "host", Boards: map[string]Board{"host": {}, "p2": {}}},
			cmd:   Command{Type: CmdStart, PlayerID: "host"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(tc.setup, tc.cmd)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				if events != nil {
					t.Fatalf("rejected command produced events %+v", events)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err %v", err)
			}
			if next.Phase != PhaseStarted || !ContainsEvent(events, EvtSessionStarted) {
				t.Fatalf("want started with EvtSessionStarted, got %v %+v", next.Phase, events)
			}
		})
	}
}

func TestApply_DrawByNonHostRejected(t *testing.T) {
	s := startedState()
	events, next, err := Apply(s, Command{Type: CmdDraw, PlayerID: "p2"})
	if !errors.Is(err, ErrNotHost) {
		t.Fatalf("want ErrNotHost, got %v", err)
	}
	if len(events) != 0 || len(next.Drawn) != 0 {
		t.Fatalf("non-host draw changed state: %+v %v", events, next.Drawn)
	}
}

func TestApply_DrawAppendsWithoutTouchingInput(t *testing.T) {
	orig := pickNumber
	pickNumber = func([]int) (int, error) { return 42, nil }
	t.Cleanup(func() { pickNumber = orig })

	s := startedState()
	s.Drawn = []int{7}
	events, next, err := Apply(s, Command{Type: CmdDraw, PlayerID: "host"})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if len(events) != 1 || events[0].Type != EvtNumberDrawn || events[0].Number != 42 {
		t.Fatalf("unexpected events %+v", events)
	}
	if len(next.Drawn) != 2 || next.Drawn[1] != 42 {
		t.Fatalf("next.Drawn = %v", next.Drawn)
	}
	if len(s.Drawn) != 1 {
		t.Fatalf("input state mutated: %v", s.Drawn)
	}
}

func TestApply_DrawRules(t *testing.T) {
	waiting := startedState()
	waiting.Phase = PhaseWaiting
	if _, _, err := Apply(waiting, Command{Type: CmdDraw, PlayerID: "host"}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("want ErrNotStarted, got %v", err)
	}

	full := startedState()
	for n := 1; n <= MaxNumber; n++ {
		full.Drawn = append(full.Drawn, n)
	}
	if _, _, err := Apply(full, Command{Type: CmdDraw, PlayerID: "host"}); !errors.Is(err, ErrExhausted) {
		t.Fatalf("want ErrExhausted, got %v", err)
	}
}

func TestApply_Claim(t *testing.T) {
	row2 := Pattern{Kind: PatternRow, Line: 2}
	cases := []struct {
		name    string
		setup   func() State
		cmd     Command
		wantErr error
	}{
		{
			name: "verified claim finishes session",
			setup: func() State {
				s := startedState()
				s.Drawn = []int{3, 18, 48, 63}
				return s
			},
			cmd: Command{Type: CmdClaim, PlayerID: "p2", Pattern: row2},
		},
		{
			name:    "incomplete line",
			setup:   startedState,
			cmd:     Command{Type: CmdClaim, PlayerID: "p2", Pattern: row2},
			wantErr: ErrPatternInvalid,
		},
		{
			name:    "malformed pattern",
			setup:   startedState,
			cmd:     Command{Type: CmdClaim, PlayerID: "p2", Pattern: Pattern{Kind: PatternDiagonal, Line: 2}},
			wantErr: ErrPatternInvalid,
		},
		{
			name: "someone already won",
			setup: func() State {
				s := startedState()
				s.Phase = PhaseFinished
				s.WinnerID = "host"
				s.Drawn = []int{3, 18, 48, 63}
				return s
			},
			cmd:     Command{Type: CmdClaim, PlayerID: "p2", Pattern: row2},
			wantErr: ErrAlreadyWon,
		},
		{
			name: "not started",
			setup: func() State {
				s := startedState()
				s.Phase = PhaseWaiting
				return s
			},
			cmd:     Command{Type: CmdClaim, PlayerID: "p2", Pattern: row2},
			wantErr: ErrNotStarted,
		},
		{
			name:    "stranger",
			setup:   startedState,
			cmd:     Command{Type: CmdClaim, PlayerID: "ghost", Pattern: row2},
			wantErr: ErrPlayerNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(tc.setup(), tc.cmd)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err %v", err)
			}
			if next.Phase != PhaseFinished || next.WinnerID != tc.cmd.PlayerID {
				t.Fatalf("want finished with winner %s, got %v/%s", tc.cmd.PlayerID, next.Phase, next.WinnerID)
			}
			if !ContainsEvent(events, EvtClaimVerified) || !ContainsEvent(events, EvtSessionFinished) {
				t.Fatalf("missing events: %+v", events)
			}
		})
	}
}

func TestApply_ResetDealsFreshBoards(t *testing.T) {
	dealt := stubDeals(t)

	s := startedState()
	s.Phase = PhaseFinished
	s.WinnerID = "p2"
	s.Drawn = []int{3, 18, 48, 63}
	s.Boards["p2"] = Board{}

	if _, _, err := Apply(s, Command{Type: CmdReset, PlayerID: "p2"}); !errors.Is(err, ErrNotHost) {
		t.Fatalf("want ErrNotHost, got %v", err)
	}

	events, next, err := Apply(s, Command{Type: CmdReset, PlayerID: "host"})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if next.Phase != PhaseStarted || next.WinnerID != "" || len(next.Drawn) != 0 {
		t.Fatalf("reset left %v winner=%q drawn=%v", next.Phase, next.WinnerID, next.Drawn)
	}
	if *dealt != 2 {
		t.Fatalf("dealt %d boards, want 2", *dealt)
	}
	if next.Boards["p2"] != testBoard() {
		t.Fatalf("p2 board not regenerated")
	}
	if s.Boards["p2"] != (Board{}) {
		t.Fatalf("input boards mutated")
	}
	if !ContainsEvent(events, EvtSessionReset) || !ContainsEvent(events, EvtBoardDealt) {
		t.Fatalf("missing events: %+v", events)
	}

	if _, _, err := Apply(startedState(), Command{Type: CmdReset, PlayerID: "host"}); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("want ErrNotFinished, got %v", err)
	}
}

func TestApply_JoinIsIdempotent(t *testing.T) {
	dealt := stubDeals(t)
	s := NewState("host", 0)

	events, s, err := Apply(s, Command{Type: CmdJoin, PlayerID: "p2"})
	if err != nil || !ContainsEvent(events, EvtPlayerJoined) {
		t.Fatalf("first join: events=%+v err=%v", events, err)
	}
	events, s, err = Apply(s, Command{Type: CmdJoin, PlayerID: "p2"})
	if err != nil || len(events) != 0 {
		t.Fatalf("second join: events=%+v err=%v", events, err)
	}
	if len(s.Boards) != 2 || *dealt != 2 {
		t.Fatalf("want 2 players / 2 deals, got %d / %d", len(s.Boards), *dealt)
	}

	s.Phase = PhaseStarted
	if _, _, err := Apply(s, Command{Type: CmdJoin, PlayerID: "late"}); !errors.Is(err, ErrSessionNotWaiting) {
		t.Fatalf("want ErrSessionNotWaiting, got %v", err)
	}
	if events, _, err := Apply(s, Command{Type: CmdJoin, PlayerID: "p2"}); err != nil || len(events) != 0 {
		t.Fatalf("seated player rejoining after start: events=%+v err=%v", events, err)
	}
}

func TestApply_Leave(t *testing.T) {
	s := startedState()

	events, next, err := Apply(s, Command{Type: CmdLeave, PlayerID: "p2"})
	if err != nil || !ContainsEvent(events, EvtPlayerLeft) {
		t.Fatalf("leave: events=%+v err=%v", events, err)
	}
	if _, ok := next.Boards["p2"]; ok {
		t.Fatalf("p2 still seated")
	}

	events, _, err = Apply(s, Command{Type: CmdLeave, PlayerID: "ghost"})
	if err != nil || len(events) != 0 {
		t.Fatalf("stranger leave: events=%+v err=%v", events, err)
	}

	events, _, err = Apply(s, Command{Type: CmdLeave, PlayerID: "host"})
	if err != nil || !ContainsEvent(events, EvtSessionClosed) {
		t.Fatalf("host leave: events=%+v err=%v", events, err)
	}
}

func TestApply_RejectsUnknownAndAnonymous(t *testing.T) {
	if _, _, err := Apply(startedState(), Command{Type: "Shuffle", PlayerID: "host"}); !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
	if _, _, err := Apply(startedState(), Command{Type: CmdDraw}); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("want ErrInvalidPlayer, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ErrPatternInvalid, KindValidation},
		{ErrStaleWrite, KindConflict},
		{ErrAlreadyWon, KindConflict},
		{ErrExhausted, KindConflict},
		{ErrNotHost, KindAuthorization},
		{ErrSessionNotFound, KindNotFound},
		{ErrUnavailable, KindUnavailable},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
	if !Retryable(ErrStaleWrite) || Retryable(ErrAlreadyWon) {
		t.Fatalf("only stale writes are retryable")
	}
}

func TestCodeRoundTrip(t *testing.T) {
	for _, k := range kinds {
		code := CodeOf(k.err)
		if code == "" {
			t.Fatalf("%v has no code", k.err)
		}
		if got := FromCode(code); got != k.err {
			t.Fatalf("FromCode(%q) = %v, want %v", code, got, k.err)
		}
	}
	wrapped := fmt.Errorf("%w: have 1, need 2", ErrInsufficientPlayers)
	if CodeOf(wrapped) != "insufficient_players" {
		t.Fatalf("wrapped code = %q", CodeOf(wrapped))
	}
	if CodeOf(errors.New("boom")) != "internal" || FromCode("nope") != nil {
		t.Fatalf("unknown errors must map to internal and back to nil")
	}
}
