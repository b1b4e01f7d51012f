package engine

import (
	"fmt"
	"slices"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseStarted  Phase = "started"
	PhaseFinished Phase = "finished"
)

const DefaultMinPlayers = 2

// State is everything the rules need to judge a command.
type State struct {
	Phase      Phase
	HostID     string
	Drawn      []int
	WinnerID   string
	Boards     map[string]Board
	MinPlayers int
}

type CommandType string

const (
	CmdJoin  CommandType = "Join"
	CmdStart CommandType = "Start"
	CmdDraw  CommandType = "Draw"
	CmdClaim CommandType = "Claim"
	CmdReset CommandType = "Reset"
	CmdLeave CommandType = "Leave"
)

/*
	CmdJoin  -> EvtPlayerJoined (nothing if already seated, even after start)
	CmdStart -> EvtSessionStarted
	CmdDraw  -> EvtNumberDrawn
	CmdClaim -> EvtClaimVerified -> EvtSessionFinished
	CmdReset -> EvtSessionReset -> EvtBoardDealt per player
	CmdLeave -> EvtPlayerLeft, or EvtSessionClosed when the host leaves
*/

type Command struct {
	Type     CommandType
	PlayerID string
	Pattern  Pattern
}

type EventType string

const (
	EvtPlayerJoined    EventType = "PlayerJoined"
	EvtSessionStarted  EventType = "SessionStarted"
	EvtNumberDrawn     EventType = "NumberDrawn"
	EvtClaimVerified   EventType = "ClaimVerified"
	EvtSessionFinished EventType = "SessionFinished"
	EvtSessionReset    EventType = "SessionReset"
	EvtBoardDealt      EventType = "BoardDealt"
	EvtPlayerLeft      EventType = "PlayerLeft"
	EvtSessionClosed   EventType = "SessionClosed"
)

type Event struct {
	Type     EventType
	PlayerID string
	Number   int
	Pattern  Pattern
	Board    Board
}

// Swapped out in tests.
var dealBoard = GenerateBoard
var pickNumber = NextNumber

// Apply judges cmd against s. On success it returns the events produced and
// the next state; s itself is never modified.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if cmd.PlayerID == "" {
		return nil, s, ErrInvalidPlayer
	}

	switch cmd.Type {
	case CmdJoin:
		if _, ok := s.Boards[cmd.PlayerID]; ok {
			// Already seated: joining again is a no-op in any phase.
			return nil, s, nil
		}
		if s.Phase != PhaseWaiting {
			return nil, s, ErrSessionNotWaiting
		}
		next := s.clone()
		board := dealBoard()
		next.Boards[cmd.PlayerID] = board
		return []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID, Board: board}}, next, nil

	case CmdStart:
		if cmd.PlayerID != s.HostID {
			return nil, s, ErrNotHost
		}
		if s.Phase != PhaseWaiting {
			return nil, s, ErrSessionNotWaiting
		}
		if len(s.Boards) < s.minPlayers() {
			return nil, s, fmt.Errorf("%w: have %d, need %d", ErrInsufficientPlayers, len(s.Boards), s.minPlayers())
		}
		next := s.clone()
		next.Phase = PhaseStarted
		return []Event{{Type: EvtSessionStarted, PlayerID: cmd.PlayerID}}, next, nil

	case CmdDraw:
		if cmd.PlayerID != s.HostID {
			return nil, s, ErrNotHost
		}
		if s.Phase != PhaseStarted {
			return nil, s, ErrNotStarted
		}
		n, err := pickNumber(s.Drawn)
		if err != nil {
			return nil, s, err
		}
		next := s.clone()
		next.Drawn = append(next.Drawn, n)
		return []Event{{Type: EvtNumberDrawn, PlayerID: cmd.PlayerID, Number: n}}, next, nil

	case CmdClaim:
		switch {
		case s.WinnerID != "":
			return nil, s, ErrAlreadyWon
		case s.Phase != PhaseStarted:
			return nil, s, ErrNotStarted
		}
		board, ok := s.Boards[cmd.PlayerID]
		if !ok {
			return nil, s, ErrPlayerNotFound
		}
		if err := cmd.Pattern.Validate(); err != nil {
			return nil, s, err
		}
		if !VerifyPattern(board, s.Drawn, cmd.Pattern) {
			return nil, s, fmt.Errorf("%w: %s is not complete", ErrPatternInvalid, cmd.Pattern)
		}
		next := s.clone()
		next.Phase = PhaseFinished
		next.WinnerID = cmd.PlayerID
		events := []Event{
			{Type: EvtClaimVerified, PlayerID: cmd.PlayerID, Pattern: cmd.Pattern},
			{Type: EvtSessionFinished, PlayerID: cmd.PlayerID},
		}
		return events, next, nil

	case CmdReset:
		if cmd.PlayerID != s.HostID {
			return nil, s, ErrNotHost
		}
		if s.Phase != PhaseFinished {
			return nil, s, ErrNotFinished
		}
		next := s.clone()
		next.Phase = PhaseStarted
		next.Drawn = nil
		next.WinnerID = ""
		events := []Event{{Type: EvtSessionReset, PlayerID: cmd.PlayerID}}
		for _, id := range PlayerIDs(next) {
			board := dealBoard()
			next.Boards[id] = board
			events = append(events, Event{Type: EvtBoardDealt, PlayerID: id, Board: board})
		}
		return events, next, nil

	case CmdLeave:
		if cmd.PlayerID == s.HostID {
			return []Event{{Type: EvtSessionClosed, PlayerID: cmd.PlayerID}}, State{}, nil
		}
		if _, ok := s.Boards[cmd.PlayerID]; !ok {
			return nil, s, nil
		}
		next := s.clone()
		delete(next.Boards, cmd.PlayerID)
		return []Event{{Type: EvtPlayerLeft, PlayerID: cmd.PlayerID}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func (s State) minPlayers() int {
	if s.MinPlayers <= 0 {
		return DefaultMinPlayers
	}
	return s.MinPlayers
}

func (s State) clone() State {
	next := s
	next.Drawn = slices.Clone(s.Drawn)
	next.Boards = make(map[string]Board, len(s.Boards))
	for id, b := range s.Boards {
		next.Boards[id] = b
	}
	return next
}
