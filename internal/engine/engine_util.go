package engine

import (
	"maps"
	"slices"
)

// NewState is a fresh session in the lobby with only the host seated.
func NewState(hostID string, minPlayers int) State {
	s := State{
		Phase:      PhaseWaiting,
		HostID:     hostID,
		Boards:     map[string]Board{},
		MinPlayers: minPlayers,
	}
	if hostID != "" {
		s.Boards[hostID] = dealBoard()
	}
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// PlayerIDs returns the seated players in a stable order.
func PlayerIDs(s State) []string {
	return slices.Sorted(maps.Keys(s.Boards))
}
