// Package store is the persistence contract the game service relies on.
//
// Implementations guarantee that UpdateSession is a single atomic
// conditional write on one session row. Nothing else is transactional:
// players, moves and claims are independent rows.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
)

var (
	ErrNotFound        = errors.New("store: record not found")
	ErrConditionFailed = errors.New("store: condition failed")
	ErrDuplicate       = errors.New("store: duplicate key")
	ErrClosed          = errors.New("store: closed")
)

type Session struct {
	ID            string       `json:"id"`
	Code          string       `json:"code"`
	HostID        string       `json:"host_id"`
	Phase         engine.Phase `json:"phase"`
	Drawn         []int        `json:"drawn"`
	CurrentNumber int          `json:"current_number"`
	WinnerID      string       `json:"winner_id"`
	Revision      int64        `json:"revision"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type Player struct {
	SessionID string       `json:"session_id"`
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Board     engine.Board `json:"board"`
	IsHost    bool         `json:"is_host"`
	HasWon    bool         `json:"has_won"`
	JoinedAt  time.Time    `json:"joined_at"`
}

type Move struct {
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Number    int       `json:"number"`
	DrawnAt   time.Time `json:"drawn_at"`
}

type Claim struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	PlayerID  string         `json:"player_id"`
	Pattern   engine.Pattern `json:"pattern"`
	Verified  bool           `json:"verified"`
	CreatedAt time.Time      `json:"created_at"`
}

// Condition guards UpdateSession. Zero fields are not checked.
type Condition struct {
	Revision *int64
	Phase    engine.Phase
	NoWinner bool
}

// SessionPatch lists the columns an update touches; nil fields are left as
// they are. Every successful update also bumps Revision.
type SessionPatch struct {
	Phase    *engine.Phase
	Drawn    *[]int
	WinnerID *string
}

type Store interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	GetSessionByCode(ctx context.Context, code string) (Session, error)
	UpdateSession(ctx context.Context, id string, cond Condition, patch SessionPatch) (Session, error)
	DeleteSession(ctx context.Context, id string) error

	// UpsertPlayer inserts p unless (SessionID, ID) exists, in which case the
	// stored player is returned untouched and created is false.
	UpsertPlayer(ctx context.Context, p Player) (stored Player, created bool, err error)
	ListPlayers(ctx context.Context, sessionID string) ([]Player, error)
	UpdatePlayer(ctx context.Context, p Player) error
	DeletePlayer(ctx context.Context, sessionID, playerID string) error

	AppendMove(ctx context.Context, m Move) error
	ListMoves(ctx context.Context, sessionID string) ([]Move, error)
	DeleteMoves(ctx context.Context, sessionID string) error

	AddClaim(ctx context.Context, c Claim) error
	ListClaims(ctx context.Context, sessionID string) ([]Claim, error)
	DeleteClaims(ctx context.Context, sessionID string) error

	Close() error
}

func currentNumber(drawn []int) int {
	if len(drawn) == 0 {
		return 0
	}
	return drawn[len(drawn)-1]
}
