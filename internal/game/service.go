// Package game runs bingo sessions on top of a Store.
//
// Every operation reads the session, judges the command with engine.Apply
// and commits through one conditional write on the session row. Anything
// written after that commit (moves, claims, won flags) is a follow-up record;
// the session row is what a snapshot trusts.
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCodeAttempts  = 8
	defaultClaimAttempts = 5
)

type Options struct {
	MinPlayers   int
	CodeAttempts int
}

// Identity is who the caller says they are. ID comes from whatever identity
// provider fronts the service and is treated as opaque.
type Identity struct {
	ID   string
	Name string
}

type Service struct {
	store     store.Store
	log       *zap.Logger
	opts      Options
	snapshots singleflight.Group

	newID   func() string
	newCode func() (string, error)
}

func NewService(st store.Store, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MinPlayers <= 0 {
		opts.MinPlayers = engine.DefaultMinPlayers
	}
	if opts.CodeAttempts <= 0 {
		opts.CodeAttempts = defaultCodeAttempts
	}
	return &Service{
		store:   st,
		log:     log.Named("game"),
		opts:    opts,
		newID:   uuid.NewString,
		newCode: GenerateCode,
	}
}

// load reads a session and its players and folds them into engine state.
func (s *Service) load(ctx context.Context, sessionID string) (store.Session, []store.Player, engine.State, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return store.Session{}, nil, engine.State{}, storeErr(err)
	}
	players, err := s.store.ListPlayers(ctx, sessionID)
	if err != nil {
		return store.Session{}, nil, engine.State{}, storeErr(err)
	}

	st := engine.State{
		Phase:      sess.Phase,
		HostID:     sess.HostID,
		Drawn:      sess.Drawn,
		WinnerID:   sess.WinnerID,
		Boards:     make(map[string]engine.Board, len(players)),
		MinPlayers: s.opts.MinPlayers,
	}
	for _, p := range players {
		st.Boards[p.ID] = p.Board
	}
	return sess, players, st, nil
}

// storeErr converts a store error into the engine taxonomy.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return engine.ErrSessionNotFound
	case errors.Is(err, store.ErrConditionFailed):
		return engine.ErrStaleWrite
	case errors.Is(err, store.ErrDuplicate):
		return engine.ErrCodeCollision
	default:
		return fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
	}
}

func findPlayer(players []store.Player, id string) (store.Player, bool) {
	for _, p := range players {
		if p.ID == id {
			return p, true
		}
	}
	return store.Player{}, false
}

// rejected logs a refused command. Conflicts are routine under polling, so
// they stay at debug.
func (s *Service) rejected(op, sessionID, playerID string, err error) {
	level := zap.DebugLevel
	if engine.KindOf(err) == engine.KindUnavailable || engine.KindOf(err) == engine.KindInternal {
		level = zap.WarnLevel
	}
	s.log.Log(level, op+" rejected",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.Error(err),
	)
}
