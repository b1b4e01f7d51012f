package game

import (
	"context"
	"errors"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/store"
	"go.uber.org/zap"
)

// CreateSession opens a waiting session with host seated. An empty code
// asks for a generated one; collisions are retried up to CodeAttempts.
func (s *Service) CreateSession(ctx context.Context, code string, host Identity) (store.Session, store.Player, error) {
	host, err := host.normalize()
	if err != nil {
		return store.Session{}, store.Player{}, err
	}

	attempts := s.opts.CodeAttempts
	if code != "" {
		if code, err = NormalizeCode(code); err != nil {
			return store.Session{}, store.Player{}, err
		}
		attempts = 1
	}

	st := engine.NewState(host.ID, s.opts.MinPlayers)
	sess := store.Session{
		ID:     s.newID(),
		HostID: host.ID,
		Phase:  st.Phase,
	}

	created := false
	for i := 0; i < attempts && !created; i++ {
		sess.Code = code
		if sess.Code == "" {
			if sess.Code, err = s.newCode(); err != nil {
				return store.Session{}, store.Player{}, err
			}
		}
		err = s.store.CreateSession(ctx, sess)
		switch {
		case err == nil:
			created = true
		case errors.Is(err, store.ErrDuplicate):
			s.log.Debug("join code collision, regenerating", zap.String("code", sess.Code))
		default:
			return store.Session{}, store.Player{}, storeErr(err)
		}
	}
	if !created {
		return store.Session{}, store.Player{}, engine.ErrCodeCollision
	}

	player, _, err := s.store.UpsertPlayer(ctx, store.Player{
		SessionID: sess.ID,
		ID:        host.ID,
		Name:      host.Name,
		Board:     st.Boards[host.ID],
		IsHost:    true,
	})
	if err != nil {
		if delErr := s.store.DeleteSession(ctx, sess.ID); delErr != nil {
			s.log.Warn("orphaned session after failed host seat", zap.String("session_id", sess.ID), zap.Error(delErr))
		}
		return store.Session{}, store.Player{}, storeErr(err)
	}

	stored, err := s.store.GetSession(ctx, sess.ID)
	if err != nil {
		return store.Session{}, store.Player{}, storeErr(err)
	}
	s.log.Info("session created",
		zap.String("session_id", stored.ID),
		zap.String("code", stored.Code),
		zap.String("host_id", host.ID),
	)
	return stored, player, nil
}

// JoinSession seats id in the session with the given code. Joining again
// returns the existing seat unchanged.
func (s *Service) JoinSession(ctx context.Context, code string, id Identity) (store.Session, store.Player, error) {
	id, err := id.normalize()
	if err != nil {
		return store.Session{}, store.Player{}, err
	}
	if code, err = NormalizeCode(code); err != nil {
		return store.Session{}, store.Player{}, err
	}

	found, err := s.store.GetSessionByCode(ctx, code)
	if err != nil {
		return store.Session{}, store.Player{}, storeErr(err)
	}
	defer s.forgetSnapshot(found.ID)
	sess, players, st, err := s.load(ctx, found.ID)
	if err != nil {
		return store.Session{}, store.Player{}, err
	}

	events, _, err := engine.Apply(st, engine.Command{Type: engine.CmdJoin, PlayerID: id.ID})
	if err != nil {
		s.rejected("join", sess.ID, id.ID, err)
		return store.Session{}, store.Player{}, err
	}
	if !engine.ContainsEvent(events, engine.EvtPlayerJoined) {
		p, _ := findPlayer(players, id.ID)
		return sess, p, nil
	}

	p, created, err := s.store.UpsertPlayer(ctx, store.Player{
		SessionID: sess.ID,
		ID:        id.ID,
		Name:      id.Name,
		Board:     events[0].Board,
	})
	if err != nil {
		return store.Session{}, store.Player{}, storeErr(err)
	}
	if !created {
		// a concurrent join for the same id got there first
		return sess, p, nil
	}

	// The seat is written, so it stays even if the host started in the
	// meantime: a start that counted it must not end up short of players.
	// The touch only bumps the revision so pollers pick the seat up.
	sess, err = s.store.UpdateSession(ctx, sess.ID, store.Condition{}, store.SessionPatch{})
	if err != nil {
		err = storeErr(err)
		s.rejected("join", found.ID, id.ID, err)
		return store.Session{}, store.Player{}, err
	}
	if sess.Phase != engine.PhaseWaiting {
		s.log.Info("player seated as the session started",
			zap.String("session_id", sess.ID),
			zap.String("player_id", id.ID),
			zap.String("phase", string(sess.Phase)),
		)
	}

	s.log.Info("player joined",
		zap.String("session_id", sess.ID),
		zap.String("player_id", id.ID),
		zap.Int64("revision", sess.Revision),
	)
	return sess, p, nil
}

// LeaveSession removes playerID. When the host leaves the whole session is
// torn down. Leaving a session you are not in does nothing.
func (s *Service) LeaveSession(ctx context.Context, sessionID, playerID string) error {
	defer s.forgetSnapshot(sessionID)
	_, _, st, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	events, _, err := engine.Apply(st, engine.Command{Type: engine.CmdLeave, PlayerID: playerID})
	if err != nil {
		return err
	}

	switch {
	case engine.ContainsEvent(events, engine.EvtSessionClosed):
		if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return storeErr(err)
		}
		s.log.Info("session closed by host", zap.String("session_id", sessionID))

	case engine.ContainsEvent(events, engine.EvtPlayerLeft):
		if err := s.store.DeletePlayer(ctx, sessionID, playerID); err != nil {
			return storeErr(err)
		}
		sess, err := s.store.UpdateSession(ctx, sessionID, store.Condition{}, store.SessionPatch{})
		if err != nil {
			return storeErr(err)
		}
		s.log.Info("player left",
			zap.String("session_id", sessionID),
			zap.String("player_id", playerID),
			zap.Int64("revision", sess.Revision),
		)
	}
	return nil
}
