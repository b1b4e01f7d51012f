package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/store"
	"go.uber.org/zap"
)

func (s *Service) StartSession(ctx context.Context, sessionID, requesterID string) (store.Session, error) {
	defer s.forgetSnapshot(sessionID)
	sess, _, st, err := s.load(ctx, sessionID)
	if err != nil {
		return store.Session{}, err
	}
	_, next, err := engine.Apply(st, engine.Command{Type: engine.CmdStart, PlayerID: requesterID})
	if err != nil {
		s.rejected("start", sessionID, requesterID, err)
		return store.Session{}, err
	}

	sess, err = s.store.UpdateSession(ctx, sessionID,
		store.Condition{Revision: &sess.Revision, Phase: engine.PhaseWaiting},
		store.SessionPatch{Phase: &next.Phase},
	)
	if err != nil {
		err = storeErr(err)
		s.rejected("start", sessionID, requesterID, err)
		return store.Session{}, err
	}
	s.log.Info("session started",
		zap.String("session_id", sessionID),
		zap.Int("players", len(next.Boards)),
		zap.Int64("revision", sess.Revision),
	)
	return sess, nil
}

// DrawNumber calls the next number. The draw is committed by a
// revision-guarded write of the whole drawn list, so two racing draws can
// never both land; the loser gets ErrStaleWrite.
func (s *Service) DrawNumber(ctx context.Context, sessionID, requesterID string) (store.Move, error) {
	defer s.forgetSnapshot(sessionID)
	sess, _, st, err := s.load(ctx, sessionID)
	if err != nil {
		return store.Move{}, err
	}
	events, next, err := engine.Apply(st, engine.Command{Type: engine.CmdDraw, PlayerID: requesterID})
	if err != nil {
		s.rejected("draw", sessionID, requesterID, err)
		return store.Move{}, err
	}

	sess, err = s.store.UpdateSession(ctx, sessionID,
		store.Condition{Revision: &sess.Revision, Phase: engine.PhaseStarted},
		store.SessionPatch{Drawn: &next.Drawn},
	)
	if err != nil {
		err = storeErr(err)
		s.rejected("draw", sessionID, requesterID, err)
		return store.Move{}, err
	}

	move := store.Move{SessionID: sessionID, Seq: len(next.Drawn), Number: events[0].Number}
	if err := s.store.AppendMove(ctx, move); err != nil {
		s.log.Warn("draw committed but move not recorded",
			zap.String("session_id", sessionID),
			zap.Int("number", move.Number),
			zap.Error(err),
		)
	}
	s.log.Info("number drawn",
		zap.String("session_id", sessionID),
		zap.String("number", engine.FormatNumber(move.Number)),
		zap.Int("remaining", engine.Remaining(next.Drawn)),
		zap.Int64("revision", sess.Revision),
	)
	return move, nil
}

// ResetSession starts another round with the same players: the drawn list
// and winner are cleared, every board is dealt again, and the old round's
// moves and claims are dropped.
func (s *Service) ResetSession(ctx context.Context, sessionID, requesterID string) (store.Session, error) {
	defer s.forgetSnapshot(sessionID)
	sess, players, st, err := s.load(ctx, sessionID)
	if err != nil {
		return store.Session{}, err
	}
	_, next, err := engine.Apply(st, engine.Command{Type: engine.CmdReset, PlayerID: requesterID})
	if err != nil {
		s.rejected("reset", sessionID, requesterID, err)
		return store.Session{}, err
	}
	for id, b := range next.Boards {
		if err := engine.ValidateBoard(b); err != nil {
			return store.Session{}, fmt.Errorf("dealt board for %s: %w", id, err)
		}
	}

	noWinner := ""
	cleared := []int{}
	sess, err = s.store.UpdateSession(ctx, sessionID,
		store.Condition{Revision: &sess.Revision, Phase: engine.PhaseFinished},
		store.SessionPatch{Phase: &next.Phase, Drawn: &cleared, WinnerID: &noWinner},
	)
	if err != nil {
		err = storeErr(err)
		s.rejected("reset", sessionID, requesterID, err)
		return store.Session{}, err
	}

	// The round is reset from here on; the rest only tidies follow-up rows.
	var errs []error
	if err := s.store.DeleteMoves(ctx, sessionID); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.DeleteClaims(ctx, sessionID); err != nil {
		errs = append(errs, err)
	}
	for _, p := range players {
		board, ok := next.Boards[p.ID]
		if !ok {
			continue
		}
		p.Board = board
		p.HasWon = false
		if err := s.store.UpdatePlayer(ctx, p); err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.log.Warn("reset committed with incomplete cleanup", zap.String("session_id", sessionID), zap.Error(err))
		return sess, storeErr(err)
	}

	s.log.Info("session reset",
		zap.String("session_id", sessionID),
		zap.Int("players", len(next.Boards)),
		zap.Int64("revision", sess.Revision),
	)
	return sess, nil
}
