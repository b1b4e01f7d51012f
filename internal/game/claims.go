package game

import (
	"context"
	"errors"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/store"
	"go.uber.org/zap"
)

// SubmitClaim checks pattern against the claimant's board and the numbers
// drawn so far, then tries to become the session's one winner.
//
// The winning write is conditional on the revision that was verified, on
// the session still being started and on there being no winner. Losing to a
// draw only means the check is redone against the newer state; losing to
// another claim is ErrAlreadyWon.
func (s *Service) SubmitClaim(ctx context.Context, sessionID, playerID string, pattern engine.Pattern) (store.Claim, error) {
	defer s.forgetSnapshot(sessionID)
	for attempt := 0; attempt < defaultClaimAttempts; attempt++ {
		sess, players, st, err := s.load(ctx, sessionID)
		if err != nil {
			return store.Claim{}, err
		}
		events, next, err := engine.Apply(st, engine.Command{Type: engine.CmdClaim, PlayerID: playerID, Pattern: pattern})
		if err != nil {
			s.rejected("claim", sessionID, playerID, err)
			return store.Claim{}, err
		}

		sess, err = s.store.UpdateSession(ctx, sessionID,
			store.Condition{Revision: &sess.Revision, Phase: engine.PhaseStarted, NoWinner: true},
			store.SessionPatch{Phase: &next.Phase, WinnerID: &next.WinnerID},
		)
		if errors.Is(err, store.ErrConditionFailed) {
			s.log.Debug("claim raced another write, re-checking",
				zap.String("session_id", sessionID),
				zap.String("player_id", playerID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			err = storeErr(err)
			s.rejected("claim", sessionID, playerID, err)
			return store.Claim{}, err
		}

		claim := store.Claim{
			ID:        s.newID(),
			SessionID: sessionID,
			PlayerID:  playerID,
			Pattern:   events[0].Pattern,
			Verified:  true,
		}
		s.recordWin(ctx, players, claim)
		s.log.Info("claim verified",
			zap.String("session_id", sessionID),
			zap.String("player_id", playerID),
			zap.Stringer("pattern", claim.Pattern),
			zap.Int64("revision", sess.Revision),
		)
		return claim, nil
	}

	s.rejected("claim", sessionID, playerID, engine.ErrStaleWrite)
	return store.Claim{}, engine.ErrStaleWrite
}

// recordWin writes the follow-up rows for a committed win. Snapshots derive
// the winner from the session row, so failures here are only logged.
func (s *Service) recordWin(ctx context.Context, players []store.Player, claim store.Claim) {
	if p, ok := findPlayer(players, claim.PlayerID); ok {
		p.HasWon = true
		if err := s.store.UpdatePlayer(ctx, p); err != nil {
			s.log.Warn("could not flag winner", zap.String("session_id", claim.SessionID), zap.Error(err))
		}
	}
	if err := s.store.AddClaim(ctx, claim); err != nil {
		s.log.Warn("could not record claim", zap.String("session_id", claim.SessionID), zap.Error(err))
	}
}
