package game

import (
	"context"
	"slices"
	"time"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/store"
	"golang.org/x/sync/singleflight"
)

const snapshotReadTimeout = 5 * time.Second

// Snapshot is the full view a poller replaces its local copy with.
type Snapshot struct {
	Session   store.Session  `json:"session"`
	Players   []store.Player `json:"players"`
	Moves     []store.Move   `json:"moves"`
	Claims    []store.Claim  `json:"claims"`
	Remaining int            `json:"remaining"`
}

func (s Snapshot) Revision() int64 { return s.Session.Revision }

func (s Snapshot) Player(id string) (store.Player, bool) {
	return findPlayer(s.Players, id)
}

// GetSnapshot reads everything about a session. Concurrent reads of the
// same session share one trip to the store, so a read may predate a write
// committed by another server by up to one round trip. Writes made through
// this Service are always visible to reads that start after they return.
func (s *Service) GetSnapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	ch := s.snapshots.DoChan(sessionID, func() (any, error) {
		// shared by every waiter, so no single waiter's cancellation applies
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotReadTimeout)
		defer cancel()
		return s.readSnapshot(rctx, sessionID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Snapshot{}, storeErr(ctx.Err())
	}
	if res.Err != nil {
		return Snapshot{}, res.Err
	}
	snap := res.Val.(Snapshot)
	// callers get their own slices
	snap.Session.Drawn = slices.Clone(snap.Session.Drawn)
	snap.Players = slices.Clone(snap.Players)
	snap.Moves = slices.Clone(snap.Moves)
	snap.Claims = slices.Clone(snap.Claims)
	return snap, nil
}

// forgetSnapshot makes the next read of sessionID start a fresh trip to the
// store instead of joining one that may have begun before a write.
func (s *Service) forgetSnapshot(sessionID string) {
	s.snapshots.Forget(sessionID)
}

func (s *Service) readSnapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Snapshot{}, storeErr(err)
	}
	players, err := s.store.ListPlayers(ctx, sessionID)
	if err != nil {
		return Snapshot{}, storeErr(err)
	}
	moves, err := s.store.ListMoves(ctx, sessionID)
	if err != nil {
		return Snapshot{}, storeErr(err)
	}
	claims, err := s.store.ListClaims(ctx, sessionID)
	if err != nil {
		return Snapshot{}, storeErr(err)
	}

	// The session row is authoritative; follow-up rows that disagree with
	// it are left out.
	for i := range players {
		players[i].HasWon = sess.WinnerID != "" && players[i].ID == sess.WinnerID
	}
	moves = slices.DeleteFunc(moves, func(m store.Move) bool {
		return m.Seq < 1 || m.Seq > len(sess.Drawn) || sess.Drawn[m.Seq-1] != m.Number
	})
	claims = slices.DeleteFunc(claims, func(c store.Claim) bool {
		return c.Verified && c.PlayerID != sess.WinnerID
	})

	return Snapshot{
		Session:   sess,
		Players:   players,
		Moves:     moves,
		Claims:    claims,
		Remaining: engine.Remaining(sess.Drawn),
	}, nil
}
