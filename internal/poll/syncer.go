// Package poll keeps a client's view of a session current by fetching
// snapshots on a fixed interval.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/game"
	"go.uber.org/zap"
)

const DefaultInterval = 2 * time.Second

type Fetcher interface {
	GetSnapshot(ctx context.Context, sessionID string) (game.Snapshot, error)
}

// SinceFetcher is an optional Fetcher extension that can skip the body when
// nothing changed after revision since.
type SinceFetcher interface {
	GetSnapshotSince(ctx context.Context, sessionID string, since int64) (snap game.Snapshot, changed bool, err error)
}

type Syncer struct {
	fetch     Fetcher
	sessionID string
	playerID  string
	interval  time.Duration
	log       *zap.Logger

	outbox   chan game.Snapshot
	revision int64
}

// NewSyncer watches sessionID. When playerID is set the loop also ends once
// that player is no longer seated.
func NewSyncer(f Fetcher, sessionID, playerID string, interval time.Duration, log *zap.Logger) *Syncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		fetch:     f,
		sessionID: sessionID,
		playerID:  playerID,
		interval:  interval,
		log:       log.Named("poll").With(zap.String("session_id", sessionID)),
		outbox:    make(chan game.Snapshot, 1),
		revision:  -1,
	}
}

// Snapshots delivers every new revision seen. Only the latest unread one is
// kept. The channel is closed when Run returns.
func (s *Syncer) Snapshots() <-chan game.Snapshot { return s.outbox }

// Run polls until ctx is done, the session disappears, or the watched player
// is gone. It returns nil on cancellation and the reason otherwise.
func (s *Syncer) Run(ctx context.Context) error {
	defer close(s.outbox)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll does one fetch. Only terminal errors are returned.
func (s *Syncer) poll(ctx context.Context) error {
	snap, changed, err := s.get(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, engine.ErrSessionNotFound):
		s.log.Info("session is gone, stopping")
		return err
	default:
		s.log.Warn("snapshot fetch failed, retrying next tick",
			zap.String("kind", string(engine.KindOf(err))),
			zap.Error(err),
		)
		return nil
	}
	if !changed {
		return nil
	}

	s.revision = snap.Revision()
	s.publish(snap)

	if s.playerID != "" {
		if _, ok := snap.Player(s.playerID); !ok {
			s.log.Info("player no longer seated, stopping", zap.String("player_id", s.playerID))
			return engine.ErrPlayerNotFound
		}
	}
	return nil
}

func (s *Syncer) get(ctx context.Context) (game.Snapshot, bool, error) {
	if sf, ok := s.fetch.(SinceFetcher); ok && s.revision >= 0 {
		return sf.GetSnapshotSince(ctx, s.sessionID, s.revision)
	}
	snap, err := s.fetch.GetSnapshot(ctx, s.sessionID)
	if err != nil {
		return game.Snapshot{}, false, err
	}
	return snap, snap.Revision() != s.revision, nil
}

// publish never blocks: an unread older snapshot is replaced.
func (s *Syncer) publish(snap game.Snapshot) {
	select {
	case s.outbox <- snap:
		return
	default:
	}
	select {
	case <-s.outbox:
	default:
	}
	s.outbox <- snap
}
