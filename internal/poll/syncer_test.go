package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/game"
	"github.com/DoyleJ11/bingo-backend/internal/store"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan game.Snapshot, within time.Duration) game.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return game.Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan game.Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no snapshot within %v, got revision %d", within, s.Revision())
	case <-time.After(within):
	}
}

func recvDone(t *testing.T, done <-chan error, within time.Duration) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(within):
		t.Fatalf("syncer did not stop within %v", within)
		return nil
	}
}

// fakeFetcher serves whatever snapshot or error the test last set.
type fakeFetcher struct {
	mu    sync.Mutex
	snap  game.Snapshot
	err   error
	calls int
}

func (f *fakeFetcher) set(snap game.Snapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap, f.err = snap, err
}

func (f *fakeFetcher) GetSnapshot(ctx context.Context, sessionID string) (game.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.snap, f.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func snapshotAt(rev int64, players ...string) game.Snapshot {
	snap := game.Snapshot{Session: store.Session{ID: "s1", Revision: rev}}
	for _, id := range players {
		snap.Players = append(snap.Players, store.Player{SessionID: "s1", ID: id})
	}
	return snap
}

func startSyncer(t *testing.T, f Fetcher, sessionID, playerID string) (*Syncer, <-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := NewSyncer(f, sessionID, playerID, 5*time.Millisecond, nil)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return s, done, cancel
}

func TestSyncer_PublishesOnlyNewRevisions(t *testing.T) {
	f := &fakeFetcher{}
	f.set(snapshotAt(0, "host", "p2"), nil)
	s, done, cancel := startSyncer(t, f, "s1", "p2")

	first := recvSnapshot(t, s.Snapshots(), 200*time.Millisecond)
	if first.Revision() != 0 {
		t.Fatalf("first snapshot: want revision 0, got %d", first.Revision())
	}

	// several ticks at the same revision publish nothing
	recvNoSnapshot(t, s.Snapshots(), 40*time.Millisecond)
	if f.callCount() < 2 {
		t.Fatalf("expected repeated polling, got %d calls", f.callCount())
	}

	f.set(snapshotAt(3, "host", "p2"), nil)
	next := recvSnapshot(t, s.Snapshots(), 200*time.Millisecond)
	if next.Revision() != 3 {
		t.Fatalf("want revision 3, got %d", next.Revision())
	}

	cancel()
	if err := recvDone(t, done, 200*time.Millisecond); err != nil {
		t.Fatalf("cancelled syncer returned %v", err)
	}
	if _, ok := <-s.Snapshots(); ok {
		t.Fatalf("outbox not closed after Run returned")
	}
}

func TestSyncer_SlowReaderGetsLatest(t *testing.T) {
	f := &fakeFetcher{}
	f.set(snapshotAt(1), nil)
	s, _, _ := startSyncer(t, f, "s1", "")

	// let several revisions go by unread
	for rev := int64(2); rev <= 5; rev++ {
		time.Sleep(15 * time.Millisecond)
		f.set(snapshotAt(rev), nil)
	}
	time.Sleep(30 * time.Millisecond)

	got := recvSnapshot(t, s.Snapshots(), 100*time.Millisecond)
	if got.Revision() != 5 {
		t.Fatalf("slow reader: want latest revision 5, got %d", got.Revision())
	}
}

func TestSyncer_StopsWhenSessionGone(t *testing.T) {
	f := &fakeFetcher{}
	f.set(snapshotAt(0, "p2"), nil)
	s, done, _ := startSyncer(t, f, "s1", "p2")
	recvSnapshot(t, s.Snapshots(), 200*time.Millisecond)

	f.set(game.Snapshot{}, fmt.Errorf("fetch: %w", engine.ErrSessionNotFound))
	if err := recvDone(t, done, 200*time.Millisecond); !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestSyncer_StopsWhenPlayerRemoved(t *testing.T) {
	f := &fakeFetcher{}
	f.set(snapshotAt(0, "host", "p2"), nil)
	s, done, _ := startSyncer(t, f, "s1", "p2")
	recvSnapshot(t, s.Snapshots(), 200*time.Millisecond)

	f.set(snapshotAt(1, "host"), nil)
	last := recvSnapshot(t, s.Snapshots(), 200*time.Millisecond)
	if _, ok := last.Player("p2"); ok {
		t.Fatalf("final snapshot should not seat p2")
	}
	if err := recvDone(t, done, 200*time.Millisecond); !errors.Is(err, engine.ErrPlayerNotFound) {
		t.Fatalf("want ErrPlayerNotFound, got %v", err)
	}
}

func TestSyncer_KeepsPollingThroughOutages(t *testing.T) {
	f := &fakeFetcher{}
	f.set(game.Snapshot{}, fmt.Errorf("%w: connection refused", engine.ErrUnavailable))
	s, done, _ := startSyncer(t, f, "s1", "")

	recvNoSnapshot(t, s.Snapshots(), 30*time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("syncer stopped during outage: %v", err)
	default:
	}

	f.set(snapshotAt(7), nil)
	got := recvSnapshot(t, s.Snapshots(), 200*time.Millisecond)
	if got.Revision() != 7 {
		t.Fatalf("after outage: want revision 7, got %d", got.Revision())
	}
}

// sinceFetcher reports unchanged whenever since matches the current revision.
type sinceFetcher struct {
	fakeFetcher
	sinceCalls int
}

func (f *sinceFetcher) GetSnapshotSince(ctx context.Context, sessionID string, since int64) (game.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinceCalls++
	if f.err != nil {
		return game.Snapshot{}, false, f.err
	}
	if f.snap.Revision() == since {
		return game.Snapshot{}, false, nil
	}
	return f.snap, true, nil
}

func TestSyncer_UsesConditionalFetch(t *testing.T) {
	f := &sinceFetcher{}
	f.set(snapshotAt(2), nil)
	s, _, _ := startSyncer(t, f, "s1", "")

	recvSnapshot(t, s.Snapshots(), 200*time.Millisecond)
	recvNoSnapshot(t, s.Snapshots(), 30*time.Millisecond)

	f.mu.Lock()
	plain, since := f.calls, f.sinceCalls
	f.mu.Unlock()
	if plain != 1 || since == 0 {
		t.Fatalf("want one full fetch then conditional ones, got full=%d since=%d", plain, since)
	}
}

func TestSyncer_AgainstService(t *testing.T) {
	mem := store.NewMemory(context.Background())
	t.Cleanup(func() { _ = mem.Close() })
	svc := game.NewService(mem, nil, game.Options{})
	ctx := context.Background()

	sess, _, err := svc.CreateSession(ctx, "", game.Identity{ID: "host", Name: "Hana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s, done, _ := startSyncer(t, svc, sess.ID, "host")
	first := recvSnapshot(t, s.Snapshots(), 200*time.Millisecond)
	if len(first.Players) != 1 {
		t.Fatalf("want host only, got %d players", len(first.Players))
	}

	if _, _, err := svc.JoinSession(ctx, sess.Code, game.Identity{ID: "p2", Name: "Gus"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	next := recvSnapshot(t, s.Snapshots(), 200*time.Millisecond)
	if len(next.Players) != 2 || next.Revision() <= first.Revision() {
		t.Fatalf("join not observed: %d players at revision %d", len(next.Players), next.Revision())
	}

	if err := svc.LeaveSession(ctx, sess.ID, "host"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := recvDone(t, done, 200*time.Millisecond); !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound after host left, got %v", err)
	}
}
