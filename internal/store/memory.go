package store

import (
	"context"
	"slices"
	"time"
)

// Memory is an in-process Store. A single goroutine owns every table and
// runs requests one at a time, which is what makes UpdateSession atomic.
type Memory struct {
	inbox  chan request
	tables *tables
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

type request struct {
	run func(t *tables)
}

type tables struct {
	sessions map[string]Session
	codes    map[string]string
	players  map[string][]Player
	moves    map[string][]Move
	claims   map[string][]Claim
}

func NewMemory(parent context.Context) *Memory {
	ctx, cancel := context.WithCancel(parent)
	m := &Memory{
		inbox: make(chan request, 64),
		tables: &tables{
			sessions: make(map[string]Session),
			codes:    make(map[string]string),
			players:  make(map[string][]Player),
			moves:    make(map[string][]Move),
			claims:   make(map[string][]Claim),
		},
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
	}
	go m.loop()
	return m
}

func (m *Memory) loop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case req := <-m.inbox:
			req.run(m.tables)
		}
	}
}

// call hands fn to the owning goroutine and waits for its result. The
// result only travels over the reply channel, so a caller that gives up
// early never shares memory with a fn that is still running.
func call[T any](ctx context.Context, m *Memory, fn func(t *tables) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	reply := make(chan result, 1)
	req := request{run: func(t *tables) {
		v, err := fn(t)
		reply <- result{v, err}
	}}

	var zero T
	select {
	case m.inbox <- req:
	case <-m.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.v, r.err
	case <-m.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		// fn may still run; the caller must treat the outcome as unknown.
		return zero, ctx.Err()
	}
}

func (m *Memory) do(ctx context.Context, fn func(t *tables) error) error {
	_, err := call(ctx, m, func(t *tables) (struct{}, error) {
		return struct{}{}, fn(t)
	})
	return err
}

func (m *Memory) Close() error {
	m.cancel()
	return nil
}

func (m *Memory) CreateSession(ctx context.Context, s Session) error {
	return m.do(ctx, func(t *tables) error {
		if _, ok := t.sessions[s.ID]; ok {
			return ErrDuplicate
		}
		if _, ok := t.codes[s.Code]; ok {
			return ErrDuplicate
		}
		now := m.now()
		s.Drawn = slices.Clone(s.Drawn)
		s.CurrentNumber = currentNumber(s.Drawn)
		s.CreatedAt, s.UpdatedAt = now, now
		t.sessions[s.ID] = s
		t.codes[s.Code] = s.ID
		return nil
	})
}

func (m *Memory) GetSession(ctx context.Context, id string) (Session, error) {
	return call(ctx, m, func(t *tables) (Session, error) {
		s, ok := t.sessions[id]
		if !ok {
			return Session{}, ErrNotFound
		}
		return copySession(s), nil
	})
}

func (m *Memory) GetSessionByCode(ctx context.Context, code string) (Session, error) {
	return call(ctx, m, func(t *tables) (Session, error) {
		id, ok := t.codes[code]
		if !ok {
			return Session{}, ErrNotFound
		}
		return copySession(t.sessions[id]), nil
	})
}

func (m *Memory) UpdateSession(ctx context.Context, id string, cond Condition, patch SessionPatch) (Session, error) {
	return call(ctx, m, func(t *tables) (Session, error) {
		s, ok := t.sessions[id]
		if !ok {
			return Session{}, ErrNotFound
		}
		if cond.Revision != nil && s.Revision != *cond.Revision {
			return Session{}, ErrConditionFailed
		}
		if cond.Phase != "" && s.Phase != cond.Phase {
			return Session{}, ErrConditionFailed
		}
		if cond.NoWinner && s.WinnerID != "" {
			return Session{}, ErrConditionFailed
		}

		if patch.Phase != nil {
			s.Phase = *patch.Phase
		}
		if patch.Drawn != nil {
			s.Drawn = slices.Clone(*patch.Drawn)
			s.CurrentNumber = currentNumber(s.Drawn)
		}
		if patch.WinnerID != nil {
			s.WinnerID = *patch.WinnerID
		}
		s.Revision++
		s.UpdatedAt = m.now()
		t.sessions[id] = s
		return copySession(s), nil
	})
}

func (m *Memory) DeleteSession(ctx context.Context, id string) error {
	return m.do(ctx, func(t *tables) error {
		s, ok := t.sessions[id]
		if !ok {
			return ErrNotFound
		}
		delete(t.codes, s.Code)
		delete(t.sessions, id)
		delete(t.players, id)
		delete(t.moves, id)
		delete(t.claims, id)
		return nil
	})
}

func (m *Memory) UpsertPlayer(ctx context.Context, p Player) (Player, bool, error) {
	type upserted struct {
		p       Player
		created bool
	}
	r, err := call(ctx, m, func(t *tables) (upserted, error) {
		if _, ok := t.sessions[p.SessionID]; !ok {
			return upserted{}, ErrNotFound
		}
		for _, existing := range t.players[p.SessionID] {
			if existing.ID == p.ID {
				return upserted{p: existing}, nil
			}
		}
		if p.JoinedAt.IsZero() {
			p.JoinedAt = m.now()
		}
		t.players[p.SessionID] = append(t.players[p.SessionID], p)
		return upserted{p: p, created: true}, nil
	})
	return r.p, r.created, err
}

func (m *Memory) ListPlayers(ctx context.Context, sessionID string) ([]Player, error) {
	return call(ctx, m, func(t *tables) ([]Player, error) {
		return slices.Clone(t.players[sessionID]), nil
	})
}

func (m *Memory) UpdatePlayer(ctx context.Context, p Player) error {
	return m.do(ctx, func(t *tables) error {
		players := t.players[p.SessionID]
		for i := range players {
			if players[i].ID == p.ID {
				p.JoinedAt = players[i].JoinedAt
				players[i] = p
				return nil
			}
		}
		return ErrNotFound
	})
}

func (m *Memory) DeletePlayer(ctx context.Context, sessionID, playerID string) error {
	return m.do(ctx, func(t *tables) error {
		t.players[sessionID] = slices.DeleteFunc(t.players[sessionID], func(p Player) bool {
			return p.ID == playerID
		})
		return nil
	})
}

func (m *Memory) AppendMove(ctx context.Context, mv Move) error {
	return m.do(ctx, func(t *tables) error {
		if _, ok := t.sessions[mv.SessionID]; !ok {
			return ErrNotFound
		}
		for _, existing := range t.moves[mv.SessionID] {
			if existing.Seq == mv.Seq || existing.Number == mv.Number {
				return ErrDuplicate
			}
		}
		if mv.DrawnAt.IsZero() {
			mv.DrawnAt = m.now()
		}
		moves := append(t.moves[mv.SessionID], mv)
		slices.SortFunc(moves, func(a, b Move) int { return a.Seq - b.Seq })
		t.moves[mv.SessionID] = moves
		return nil
	})
}

func (m *Memory) ListMoves(ctx context.Context, sessionID string) ([]Move, error) {
	return call(ctx, m, func(t *tables) ([]Move, error) {
		return slices.Clone(t.moves[sessionID]), nil
	})
}

func (m *Memory) DeleteMoves(ctx context.Context, sessionID string) error {
	return m.do(ctx, func(t *tables) error {
		delete(t.moves, sessionID)
		return nil
	})
}

func (m *Memory) AddClaim(ctx context.Context, c Claim) error {
	return m.do(ctx, func(t *tables) error {
		if _, ok := t.sessions[c.SessionID]; !ok {
			return ErrNotFound
		}
		for _, existing := range t.claims[c.SessionID] {
			if existing.ID == c.ID || (c.Verified && existing.Verified) {
				return ErrDuplicate
			}
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = m.now()
		}
		t.claims[c.SessionID] = append(t.claims[c.SessionID], c)
		return nil
	})
}

func (m *Memory) ListClaims(ctx context.Context, sessionID string) ([]Claim, error) {
	return call(ctx, m, func(t *tables) ([]Claim, error) {
		return slices.Clone(t.claims[sessionID]), nil
	})
}

func (m *Memory) DeleteClaims(ctx context.Context, sessionID string) error {
	return m.do(ctx, func(t *tables) error {
		delete(t.claims, sessionID)
		return nil
	})
}

func copySession(s Session) Session {
	s.Drawn = slices.Clone(s.Drawn)
	return s
}

var _ Store = (*Memory)(nil)
