package engine_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tallercloud/turnero/internal/domain"
)

// fakeStore is an in-memory domain.Store used to exercise the QueueEngine's
// business logic without a database. It serialises transactions with a
// single mutex, which is enough to stand in for the Workshop row lock in
// unit tests — the real locking story is covered by the postgres package's
// integration tests.
type fakeStore struct {
	mu              sync.Mutex
	workshops       map[uuid.UUID]domain.Workshop
	turns           map[uuid.UUID]domain.Turn
	idempotencyKeys map[string]bool
}

func newFakeStore(workshops ...domain.Workshop) *fakeStore {
	s := &fakeStore{
		workshops:       map[uuid.UUID]domain.Workshop{},
		turns:           map[uuid.UUID]domain.Turn{},
		idempotencyKeys: map[string]bool{},
	}
	for _, w := range workshops {
		s.workshops[w.ID] = w
	}
	return s
}

func (s *fakeStore) BeginTx(ctx context.Context) (domain.Tx, error) {
	s.mu.Lock()
	return &fakeTx{store: s}, nil
}

func (s *fakeStore) ListNonTerminal(ctx context.Context, workshopID uuid.UUID) ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Turn
	for _, t := range s.turns {
		if t.WorkshopID == workshopID && !t.State.Terminal() {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out, nil
}

func (s *fakeStore) ListByPlateSubstring(ctx context.Context, workshopID uuid.UUID, plateQuery string) ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Turn
	for _, t := range s.turns {
		if t.WorkshopID == workshopID && contains(t.Plate, plateQuery) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out, nil
}

func contains(haystack, needle string) bool {
	hu, nu := upper(haystack), upper(needle)
	if nu == "" {
		return true
	}
	return indexOf(hu, nu) >= 0
}

func upper(s string) string {
	r := []rune(s)
	for i, c := range r {
		if c >= 'a' && c <= 'z' {
			r[i] = c - 32
		}
	}
	return string(r)
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

type fakeTx struct {
	store    *fakeStore
	notified []domain.Turn
	done     bool
}

func (t *fakeTx) LockWorkshop(ctx context.Context, id uuid.UUID) (domain.Workshop, error) {
	w, ok := t.store.workshops[id]
	if !ok {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	return w, nil
}

func (t *fakeTx) LockTurn(ctx context.Context, id uuid.UUID) (domain.Turn, error) {
	turn, ok := t.store.turns[id]
	if !ok {
		return domain.Turn{}, domain.ErrTurnNotFound
	}
	return turn, nil
}

func (t *fakeTx) PeekTurnWorkshopID(ctx context.Context, turnID uuid.UUID) (uuid.UUID, error) {
	turn, ok := t.store.turns[turnID]
	if !ok {
		return uuid.UUID{}, domain.ErrTurnNotFound
	}
	return turn.WorkshopID, nil
}

func (t *fakeTx) TryReserveIdempotencyKey(ctx context.Context, key, scope string) (bool, error) {
	if key == "" {
		return true, nil
	}
	k := scope + "|" + key
	if t.store.idempotencyKeys[k] {
		return false, nil
	}
	t.store.idempotencyKeys[k] = true
	return true, nil
}

func (t *fakeTx) MaxTurnNumber(ctx context.Context, workshopID uuid.UUID) (int, error) {
	max := 0
	for _, turn := range t.store.turns {
		if turn.WorkshopID == workshopID && turn.TurnNumber > max {
			max = turn.TurnNumber
		}
	}
	return max, nil
}

func (t *fakeTx) CountInService(ctx context.Context, workshopID uuid.UUID) (int, error) {
	n := 0
	for _, turn := range t.store.turns {
		if turn.WorkshopID == workshopID && turn.State == domain.TurnInService {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) FindNonTerminalByPlate(ctx context.Context, workshopID uuid.UUID, plate string) (domain.Turn, bool, error) {
	for _, turn := range t.store.turns {
		if turn.WorkshopID == workshopID && turn.Plate == plate && !turn.State.Terminal() {
			return turn, true, nil
		}
	}
	return domain.Turn{}, false, nil
}

func (t *fakeTx) OldestWaiting(ctx context.Context, workshopID uuid.UUID) (domain.Turn, bool, error) {
	var best domain.Turn
	found := false
	for _, turn := range t.store.turns {
		if turn.WorkshopID != workshopID || turn.State != domain.TurnWaiting {
			continue
		}
		if !found {
			best, found = turn, true
			continue
		}
		if turn.CreatedAt.Before(best.CreatedAt) ||
			(turn.CreatedAt.Equal(best.CreatedAt) && turn.TurnNumber < best.TurnNumber) {
			best = turn
		}
	}
	return best, found, nil
}

func (t *fakeTx) InsertTurn(ctx context.Context, turn domain.Turn) error {
	t.store.turns[turn.ID] = turn
	return nil
}

func (t *fakeTx) UpdateTurnState(ctx context.Context, id uuid.UUID, newState domain.TurnState, tsField string, ts time.Time) error {
	turn, ok := t.store.turns[id]
	if !ok {
		return domain.ErrTurnNotFound
	}
	turn.State = newState
	switch tsField {
	case "started_at":
		turn.StartedAt = &ts
	case "finalized_at":
		turn.FinalizedAt = &ts
	case "cancelled_at":
		turn.CancelledAt = &ts
	}
	t.store.turns[id] = turn
	return nil
}

func (t *fakeTx) Notify(turn domain.Turn) {
	t.notified = append(t.notified, turn)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.now
	c.now = c.now.Add(time.Millisecond)
	return n
}

type fakeDirectory struct {
	store *fakeStore
}

func (d *fakeDirectory) Get(ctx context.Context, id uuid.UUID) (domain.Workshop, error) {
	w, ok := d.store.workshops[id]
	if !ok {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	return w, nil
}

func (d *fakeDirectory) List(ctx context.Context) ([]domain.Workshop, error) {
	var out []domain.Workshop
	for _, w := range d.store.workshops {
		out = append(out, w)
	}
	return out, nil
}
