package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store abstracts the relational back end: transactional persistence with
// row-level pessimistic write locks, monotonic counters, and filtered
// queries. The QueueEngine never issues SQL itself; every I/O operation it
// needs is named here.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// Read-only, unlocked.
	ListNonTerminal(ctx context.Context, workshopID uuid.UUID) ([]Turn, error)
	ListByPlateSubstring(ctx context.Context, workshopID uuid.UUID, plateQuery string) ([]Turn, error)
}

// Tx is a single Store transaction. All locking operations are scoped to it;
// Commit or Rollback must be called exactly once, and implementations must
// guarantee the underlying lock/connection is released on every exit path.
type Tx interface {
	// LockWorkshop acquires a pessimistic write lock on the Workshop row.
	// This is the synchronisation root: it serialises all Create/Finalize/
	// Cancel operations for that workshop.
	LockWorkshop(ctx context.Context, id uuid.UUID) (Workshop, error)

	// LockTurn acquires a pessimistic write lock on the Turn row. Callers
	// must lock the parent Workshop first to avoid lock-order cycles.
	LockTurn(ctx context.Context, id uuid.UUID) (Turn, error)

	// PeekTurnWorkshopID returns the owning workshop ID for a turn without
	// taking any lock. workshop_id is fixed at Create and never changes, so
	// this is safe to call ahead of LockWorkshop/LockTurn to establish the
	// fixed lock order when only a turn ID is known up front.
	PeekTurnWorkshopID(ctx context.Context, turnID uuid.UUID) (uuid.UUID, error)

	MaxTurnNumber(ctx context.Context, workshopID uuid.UUID) (int, error)
	CountInService(ctx context.Context, workshopID uuid.UUID) (int, error)

	// FindNonTerminalByPlate is used for the I4 pre-check on Create and for
	// CancelByPlate's lookup. Returns (Turn{}, false, nil) when none found.
	FindNonTerminalByPlate(ctx context.Context, workshopID uuid.UUID, plate string) (Turn, bool, error)

	// OldestWaiting selects the promotion candidate: ORDER BY created_at
	// ASC, turn_number ASC LIMIT 1, under an update lock so two concurrent
	// Finalizes cannot promote the same waiter.
	OldestWaiting(ctx context.Context, workshopID uuid.UUID) (Turn, bool, error)

	InsertTurn(ctx context.Context, t Turn) error

	// UpdateTurnState transitions a turn and stamps the timestamp for the
	// corresponding field ("started_at", "finalized_at", "cancelled_at").
	// ts may be zero when no timestamp field applies to this transition.
	UpdateTurnState(ctx context.Context, id uuid.UUID, newState TurnState, tsField string, ts time.Time) error

	// Notify enqueues a Notifier event to fire only if this transaction
	// commits; it is the post-commit hook described in the design notes.
	Notify(turn Turn)

	// TryReserveIdempotencyKey claims (key, scope) exactly once. ok is false
	// when a prior request already claimed it — the caller should treat the
	// write as already applied rather than repeating it. An empty key
	// always returns ok=true, since the header is optional.
	TryReserveIdempotencyKey(ctx context.Context, key, scope string) (ok bool, err error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
