// Package engine implements the core appointment scheduler and queue
// engine described by the system's state machine: it owns the numbering
// invariant, the capacity invariant, and the promotion rule, and talks to
// persistence only through domain.Store.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallercloud/turnero/internal/domain"
)

// QueueEngine is the pure-business-logic implementation of domain.Engine.
// It never issues SQL directly: every read or write goes through the
// domain.Store/domain.Tx primitives, which keeps the state machine
// testable against an in-memory fake store.
type QueueEngine struct {
	store     domain.Store
	clock     domain.Clock
	directory domain.WorkshopDirectory
	notifier  domain.Notifier
}

func New(store domain.Store, clock domain.Clock, directory domain.WorkshopDirectory) *QueueEngine {
	return &QueueEngine{store: store, clock: clock, directory: directory}
}

// WithNotifier attaches an additional post-commit domain.Notifier, invoked
// after Create's transaction commits successfully. This is separate from
// Tx.Notify, which stages the same event into the Store's own transactional
// outbox; WithNotifier exists for callers that want a notification path
// independent of the Store implementation, such as the in-memory bounded
// queue used in local/dev runs without an outbox worker.
func (e *QueueEngine) WithNotifier(n domain.Notifier) *QueueEngine {
	e.notifier = n
	return e
}

var _ domain.Engine = (*QueueEngine)(nil)

const (
	idempotencyScopeCreate   = "turn.create"
	idempotencyScopeFinalize = "turn.finalize"
	idempotencyScopeCancel   = "turn.cancel"
)

func normalisePlate(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Create assigns the next turn_number, decides immediate service vs.
// waiting, and persists the new turn — all under the Workshop row lock so
// concurrent Creates on the same workshop see a consistent counter and
// capacity.
func (e *QueueEngine) Create(ctx context.Context, workshopID uuid.UUID, in domain.CreateTurnInput) (domain.Turn, error) {
	plate := normalisePlate(in.Plate)
	if plate == "" {
		return domain.Turn{}, domain.ErrPlateRequired
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return domain.Turn{}, domain.Wrap(domain.KindInternal, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if ok, err := tx.TryReserveIdempotencyKey(ctx, domain.IdempotencyKeyFromContext(ctx), idempotencyScopeCreate); err != nil {
		return domain.Turn{}, domain.Wrap(domain.KindInternal, "reserve idempotency key", err)
	} else if !ok {
		return domain.Turn{}, domain.NewError(domain.KindStateConflict, "duplicate request")
	}

	workshop, err := tx.LockWorkshop(ctx, workshopID)
	if err != nil {
		return domain.Turn{}, err
	}

	if existing, found, err := tx.FindNonTerminalByPlate(ctx, workshopID, plate); err != nil {
		return domain.Turn{}, err
	} else if found {
		return domain.Turn{}, domain.NewDuplicatePlateError(existing.TurnNumber)
	}

	maxNumber, err := tx.MaxTurnNumber(ctx, workshopID)
	if err != nil {
		return domain.Turn{}, err
	}
	nextNumber := maxNumber + 1

	inService, err := tx.CountInService(ctx, workshopID)
	if err != nil {
		return domain.Turn{}, err
	}

	now := e.clock.Now()
	turn := domain.Turn{
		ID:           uuid.New(),
		WorkshopID:   workshopID,
		TurnNumber:   nextNumber,
		CustomerName: in.CustomerName,
		Phone:        in.Phone,
		VehicleModel: in.VehicleModel,
		Plate:        plate,
		Problem:      in.Problem,
		CreatedAt:    now,
	}

	if inService < workshop.Capacity {
		turn.State = domain.TurnInService
		turn.StartedAt = &now
	} else {
		turn.State = domain.TurnWaiting
	}

	if err := tx.InsertTurn(ctx, turn); err != nil {
		return domain.Turn{}, domain.Wrap(domain.KindInternal, "insert turn", err)
	}

	tx.Notify(turn)

	if err := tx.Commit(ctx); err != nil {
		return domain.Turn{}, domain.Wrap(domain.KindInternal, "commit", err)
	}
	if e.notifier != nil {
		e.notifier.TurnCreated(turn)
	}
	return turn, nil
}

// Finalize marks an IN_SERVICE turn as FINALIZED and promotes the oldest
// WAITING turn into the slot it frees, if one exists.
func (e *QueueEngine) Finalize(ctx context.Context, turnID uuid.UUID) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return domain.Wrap(domain.KindInternal, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if ok, err := tx.TryReserveIdempotencyKey(ctx, domain.IdempotencyKeyFromContext(ctx), idempotencyScopeFinalize); err != nil {
		return domain.Wrap(domain.KindInternal, "reserve idempotency key", err)
	} else if !ok {
		return domain.NewError(domain.KindStateConflict, "duplicate request")
	}

	// Resolve the owning workshop before taking any row lock, so Workshop is
	// locked before Turn here too, in the same order as Create and Cancel.
	// Taking the Turn lock first would cycle against a concurrent Cancel of
	// the same turn, which holds Workshop while waiting on this Turn.
	workshopID, err := tx.PeekTurnWorkshopID(ctx, turnID)
	if err != nil {
		return err
	}
	if _, err := tx.LockWorkshop(ctx, workshopID); err != nil {
		return err
	}

	turn, err := tx.LockTurn(ctx, turnID)
	if err != nil {
		return err
	}
	if turn.State != domain.TurnInService {
		return domain.NewError(domain.KindStateConflict, "turn is not in service")
	}

	now := e.clock.Now()
	if err := tx.UpdateTurnState(ctx, turn.ID, domain.TurnFinalized, "finalized_at", now); err != nil {
		return domain.Wrap(domain.KindInternal, "update turn state", err)
	}

	if err := e.promote(ctx, tx, turn.WorkshopID, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Wrap(domain.KindInternal, "commit", err)
	}
	return nil
}

// Cancel transitions a WAITING or IN_SERVICE turn to CANCELLED, promoting
// a waiter if the cancelled turn was occupying a service slot.
func (e *QueueEngine) Cancel(ctx context.Context, turnID uuid.UUID, presentedPlate string) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return domain.Wrap(domain.KindInternal, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if ok, err := tx.TryReserveIdempotencyKey(ctx, domain.IdempotencyKeyFromContext(ctx), idempotencyScopeCancel); err != nil {
		return domain.Wrap(domain.KindInternal, "reserve idempotency key", err)
	} else if !ok {
		return domain.NewError(domain.KindStateConflict, "duplicate request")
	}

	// Resolve the owning workshop before taking any row lock, so Workshop is
	// always locked before Turn here, matching Create's and Finalize's lock
	// order so no two of them can hold a Turn while waiting on its Workshop.
	workshopID, err := tx.PeekTurnWorkshopID(ctx, turnID)
	if err != nil {
		return err
	}
	if _, err := tx.LockWorkshop(ctx, workshopID); err != nil {
		return err
	}

	turn, err := tx.LockTurn(ctx, turnID)
	if err != nil {
		return err
	}

	if normalisePlate(presentedPlate) != turn.Plate {
		return domain.ErrPlateMismatch
	}
	if turn.State.Terminal() {
		return domain.NewError(domain.KindStateConflict, "turn is already in a terminal state")
	}

	priorState := turn.State
	now := e.clock.Now()
	if err := tx.UpdateTurnState(ctx, turn.ID, domain.TurnCancelled, "cancelled_at", now); err != nil {
		return domain.Wrap(domain.KindInternal, "update turn state", err)
	}

	if priorState == domain.TurnInService {
		if err := e.promote(ctx, tx, turn.WorkshopID, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Wrap(domain.KindInternal, "commit", err)
	}
	return nil
}

// CancelByPlate looks up the unique non-terminal turn for (workshop,
// plate) under lock and delegates to Cancel.
func (e *QueueEngine) CancelByPlate(ctx context.Context, workshopID uuid.UUID, presentedPlate string) (domain.Turn, error) {
	plate := normalisePlate(presentedPlate)

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return domain.Turn{}, domain.Wrap(domain.KindInternal, "begin transaction", err)
	}

	if _, err := tx.LockWorkshop(ctx, workshopID); err != nil {
		_ = tx.Rollback(ctx)
		return domain.Turn{}, err
	}

	turn, found, err := tx.FindNonTerminalByPlate(ctx, workshopID, plate)
	if err != nil {
		_ = tx.Rollback(ctx)
		return domain.Turn{}, err
	}
	if !found {
		_ = tx.Rollback(ctx)
		return domain.Turn{}, domain.NewError(domain.KindNotFound, "no active turn for this plate")
	}
	// Release this lookup transaction; Cancel opens its own, consistent
	// with how the spec describes CancelByPlate as a thin convenience
	// wrapper delegating to Cancel rather than sharing its transaction.
	_ = tx.Rollback(ctx)

	if err := e.Cancel(ctx, turn.ID, plate); err != nil {
		return domain.Turn{}, err
	}
	turn.State = domain.TurnCancelled
	return turn, nil
}

// promote moves the oldest WAITING turn into IN_SERVICE, if any exists.
// Exactly one promotion per call, because exactly one service slot was
// just freed by the caller (Finalize or a from-service Cancel).
func (e *QueueEngine) promote(ctx context.Context, tx domain.Tx, workshopID uuid.UUID, now time.Time) error {
	waiter, found, err := tx.OldestWaiting(ctx, workshopID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return tx.UpdateTurnState(ctx, waiter.ID, domain.TurnInService, "started_at", now)
}

// Status returns non-terminal turns split by state, sorted by turn_number.
// Read-only; takes no locks, so it may observe a turn mid-transition — this
// is accepted as advisory per the concurrency model.
func (e *QueueEngine) Status(ctx context.Context, workshopID uuid.UUID) (domain.StatusResult, error) {
	workshop, err := e.directory.Get(ctx, workshopID)
	if err != nil {
		return domain.StatusResult{}, err
	}

	turns, err := e.store.ListNonTerminal(ctx, workshopID)
	if err != nil {
		return domain.StatusResult{}, domain.Wrap(domain.KindInternal, "list non-terminal turns", err)
	}

	res := domain.StatusResult{Name: workshop.Name, Capacity: workshop.Capacity}
	for _, t := range turns {
		switch t.State {
		case domain.TurnInService:
			res.InService = append(res.InService, t.Summary())
		case domain.TurnWaiting:
			res.Waiting = append(res.Waiting, t.Summary())
		}
	}
	return res, nil
}

// List returns non-terminal turns sorted by turn_number, or when
// filter.Plate is set, every turn (including terminal) matching it as a
// case-insensitive substring — for customer-lookup purposes.
func (e *QueueEngine) List(ctx context.Context, workshopID uuid.UUID, filter domain.ListFilter) ([]domain.Turn, error) {
	plate := strings.TrimSpace(filter.Plate)
	if plate == "" {
		turns, err := e.store.ListNonTerminal(ctx, workshopID)
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "list non-terminal turns", err)
		}
		return turns, nil
	}
	turns, err := e.store.ListByPlateSubstring(ctx, workshopID, plate)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "list by plate substring", err)
	}
	return turns, nil
}
