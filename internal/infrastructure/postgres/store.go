// Package postgres implements domain.Store and domain.WorkshopDirectory
// over pgx. The Workshop row is always locked before any Turn row, and
// promotion candidates are selected with FOR UPDATE so two concurrent
// Finalizes cannot promote the same waiter.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallercloud/turnero/internal/domain"
	"github.com/tallercloud/turnero/internal/pkg/logger"
)

// Store implements domain.Store over a pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) BeginTx(ctx context.Context) (domain.Tx, error) {
	pgxTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{pool: s.pool, tx: pgxTx}, nil
}

func (s *Store) ListNonTerminal(ctx context.Context, workshopID uuid.UUID) ([]domain.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model, plate,
		       problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns
		WHERE workshop_id = $1 AND state IN ('WAITING', 'IN_SERVICE')
		ORDER BY turn_number ASC
	`, workshopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTurns(rows)
}

func (s *Store) ListByPlateSubstring(ctx context.Context, workshopID uuid.UUID, plateQuery string) ([]domain.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model, plate,
		       problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns
		WHERE workshop_id = $1 AND plate ILIKE '%' || $2 || '%'
		ORDER BY turn_number ASC
	`, workshopID, plateQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTurns(rows)
}

// Tx implements domain.Tx over a single pgx.Tx.
type Tx struct {
	pool     *pgxpool.Pool
	tx       pgx.Tx
	notified []domain.Turn
}

func (t *Tx) LockWorkshop(ctx context.Context, id uuid.UUID) (domain.Workshop, error) {
	var w domain.Workshop
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, address, logo, capacity
		FROM workshops
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&w.ID, &w.Name, &w.Address, &w.Logo, &w.Capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	if err != nil {
		return domain.Workshop{}, domain.Wrap(domain.KindInternal, "lock workshop", err)
	}
	return w, nil
}

func (t *Tx) LockTurn(ctx context.Context, id uuid.UUID) (domain.Turn, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model, plate,
		       problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns
		WHERE id = $1
		FOR UPDATE
	`, id)
	turn, err := scanTurn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Turn{}, domain.ErrTurnNotFound
	}
	if err != nil {
		return domain.Turn{}, domain.Wrap(domain.KindInternal, "lock turn", err)
	}
	return turn, nil
}

func (t *Tx) PeekTurnWorkshopID(ctx context.Context, turnID uuid.UUID) (uuid.UUID, error) {
	var workshopID uuid.UUID
	err := t.tx.QueryRow(ctx, `SELECT workshop_id FROM turns WHERE id = $1`, turnID).Scan(&workshopID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.UUID{}, domain.ErrTurnNotFound
	}
	if err != nil {
		return uuid.UUID{}, domain.Wrap(domain.KindInternal, "peek turn workshop id", err)
	}
	return workshopID, nil
}

func (t *Tx) MaxTurnNumber(ctx context.Context, workshopID uuid.UUID) (int, error) {
	var max int
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(turn_number), 0) FROM turns WHERE workshop_id = $1
	`, workshopID).Scan(&max)
	return max, err
}

func (t *Tx) CountInService(ctx context.Context, workshopID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM turns WHERE workshop_id = $1 AND state = 'IN_SERVICE'
	`, workshopID).Scan(&n)
	return n, err
}

func (t *Tx) FindNonTerminalByPlate(ctx context.Context, workshopID uuid.UUID, plate string) (domain.Turn, bool, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model, plate,
		       problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns
		WHERE workshop_id = $1 AND plate = $2 AND state IN ('WAITING', 'IN_SERVICE')
		FOR UPDATE
	`, workshopID, plate)
	turn, err := scanTurn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Turn{}, false, nil
	}
	if err != nil {
		return domain.Turn{}, false, domain.Wrap(domain.KindInternal, "find by plate", err)
	}
	return turn, true, nil
}

func (t *Tx) OldestWaiting(ctx context.Context, workshopID uuid.UUID) (domain.Turn, bool, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model, plate,
		       problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns
		WHERE workshop_id = $1 AND state = 'WAITING'
		ORDER BY created_at ASC, turn_number ASC
		LIMIT 1
		FOR UPDATE
	`, workshopID)
	turn, err := scanTurn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Turn{}, false, nil
	}
	if err != nil {
		return domain.Turn{}, false, domain.Wrap(domain.KindInternal, "oldest waiting", err)
	}
	return turn, true, nil
}

func (t *Tx) InsertTurn(ctx context.Context, turn domain.Turn) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO turns (id, workshop_id, turn_number, customer_name, phone, vehicle_model,
		                    plate, problem, state, created_at, started_at, finalized_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, turn.ID, turn.WorkshopID, turn.TurnNumber, turn.CustomerName, turn.Phone, turn.VehicleModel,
		turn.Plate, turn.Problem, string(turn.State), turn.CreatedAt, turn.StartedAt, turn.FinalizedAt, turn.CancelledAt)
	return err
}

func (t *Tx) UpdateTurnState(ctx context.Context, id uuid.UUID, newState domain.TurnState, tsField string, ts time.Time) error {
	switch tsField {
	case "started_at":
		_, err := t.tx.Exec(ctx, `UPDATE turns SET state = $2, started_at = $3 WHERE id = $1`, id, string(newState), ts)
		return err
	case "finalized_at":
		_, err := t.tx.Exec(ctx, `UPDATE turns SET state = $2, finalized_at = $3 WHERE id = $1`, id, string(newState), ts)
		return err
	case "cancelled_at":
		_, err := t.tx.Exec(ctx, `UPDATE turns SET state = $2, cancelled_at = $3 WHERE id = $1`, id, string(newState), ts)
		return err
	default:
		_, err := t.tx.Exec(ctx, `UPDATE turns SET state = $2 WHERE id = $1`, id, string(newState))
		return err
	}
}

// Notify stages the event into the same transaction's outbox table rather
// than calling a Notifier directly, so the commit/rollback boundary is the
// only thing deciding whether the event is ever delivered — the post-commit
// hook the design notes call for.
func (t *Tx) Notify(turn domain.Turn) {
	payload, err := json.Marshal(map[string]any{
		"id":          turn.ID,
		"workshopId":  turn.WorkshopID,
		"numeroTurno": turn.TurnNumber,
		"estado":      turn.State,
		"patente":     turn.Plate,
	})
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to marshal turn notification payload")
		return
	}
	_, err = t.tx.Exec(context.Background(), `
		INSERT INTO outbox (id, message_id, trace_id, routing_key, payload, occurred_at, status, attempt, next_retry_at)
		VALUES ($1, $2, '', 'turn.created', $3, NOW(), 'pending', 0, NOW())
	`, uuid.New(), uuid.New(), payload)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to stage turn.created outbox row")
	}
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(row rowScanner) (domain.Turn, error) {
	var t domain.Turn
	var state string
	err := row.Scan(&t.ID, &t.WorkshopID, &t.TurnNumber, &t.CustomerName, &t.Phone, &t.VehicleModel,
		&t.Plate, &t.Problem, &state, &t.CreatedAt, &t.StartedAt, &t.FinalizedAt, &t.CancelledAt)
	t.State = domain.TurnState(state)
	return t, err
}

func scanTurns(rows pgx.Rows) ([]domain.Turn, error) {
	var out []domain.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, turn)
	}
	return out, rows.Err()
}
