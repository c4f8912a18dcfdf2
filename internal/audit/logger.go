package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tallercloud/turnero/internal/domain"
	appCtx "github.com/tallercloud/turnero/internal/pkg/context"
)

// Logger provides structured audit logging for turn state transitions.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Bool("audit", true).Logger()}
}

func (l *Logger) TurnCreated(ctx context.Context, turn domain.Turn) {
	l.log.Info().
		Str("action", "turn_created").
		Str("workshop_id", turn.WorkshopID.String()).
		Str("turn_id", turn.ID.String()).
		Int("turn_number", turn.TurnNumber).
		Str("state", string(turn.State)).
		Str("trace_id", getTraceID(ctx)).
		Msg("turn created")
}

func (l *Logger) TurnFinalized(ctx context.Context, turnID uuid.UUID) {
	l.log.Info().
		Str("action", "turn_finalized").
		Str("turn_id", turnID.String()).
		Str("trace_id", getTraceID(ctx)).
		Msg("turn finalized")
}

func (l *Logger) TurnCancelled(ctx context.Context, turnID uuid.UUID) {
	l.log.Info().
		Str("action", "turn_cancelled").
		Str("turn_id", turnID.String()).
		Str("trace_id", getTraceID(ctx)).
		Msg("turn cancelled")
}

func (l *Logger) TurnPromoted(ctx context.Context, turnID uuid.UUID) {
	l.log.Info().
		Str("action", "turn_promoted").
		Str("turn_id", turnID.String()).
		Str("trace_id", getTraceID(ctx)).
		Msg("turn promoted from waiting to in service")
}

// CapacityChanged logs a workshop capacity edit. The design leaves these
// unaudited in the domain model itself (no audit trail requirement), but
// they're still worth an INFO line for operators watching the log stream.
func (l *Logger) CapacityChanged(ctx context.Context, workshopID uuid.UUID, oldCapacity, newCapacity int) {
	l.log.Info().
		Str("action", "capacity_changed").
		Str("workshop_id", workshopID.String()).
		Int("old_capacity", oldCapacity).
		Int("new_capacity", newCapacity).
		Str("trace_id", getTraceID(ctx)).
		Msg("workshop capacity changed")
}

func (l *Logger) OutboxMessageDead(ctx context.Context, messageID, routingKey string, retries int) {
	l.log.Error().
		Str("action", "outbox_dead").
		Str("message_id", messageID).
		Str("routing_key", routingKey).
		Int("retries", retries).
		Msg("outbox message moved to dead status")
}

func getTraceID(ctx context.Context) string {
	if v := ctx.Value("trace_id"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return appCtx.GetRequestID(ctx)
}
