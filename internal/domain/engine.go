package domain

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter controls QueueEngine.List.
type ListFilter struct {
	// Plate, if non-empty, is matched as a case-insensitive substring
	// against all turns (including terminal ones). If empty, List returns
	// non-terminal turns only.
	Plate string
}

// StatusResult is the read model returned by QueueEngine.Status.
type StatusResult struct {
	Name      string
	Capacity  int
	InService []TurnSummary
	Waiting   []TurnSummary
}

// Engine is the QueueEngine's public contract: the appointment scheduler
// and queue engine. Pure business logic; all I/O goes through Store.
type Engine interface {
	Create(ctx context.Context, workshopID uuid.UUID, in CreateTurnInput) (Turn, error)
	Finalize(ctx context.Context, turnID uuid.UUID) error
	Cancel(ctx context.Context, turnID uuid.UUID, presentedPlate string) error
	CancelByPlate(ctx context.Context, workshopID uuid.UUID, presentedPlate string) (Turn, error)
	Status(ctx context.Context, workshopID uuid.UUID) (StatusResult, error)
	List(ctx context.Context, workshopID uuid.UUID, filter ListFilter) ([]Turn, error)
}
