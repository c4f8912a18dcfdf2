package domain

import (
	"context"

	"github.com/google/uuid"
)

// Workshop is an independent service unit with its own queue, capacity,
// and turn-numbering space.
type Workshop struct {
	ID       uuid.UUID
	Name     string
	Address  string
	Logo     string
	Capacity int
}

// WorkshopDirectory is a read-only façade over Workshop rows, used by the
// Status/List endpoints and external admin display. The engine's own reads
// during Create/Finalize/Cancel go through Store locks, never this
// directory, so that every decision the state machine makes is made under
// the Workshop row lock.
type WorkshopDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (Workshop, error)
	List(ctx context.Context) ([]Workshop, error)
}
