package domain

import (
	"time"

	"github.com/google/uuid"
)

type TurnState string

const (
	TurnWaiting    TurnState = "WAITING"
	TurnInService  TurnState = "IN_SERVICE"
	TurnFinalized  TurnState = "FINALIZED"
	TurnCancelled  TurnState = "CANCELLED"
)

func (s TurnState) Terminal() bool {
	return s == TurnFinalized || s == TurnCancelled
}

// Turn is a single customer appointment within one workshop.
type Turn struct {
	ID          uuid.UUID
	WorkshopID  uuid.UUID
	TurnNumber  int
	CustomerName string
	Phone        string
	VehicleModel string
	Plate        string
	Problem      string
	State        TurnState

	CreatedAt   time.Time
	StartedAt   *time.Time
	FinalizedAt *time.Time
	CancelledAt *time.Time
}

// TurnSummary is the non-PII projection returned by Status.
type TurnSummary struct {
	TurnNumber int       `json:"numeroTurno"`
	State      TurnState `json:"estado"`
}

func (t Turn) Summary() TurnSummary {
	return TurnSummary{TurnNumber: t.TurnNumber, State: t.State}
}

// TurnDetail is the full projection returned by List, with timestamps
// truncated to second precision so they marshal as ISO-8601 seconds
// precision rather than Go's default RFC3339Nano.
type TurnDetail struct {
	ID                   uuid.UUID  `json:"id"`
	NumeroTurno          int        `json:"numeroTurno"`
	NombreCliente        string     `json:"nombreCliente"`
	Telefono             string     `json:"telefono"`
	ModeloVehiculo       string     `json:"modeloVehiculo"`
	Patente              string     `json:"patente"`
	DescripcionProblema  string     `json:"descripcionProblema"`
	Estado               TurnState  `json:"estado"`
	CreadoEn             time.Time  `json:"creadoEn"`
	IniciadoEn           *time.Time `json:"iniciadoEn"`
	FinalizadoEn         *time.Time `json:"finalizadoEn"`
	CanceladoEn          *time.Time `json:"canceladoEn"`
}

func (t Turn) Detail() TurnDetail {
	return TurnDetail{
		ID:                  t.ID,
		NumeroTurno:         t.TurnNumber,
		NombreCliente:       t.CustomerName,
		Telefono:            t.Phone,
		ModeloVehiculo:      t.VehicleModel,
		Patente:             t.Plate,
		DescripcionProblema: t.Problem,
		Estado:              t.State,
		CreadoEn:            t.CreatedAt.Truncate(time.Second),
		IniciadoEn:          truncatePtr(t.StartedAt),
		FinalizadoEn:        truncatePtr(t.FinalizedAt),
		CanceladoEn:         truncatePtr(t.CancelledAt),
	}
}

func truncatePtr(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	truncated := ts.Truncate(time.Second)
	return &truncated
}

// CreateTurnInput is the validated payload for QueueEngine.Create.
type CreateTurnInput struct {
	CustomerName string
	Phone        string
	VehicleModel string
	Plate        string
	Problem      string
}
