package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tallercloud/turnero/internal/audit"
	"github.com/tallercloud/turnero/internal/domain"
)

func isStaff(role string) bool {
	r := strings.ToLower(strings.TrimSpace(role))
	return r == "admin" || r == "staff"
}

// SchedulerService wraps the QueueEngine with the role gating that the HTTP
// layer needs for staff-only operations. The engine itself takes no
// implicit user; the current user is a pure input threaded through here.
type SchedulerService struct {
	engine domain.Engine
	audit  *audit.Logger
}

func New(engine domain.Engine, auditLog *audit.Logger) *SchedulerService {
	return &SchedulerService{engine: engine, audit: auditLog}
}

func (s *SchedulerService) Create(ctx context.Context, workshopID uuid.UUID, in domain.CreateTurnInput) (domain.Turn, error) {
	turn, err := s.engine.Create(ctx, workshopID, in)
	if err != nil {
		return domain.Turn{}, err
	}
	s.audit.TurnCreated(ctx, turn)
	return turn, nil
}

// Finalize is staff-only: the requester's role must be admin or staff.
func (s *SchedulerService) Finalize(ctx context.Context, turnID uuid.UUID, role string) error {
	if !isStaff(role) {
		return domain.NewError(domain.KindForbidden, "only staff may finalize a turn")
	}
	if err := s.engine.Finalize(ctx, turnID); err != nil {
		return err
	}
	s.audit.TurnFinalized(ctx, turnID)
	return nil
}

func (s *SchedulerService) Cancel(ctx context.Context, turnID uuid.UUID, presentedPlate string) error {
	if err := s.engine.Cancel(ctx, turnID, presentedPlate); err != nil {
		return err
	}
	s.audit.TurnCancelled(ctx, turnID)
	return nil
}

func (s *SchedulerService) CancelByPlate(ctx context.Context, workshopID uuid.UUID, presentedPlate string) (domain.Turn, error) {
	turn, err := s.engine.CancelByPlate(ctx, workshopID, presentedPlate)
	if err != nil {
		return domain.Turn{}, err
	}
	s.audit.TurnCancelled(ctx, turn.ID)
	return turn, nil
}

func (s *SchedulerService) Status(ctx context.Context, workshopID uuid.UUID) (domain.StatusResult, error) {
	return s.engine.Status(ctx, workshopID)
}

// List is staff-only: full turn detail (including customer PII) is never
// handed to the public kiosk surface.
func (s *SchedulerService) List(ctx context.Context, workshopID uuid.UUID, filter domain.ListFilter, role string) ([]domain.Turn, error) {
	if !isStaff(role) {
		return nil, domain.NewError(domain.KindForbidden, "only staff may list turn detail")
	}
	return s.engine.List(ctx, workshopID, filter)
}
