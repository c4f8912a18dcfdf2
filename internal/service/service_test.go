package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallercloud/turnero/internal/audit"
	"github.com/tallercloud/turnero/internal/domain"
	"github.com/tallercloud/turnero/internal/service"
)

type fakeEngine struct {
	createFn        func(ctx context.Context, workshopID uuid.UUID, in domain.CreateTurnInput) (domain.Turn, error)
	finalizeFn      func(ctx context.Context, turnID uuid.UUID) error
	cancelFn        func(ctx context.Context, turnID uuid.UUID, plate string) error
	cancelByPlateFn func(ctx context.Context, workshopID uuid.UUID, plate string) (domain.Turn, error)
	statusFn        func(ctx context.Context, workshopID uuid.UUID) (domain.StatusResult, error)
	listFn          func(ctx context.Context, workshopID uuid.UUID, filter domain.ListFilter) ([]domain.Turn, error)
}

func (f *fakeEngine) Create(ctx context.Context, workshopID uuid.UUID, in domain.CreateTurnInput) (domain.Turn, error) {
	return f.createFn(ctx, workshopID, in)
}
func (f *fakeEngine) Finalize(ctx context.Context, turnID uuid.UUID) error {
	return f.finalizeFn(ctx, turnID)
}
func (f *fakeEngine) Cancel(ctx context.Context, turnID uuid.UUID, plate string) error {
	return f.cancelFn(ctx, turnID, plate)
}
func (f *fakeEngine) CancelByPlate(ctx context.Context, workshopID uuid.UUID, plate string) (domain.Turn, error) {
	return f.cancelByPlateFn(ctx, workshopID, plate)
}
func (f *fakeEngine) Status(ctx context.Context, workshopID uuid.UUID) (domain.StatusResult, error) {
	return f.statusFn(ctx, workshopID)
}
func (f *fakeEngine) List(ctx context.Context, workshopID uuid.UUID, filter domain.ListFilter) ([]domain.Turn, error) {
	return f.listFn(ctx, workshopID, filter)
}

func newSvc(eng domain.Engine) *service.SchedulerService {
	return service.New(eng, audit.New(zerolog.Nop()))
}

func TestSchedulerService_Create_DelegatesToEngine(t *testing.T) {
	workshopID := uuid.New()
	wantTurn := domain.Turn{ID: uuid.New(), TurnNumber: 1, State: domain.TurnInService}

	eng := &fakeEngine{
		createFn: func(ctx context.Context, wID uuid.UUID, in domain.CreateTurnInput) (domain.Turn, error) {
			assert.Equal(t, workshopID, wID)
			assert.Equal(t, "ABC123", in.Plate)
			return wantTurn, nil
		},
	}
	svc := newSvc(eng)

	turn, err := svc.Create(context.Background(), workshopID, domain.CreateTurnInput{Plate: "ABC123"})
	require.NoError(t, err)
	assert.Equal(t, wantTurn, turn)
}

func TestSchedulerService_Create_PropagatesEngineError(t *testing.T) {
	boom := domain.NewDuplicatePlateError(3)
	eng := &fakeEngine{
		createFn: func(ctx context.Context, wID uuid.UUID, in domain.CreateTurnInput) (domain.Turn, error) {
			return domain.Turn{}, boom
		},
	}
	svc := newSvc(eng)

	_, err := svc.Create(context.Background(), uuid.New(), domain.CreateTurnInput{Plate: "ABC123"})
	require.Error(t, err)
	assert.Equal(t, domain.KindDuplicatePlate, domain.KindOf(err))
}

func TestSchedulerService_Finalize_ForbiddenForNonStaff(t *testing.T) {
	eng := &fakeEngine{
		finalizeFn: func(ctx context.Context, turnID uuid.UUID) error {
			t.Fatal("engine.Finalize should not be called for a non-staff role")
			return nil
		},
	}
	svc := newSvc(eng)

	err := svc.Finalize(context.Background(), uuid.New(), "customer")
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestSchedulerService_Finalize_AllowedForStaffRoles(t *testing.T) {
	for _, role := range []string{"admin", "staff", " Admin ", "STAFF"} {
		called := false
		eng := &fakeEngine{
			finalizeFn: func(ctx context.Context, turnID uuid.UUID) error {
				called = true
				return nil
			},
		}
		svc := newSvc(eng)

		err := svc.Finalize(context.Background(), uuid.New(), role)
		require.NoError(t, err, "role %q should be treated as staff", role)
		assert.True(t, called, "role %q should reach the engine", role)
	}
}

func TestSchedulerService_List_ForbiddenForNonStaff(t *testing.T) {
	eng := &fakeEngine{
		listFn: func(ctx context.Context, wID uuid.UUID, filter domain.ListFilter) ([]domain.Turn, error) {
			t.Fatal("engine.List should not be called for a non-staff role")
			return nil, nil
		},
	}
	svc := newSvc(eng)

	_, err := svc.List(context.Background(), uuid.New(), domain.ListFilter{}, "customer")
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestSchedulerService_List_OkForStaff(t *testing.T) {
	want := []domain.Turn{{ID: uuid.New(), TurnNumber: 1}}
	eng := &fakeEngine{
		listFn: func(ctx context.Context, wID uuid.UUID, filter domain.ListFilter) ([]domain.Turn, error) {
			return want, nil
		},
	}
	svc := newSvc(eng)

	got, err := svc.List(context.Background(), uuid.New(), domain.ListFilter{}, "admin")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSchedulerService_Status_NoGating(t *testing.T) {
	want := domain.StatusResult{Name: "Taller Central", Capacity: 2}
	eng := &fakeEngine{
		statusFn: func(ctx context.Context, wID uuid.UUID) (domain.StatusResult, error) {
			return want, nil
		},
	}
	svc := newSvc(eng)

	got, err := svc.Status(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSchedulerService_CancelByPlate_DelegatesToEngine(t *testing.T) {
	wantTurn := domain.Turn{ID: uuid.New(), TurnNumber: 2, State: domain.TurnCancelled}
	eng := &fakeEngine{
		cancelByPlateFn: func(ctx context.Context, wID uuid.UUID, plate string) (domain.Turn, error) {
			assert.Equal(t, "XYZ999", plate)
			return wantTurn, nil
		},
	}
	svc := newSvc(eng)

	turn, err := svc.CancelByPlate(context.Background(), uuid.New(), "XYZ999")
	require.NoError(t, err)
	assert.Equal(t, wantTurn, turn)
}

func TestSchedulerService_Cancel_PropagatesNotFound(t *testing.T) {
	eng := &fakeEngine{
		cancelFn: func(ctx context.Context, turnID uuid.UUID, plate string) error {
			return domain.ErrTurnNotFound
		},
	}
	svc := newSvc(eng)

	err := svc.Cancel(context.Background(), uuid.New(), "ABC123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTurnNotFound))
}
