package rest

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tallercloud/turnero/internal/domain"
	"github.com/tallercloud/turnero/internal/service"
	"github.com/tallercloud/turnero/internal/transport/rest/response"
)

var validate = validator.New()

var phoneRE = regexp.MustCompile(`^\d{8,15}$`)

type createTurnRequest struct {
	NombreCliente       string `json:"nombreCliente" validate:"required,min=2"`
	Telefono            string `json:"telefono" validate:"required"`
	ModeloVehiculo      string `json:"modeloVehiculo" validate:"required"`
	Patente             string `json:"patente" validate:"required"`
	DescripcionProblema string `json:"descripcionProblema" validate:"omitempty,max=255"`
}

type cancelByPlateRequest struct {
	Patente string `json:"patente" validate:"required"`
}

type Handler struct {
	svc *service.SchedulerService
}

func NewHandler(svc *service.SchedulerService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateTurn(w http.ResponseWriter, r *http.Request) {
	workshopID, err := uuid.Parse(chi.URLParam(r, "workshopID"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "invalid workshopID", nil)
		return
	}

	var req createTurnRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		fail(w, r, http.StatusBadRequest, validationMessage(err), nil)
		return
	}
	if !phoneRE.MatchString(strings.TrimSpace(req.Telefono)) {
		fail(w, r, http.StatusBadRequest, "telefono must be 8 to 15 digits", nil)
		return
	}

	turn, err := h.svc.Create(r.Context(), workshopID, domain.CreateTurnInput{
		CustomerName: strings.TrimSpace(req.NombreCliente),
		Phone:        strings.TrimSpace(req.Telefono),
		VehicleModel: strings.TrimSpace(req.ModeloVehiculo),
		Plate:        req.Patente,
		Problem:      strings.TrimSpace(req.DescripcionProblema),
	})
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.OK(w, http.StatusCreated, map[string]any{
		"id":          turn.ID,
		"numeroTurno": turn.TurnNumber,
		"estado":      turn.State,
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	workshopID, err := uuid.Parse(chi.URLParam(r, "workshopID"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "invalid workshopID", nil)
		return
	}

	status, err := h.svc.Status(r.Context(), workshopID)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.OK(w, http.StatusOK, map[string]any{
		"taller":    status.Name,
		"capacidad": status.Capacity,
		"enTaller":  status.InService,
		"enEspera":  status.Waiting,
	})
}

func (h *Handler) ListTurns(w http.ResponseWriter, r *http.Request) {
	workshopID, err := uuid.Parse(chi.URLParam(r, "workshopID"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "invalid workshopID", nil)
		return
	}

	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	filter := domain.ListFilter{Plate: strings.TrimSpace(r.URL.Query().Get("patente"))}
	turns, err := h.svc.List(r.Context(), workshopID, filter, auth.Role)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	details := make([]domain.TurnDetail, len(turns))
	for i, t := range turns {
		details[i] = t.Detail()
	}

	response.OK(w, http.StatusOK, map[string]any{"turnos": details})
}

func (h *Handler) FinalizeTurn(w http.ResponseWriter, r *http.Request) {
	turnID, err := uuid.Parse(chi.URLParam(r, "turnID"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "invalid turnID", nil)
		return
	}

	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	if err := h.svc.Finalize(r.Context(), turnID, auth.Role); err != nil {
		handleErr(w, r, err)
		return
	}

	response.OK(w, http.StatusOK, map[string]string{"message": "turn finalized"})
}

func (h *Handler) CancelByPlate(w http.ResponseWriter, r *http.Request) {
	workshopID, err := uuid.Parse(chi.URLParam(r, "workshopID"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "invalid workshopID", nil)
		return
	}

	var req cancelByPlateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		fail(w, r, http.StatusBadRequest, validationMessage(err), nil)
		return
	}

	turn, err := h.svc.CancelByPlate(r.Context(), workshopID, req.Patente)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.OK(w, http.StatusOK, map[string]any{
		"numeroTurno": turn.TurnNumber,
		"message":     "turn cancelled",
	})
}

func validationMessage(err error) string {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		f := ve[0]
		return f.Field() + " failed " + f.Tag()
	}
	return "invalid request"
}

func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := err.(*domain.Error)
	if !ok {
		fail(w, r, http.StatusInternalServerError, "internal error", nil)
		return
	}

	switch de.Kind {
	case domain.KindValidation:
		fail(w, r, http.StatusBadRequest, de.Msg, nil)
	case domain.KindNotFound:
		fail(w, r, http.StatusNotFound, de.Msg, nil)
	case domain.KindDuplicatePlate:
		fail(w, r, http.StatusConflict, de.Msg, map[string]int{"numeroTurno": de.TurnNumber})
	case domain.KindStateConflict:
		fail(w, r, http.StatusConflict, de.Msg, nil)
	case domain.KindForbidden:
		fail(w, r, http.StatusForbidden, de.Msg, nil)
	case domain.KindUnauthenticated:
		fail(w, r, http.StatusUnauthorized, de.Msg, nil)
	case domain.KindTimeout:
		fail(w, r, http.StatusGatewayTimeout, de.Msg, nil)
	default:
		fail(w, r, http.StatusInternalServerError, "internal error", nil)
	}
}

func fail(w http.ResponseWriter, r *http.Request, status int, message string, payload any) {
	response.Fail(w, status, message, payload)
}
