package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"slotbook/internal/scheduling/service"
	"slotbook/internal/scheduling/validator"
	apperrors "slotbook/pkg/errors"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/middleware"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SchedulingHandler struct {
	service   service.SchedulingService
	validator *validator.SchedulingValidator
	log       *logger.Logger
}

func NewSchedulingHandler(svc service.SchedulingService, v *validator.SchedulingValidator, log *logger.Logger) *SchedulingHandler {
	return &SchedulingHandler{
		service:   svc,
		validator: v,
		log:       log,
	}
}

func (h *SchedulingHandler) AddWindow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	providerID := ps.ByName("provider_id")
	actor, err := h.actor(r, model.RoleProvider)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if actor.ID != providerID {
		httputil.WriteError(w, apperrors.Forbidden("Providers can only manage their own availability"))
		return
	}

	var req AddWindowRequest
	if err := h.decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	window, err := h.service.AddWindow(r.Context(), service.AddWindowInput{
		ProviderID:  providerID,
		Date:        req.Date,
		StartLocal:  req.StartTime,
		EndLocal:    req.EndTime,
		IsRecurring: req.IsRecurring,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, newWindowResponse(h.service.Normalizer(), window))
}

func (h *SchedulingHandler) ListWindows(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()
	onlyOpen, err := httputil.ExtractBool(r, "only_open")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	windows, err := h.service.ListWindows(r.Context(), model.WindowFilter{
		ProviderID: ps.ByName("provider_id"),
		FromDate:   query.Get("from"),
		ToDate:     query.Get("to"),
		OnlyOpen:   onlyOpen,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, newWindowResponses(h.service.Normalizer(), windows))
}

func (h *SchedulingHandler) UpdateWindow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := h.actor(r, model.RoleProvider)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req UpdateWindowRequest
	if err := h.decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	window, err := h.service.UpdateWindow(r.Context(), service.UpdateWindowInput{
		ProviderID: actor.ID,
		WindowID:   ps.ByName("id"),
		StartLocal: req.StartTime,
		EndLocal:   req.EndTime,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, newWindowResponse(h.service.Normalizer(), window))
}

func (h *SchedulingHandler) RemoveWindow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := h.actor(r, model.RoleProvider)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RemoveWindow(r.Context(), actor.ID, ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SchedulingHandler) CreateReservation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := h.actor(r, model.RoleClient)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req CreateReservationRequest
	if err := h.decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	reservation, err := h.service.CreateReservation(r.Context(), service.CreateReservationInput{
		ClientID:   actor.ID,
		ProviderID: req.ProviderID,
		WindowID:   req.WindowID,
		Note:       req.ClientNote,
		Date:       req.Date,
		StartLocal: req.StartTime,
		EndLocal:   req.EndTime,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, newReservationResponse(h.service.Normalizer(), reservation, actor.Role))
}

func (h *SchedulingHandler) ListReservations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := h.actor(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	query := r.URL.Query()
	filter := model.ReservationFilter{
		ProviderID: query.Get("provider_id"),
		ClientID:   query.Get("client_id"),
		Status:     model.ReservationStatus(query.Get("status")),
		Limit:      limit,
		Offset:     offset,
	}
	if err := scopeToActor(&filter, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}

	reservations, total, err := h.service.ListReservations(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, newReservationResponses(h.service.Normalizer(), reservations, actor.Role), total, limit, offset)
}

func (h *SchedulingHandler) GetReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := h.actor(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !isParty(reservation, actor) {
		httputil.WriteError(w, apperrors.NotFound("Reservation"))
		return
	}

	httputil.WriteSuccess(w, newReservationResponse(h.service.Normalizer(), reservation, actor.Role))
}

func (h *SchedulingHandler) Transition(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := h.actor(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req TransitionRequest
	if err := h.decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	reservation, err := h.service.Transition(r.Context(), service.TransitionInput{
		ReservationID: ps.ByName("id"),
		Target:        req.Status,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, newReservationResponse(h.service.Normalizer(), reservation, actor.Role))
}

func (h *SchedulingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/providers/:provider_id/windows", h.AddWindow)
	router.GET("/api/v1/providers/:provider_id/windows", h.ListWindows)
	router.PATCH("/api/v1/windows/:id", h.UpdateWindow)
	router.DELETE("/api/v1/windows/:id", h.RemoveWindow)
	router.POST("/api/v1/reservations", h.CreateReservation)
	router.GET("/api/v1/reservations", h.ListReservations)
	router.GET("/api/v1/reservations/:id", h.GetReservation)
	router.POST("/api/v1/reservations/:id/transitions", h.Transition)
}

// actor returns the validated caller identity. With roles given, the caller
// must hold one of them.
func (h *SchedulingHandler) actor(r *http.Request, roles ...model.ActorRole) (middleware.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return middleware.Actor{}, apperrors.Unauthorized("Missing actor identity")
	}
	if err := h.validator.Validate(&actor); err != nil {
		h.log.Warn("Invalid actor identity", "path", r.URL.Path, "error", err)
		return middleware.Actor{}, apperrors.Unauthorized("Invalid actor identity")
	}
	if len(roles) == 0 {
		return actor, nil
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return middleware.Actor{}, apperrors.Forbidden("Operation not permitted for role " + string(actor.Role))
}

func (h *SchedulingHandler) decode(r *http.Request, payload any) error {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		return apperrors.InvalidInput("Invalid request body")
	}
	if err := h.validator.Validate(payload); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return apperrors.Validation("Request validation failed", map[string]any{
				"errors": validationErrs,
			})
		}
		return apperrors.Validation("Request validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// scopeToActor restricts a listing to the caller's own reservations. The
// system actor may list any party.
func scopeToActor(filter *model.ReservationFilter, actor middleware.Actor) error {
	switch actor.Role {
	case model.RoleSystem:
		return nil
	case model.RoleProvider:
		if filter.ClientID != "" || (filter.ProviderID != "" && filter.ProviderID != actor.ID) {
			return apperrors.Forbidden("Providers can only list their own reservations")
		}
		filter.ProviderID = actor.ID
	case model.RoleClient:
		if filter.ProviderID != "" || (filter.ClientID != "" && filter.ClientID != actor.ID) {
			return apperrors.Forbidden("Clients can only list their own reservations")
		}
		filter.ClientID = actor.ID
	}
	return nil
}

func isParty(r *model.Reservation, actor middleware.Actor) bool {
	switch actor.Role {
	case model.RoleSystem:
		return true
	case model.RoleProvider:
		return r.ProviderID == actor.ID
	case model.RoleClient:
		return r.ClientID == actor.ID
	default:
		return false
	}
}
