package goal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	internal "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/core/events"
	"github.com/cpdtrack/cpd-management/internal/identity"
	"github.com/cpdtrack/cpd-management/internal/transport"
	"github.com/cpdtrack/cpd-management/pkg/logger"
)

type ServiceAPI interface {
	CreateGoal(actor identity.ActorContext, dto CreateGoalDTO) (*Goal, error)
	UpdateGoal(actor identity.ActorContext, goalID int64, dto UpdateGoalDTO) (*Goal, bool, error)
	CancelGoal(actor identity.ActorContext, goalID int64) error
	GetGoal(actor identity.ActorContext, goalID int64) (*Goal, []ProgressRow, error)
}

// Publisher pushes domain events onto the bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	publisher Publisher
}

func NewHandler(service ServiceAPI, publisher Publisher) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		publisher:   publisher,
	}
}

// GoalResponse pairs a goal with its derived progress rows.
type GoalResponse struct {
	Goal     *Goal         `json:"goal"`
	Progress []ProgressRow `json:"progress"`
}

func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateGoalDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateGoal: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := h.Service.CreateGoal(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.publishRecompute(g.ID)
	h.WriteJSON(w, http.StatusCreated, g)
}

func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	goalID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid goal ID")
		return
	}

	g, rows, err := h.Service.GetGoal(actor, goalID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, GoalResponse{Goal: g, Progress: rows})
}

func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	goalID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid goal ID")
		return
	}

	var dto UpdateGoalDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateGoal: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, needsRecompute, err := h.Service.UpdateGoal(actor, goalID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if needsRecompute {
		h.publishRecompute(g.ID)
	}
	h.WriteJSON(w, http.StatusOK, g)
}

func (h *Handler) CancelGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	goalID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid goal ID")
		return
	}

	if err := h.Service.CancelGoal(actor, goalID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publishRecompute(goalID int64) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(context.Background(), events.NewGoalUpdated(goalID)); err != nil {
		h.Logger.Error("failed to publish goal recompute", "error", err, "goal_id", goalID)
	}
}
