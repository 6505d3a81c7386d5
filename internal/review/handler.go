package review

import (
	"encoding/json"
	"log/slog"
	"net/http"

	internal "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/entry"
	"github.com/cpdtrack/cpd-management/internal/identity"
	"github.com/cpdtrack/cpd-management/internal/transport"
	"github.com/cpdtrack/cpd-management/pkg/logger"
)

type ServiceAPI interface {
	ReviewEntry(reviewer identity.ActorContext, entryID int64, dto ReviewDTO) (bool, error)
	BulkApprove(reviewer identity.ActorContext, entryIDs []int64) (*BulkApproveResult, error)
	PendingReviews(reviewer identity.ActorContext, limit, offset int) ([]*entry.Entry, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// ReviewEntry applies an approve/reject decision. Ineligibility is a 403:
// the decision was not applied and no error occurred.
func (h *Handler) ReviewEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entryID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid entry ID")
		return
	}

	var dto ReviewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ReviewEntry: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	applied, err := h.Service.ReviewEntry(actor, entryID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !applied {
		h.WriteError(w, http.StatusForbidden, "not eligible to review this entry")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]bool{"applied": true})
}

type bulkApproveDTO struct {
	EntryIDs []int64 `json:"entry_ids"`
}

func (h *Handler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto bulkApproveDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("BulkApprove: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(dto.EntryIDs) == 0 {
		h.WriteError(w, http.StatusBadRequest, "entry_ids is required")
		return
	}

	result, err := h.Service.BulkApprove(actor, dto.EntryIDs)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := h.Pagination(r)

	entries, err := h.Service.PendingReviews(actor, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}
