package organisation

import (
	"encoding/json"
	"net/http"

	internal "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

// Assignment endpoints. Each Add responds with whether a row was inserted;
// each Remove responds 204 regardless of whether the row existed.

func (h *Handler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	h.addAssignment(w, r, "id", func(actor identity.ActorContext, teamID, userID int64) (bool, error) {
		return h.Service.AddUserToTeam(actor, teamID, userID)
	})
}

func (h *Handler) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	h.removeAssignment(w, r, "id", func(actor identity.ActorContext, teamID, userID int64) error {
		return h.Service.RemoveUserFromTeam(actor, teamID, userID)
	})
}

func (h *Handler) AddTeamManager(w http.ResponseWriter, r *http.Request) {
	h.addAssignment(w, r, "id", func(actor identity.ActorContext, teamID, userID int64) (bool, error) {
		return h.Service.AssignTeamManager(actor, teamID, userID)
	})
}

func (h *Handler) RemoveTeamManager(w http.ResponseWriter, r *http.Request) {
	h.removeAssignment(w, r, "id", func(actor identity.ActorContext, teamID, userID int64) error {
		return h.Service.RemoveTeamManager(actor, teamID, userID)
	})
}

func (h *Handler) AddTeamPartner(w http.ResponseWriter, r *http.Request) {
	h.addAssignment(w, r, "id", func(actor identity.ActorContext, teamID, userID int64) (bool, error) {
		return h.Service.AssignTeamPartner(actor, teamID, userID)
	})
}

func (h *Handler) RemoveTeamPartner(w http.ResponseWriter, r *http.Request) {
	h.removeAssignment(w, r, "id", func(actor identity.ActorContext, teamID, userID int64) error {
		return h.Service.RemoveTeamPartner(actor, teamID, userID)
	})
}

func (h *Handler) AddDepartmentPartner(w http.ResponseWriter, r *http.Request) {
	h.addAssignment(w, r, "id", func(actor identity.ActorContext, departmentID, userID int64) (bool, error) {
		return h.Service.AssignDepartmentPartner(actor, departmentID, userID)
	})
}

func (h *Handler) RemoveDepartmentPartner(w http.ResponseWriter, r *http.Request) {
	h.removeAssignment(w, r, "id", func(actor identity.ActorContext, departmentID, userID int64) error {
		return h.Service.RemoveDepartmentPartner(actor, departmentID, userID)
	})
}

func (h *Handler) AddOrganisationAdmin(w http.ResponseWriter, r *http.Request) {
	h.addAssignment(w, r, "id", func(actor identity.ActorContext, organisationID, userID int64) (bool, error) {
		return h.Service.AssignOrganisationAdmin(actor, organisationID, userID)
	})
}

func (h *Handler) RemoveOrganisationAdmin(w http.ResponseWriter, r *http.Request) {
	h.removeAssignment(w, r, "id", func(actor identity.ActorContext, organisationID, userID int64) error {
		return h.Service.RemoveOrganisationAdmin(actor, organisationID, userID)
	})
}

func (h *Handler) addAssignment(w http.ResponseWriter, r *http.Request, param string,
	add func(actor identity.ActorContext, scopeID, userID int64) (bool, error)) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	scopeID, ok := h.IDParam(r, param)
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid ID")
		return
	}

	var dto AssignmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	added, err := add(actor, scopeID, dto.UserID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	h.WriteJSON(w, status, assignmentResponse{Added: added})
}

func (h *Handler) removeAssignment(w http.ResponseWriter, r *http.Request, param string,
	remove func(actor identity.ActorContext, scopeID, userID int64) error) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	scopeID, ok := h.IDParam(r, param)
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid ID")
		return
	}

	userID, ok := h.IDParam(r, "userID")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	if err := remove(actor, scopeID, userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
