package organisation

import (
	"encoding/json"
	"log/slog"
	"net/http"

	internal "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/identity"
	"github.com/cpdtrack/cpd-management/internal/transport"
	"github.com/cpdtrack/cpd-management/pkg/logger"
)

type ServiceAPI interface {
	CreateOrganisation(dto CreateOrganisationDTO) (*Organisation, error)
	GetOrganisation(actor identity.ActorContext, organisationID int64) (*Organisation, error)
	UpdateOrganisation(actor identity.ActorContext, organisationID int64, dto UpdateOrganisationDTO) (*Organisation, error)
	DeleteOrganisation(actor identity.ActorContext, organisationID int64) error

	CreateDepartment(actor identity.ActorContext, dto CreateDepartmentDTO) (*Department, error)
	GetDepartment(actor identity.ActorContext, departmentID int64) (*Department, error)
	ListDepartments(actor identity.ActorContext, organisationID int64) ([]*Department, error)
	RenameDepartment(actor identity.ActorContext, departmentID int64, dto RenameDTO) (*Department, error)
	DeleteDepartment(actor identity.ActorContext, departmentID int64) error

	CreateTeam(actor identity.ActorContext, dto CreateTeamDTO) (*Team, error)
	GetTeam(actor identity.ActorContext, teamID int64) (*Team, error)
	ListTeams(actor identity.ActorContext, departmentID int64) ([]*Team, error)
	RenameTeam(actor identity.ActorContext, teamID int64, dto RenameDTO) (*Team, error)
	DeleteTeam(actor identity.ActorContext, teamID int64) error

	AddUserToTeam(actor identity.ActorContext, teamID, userID int64) (bool, error)
	RemoveUserFromTeam(actor identity.ActorContext, teamID, userID int64) error
	AssignTeamManager(actor identity.ActorContext, teamID, userID int64) (bool, error)
	RemoveTeamManager(actor identity.ActorContext, teamID, userID int64) error
	AssignTeamPartner(actor identity.ActorContext, teamID, userID int64) (bool, error)
	RemoveTeamPartner(actor identity.ActorContext, teamID, userID int64) error
	AssignDepartmentPartner(actor identity.ActorContext, departmentID, userID int64) (bool, error)
	RemoveDepartmentPartner(actor identity.ActorContext, departmentID, userID int64) error
	AssignOrganisationAdmin(actor identity.ActorContext, organisationID, userID int64) (bool, error)
	RemoveOrganisationAdmin(actor identity.ActorContext, organisationID, userID int64) error
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

// assignmentResponse reports whether an Add actually inserted a row; adding
// an existing assignment is a no-op.
type assignmentResponse struct {
	Added bool `json:"added"`
}

// CreateOrganisation backs the public sign-up flow; no auth required.
func (h *Handler) CreateOrganisation(w http.ResponseWriter, r *http.Request) {
	var dto CreateOrganisationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateOrganisation: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.Service.CreateOrganisation(dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) GetOrganisation(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	organisationID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid organisation ID")
		return
	}

	o, err := h.Service.GetOrganisation(actor, organisationID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) UpdateOrganisation(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	organisationID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid organisation ID")
		return
	}

	var dto UpdateOrganisationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.Service.UpdateOrganisation(actor, organisationID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) DeleteOrganisation(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	organisationID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid organisation ID")
		return
	}

	if err := h.Service.DeleteOrganisation(actor, organisationID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateDepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.CreateDepartment(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	departmentID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	d, err := h.Service.GetDepartment(actor, departmentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	organisationID, ok := h.IDParam(r, "orgID")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid organisation ID")
		return
	}

	departments, err := h.Service.ListDepartments(actor, organisationID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, departments)
}

func (h *Handler) RenameDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	departmentID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	var dto RenameDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.RenameDepartment(actor, departmentID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	departmentID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	if err := h.Service.DeleteDepartment(actor, departmentID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateTeamDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.CreateTeam(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	teamID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid team ID")
		return
	}

	t, err := h.Service.GetTeam(actor, teamID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	departmentID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	teams, err := h.Service.ListTeams(actor, departmentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, teams)
}

func (h *Handler) RenameTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	teamID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid team ID")
		return
	}

	var dto RenameDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.RenameTeam(actor, teamID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	teamID, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid team ID")
		return
	}

	if err := h.Service.DeleteTeam(actor, teamID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
