package organisation

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/access"
	"github.com/cpdtrack/cpd-management/internal/core/events"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

// Repository defines the data access methods for the tenant hierarchy.
// Every Add returns whether a row was actually inserted: adding an existing
// assignment is a no-op, not an error.
type Repository interface {
	CreateOrganisation(o *Organisation) error
	GetOrganisation(id int64) (*Organisation, error)
	UpdateOrganisation(o *Organisation) error
	DeleteOrganisationCascade(id int64) error
	CountActiveUsers(organisationID int64) (int64, error)

	CreateDepartment(d *Department) error
	GetDepartment(id int64) (*Department, error)
	ListDepartments(organisationID int64) ([]*Department, error)
	UpdateDepartment(d *Department) error
	DeleteDepartmentCascade(id int64) error

	CreateTeam(t *Team) error
	GetTeam(id int64) (*Team, error)
	ListTeams(departmentID int64) ([]*Team, error)
	UpdateTeam(t *Team) error
	DeleteTeamCascade(id int64) error

	AddUserToTeam(userID, teamID int64) (bool, error)
	RemoveUserFromTeam(userID, teamID int64) error
	AddTeamManager(teamID, userID int64) (bool, error)
	RemoveTeamManager(teamID, userID int64) error
	AddTeamPartner(teamID, userID int64) (bool, error)
	RemoveTeamPartner(teamID, userID int64) error
	AddDepartmentPartner(departmentID, userID int64) (bool, error)
	RemoveDepartmentPartner(departmentID, userID int64) error
	AddOrganisationAdmin(organisationID, userID int64) (bool, error)
	RemoveOrganisationAdmin(organisationID, userID int64) error
}

// Authorizer is the slice of the access engine the organisation service
// needs.
type Authorizer interface {
	CanAccess(actor identity.ActorContext, action access.Action, resource access.Resource) bool
}

// GoalLocator finds the goals whose progress a user contributes to, for
// recomputes around membership changes.
type GoalLocator interface {
	ActiveGoalIDsForUser(userID int64) ([]int64, error)
}

// Publisher pushes domain events onto the bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service handles the organisation, department and team lifecycle plus the
// assignment relations between them and users.
type Service struct {
	repo       Repository
	authorizer Authorizer
	goals      GoalLocator
	publisher  Publisher
	logger     *slog.Logger
}

func NewService(repo Repository, authorizer Authorizer, goals GoalLocator, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		goals:      goals,
		publisher:  publisher,
		logger:     logger,
	}
}

// CreateOrganisation provisions a tenant on a trial subscription. It has no
// actor gate: it backs the public sign-up flow.
func (s *Service) CreateOrganisation(dto CreateOrganisationDTO) (*Organisation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	trialEnd := now.AddDate(0, 0, TrialPeriodDays)
	maxUsers := dto.MaxUsers
	if maxUsers == 0 {
		maxUsers = DefaultMaxUsers
	}

	o := &Organisation{
		Name:               dto.Name,
		SubscriptionStatus: SubscriptionTrial,
		SubscriptionPlan:   dto.SubscriptionPlan,
		MaxUsers:           maxUsers,
		TrialEndsAt:        &trialEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.CreateOrganisation(o); err != nil {
		s.logger.Error("failed to create organisation", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("organisation created", "organisation_id", o.ID, "name", o.Name)
	return o, nil
}

// GetOrganisation returns the tenant record. Members may read their own
// organisation; anything else requires admin standing.
func (s *Service) GetOrganisation(actor identity.ActorContext, organisationID int64) (*Organisation, error) {
	if actor.OrganisationID != organisationID &&
		!s.authorizer.CanAccess(actor, access.ActionRead, orgResource(organisationID)) {
		return nil, errors.ErrUnauthorizedAccess
	}

	o, err := s.repo.GetOrganisation(organisationID)
	if err != nil {
		return nil, errors.ErrOrganisationNotFound
	}
	return o, nil
}

func (s *Service) UpdateOrganisation(actor identity.ActorContext, organisationID int64, dto UpdateOrganisationDTO) (*Organisation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(organisationID)) {
		s.logger.Warn("organisation update denied", "actor_id", actor.UserID, "organisation_id", organisationID)
		return nil, errors.ErrUnauthorizedAccess
	}

	o, err := s.repo.GetOrganisation(organisationID)
	if err != nil {
		return nil, errors.ErrOrganisationNotFound
	}

	if dto.Name != nil {
		o.Name = *dto.Name
	}
	if dto.SubscriptionStatus != nil {
		o.SubscriptionStatus = *dto.SubscriptionStatus
	}
	if dto.SubscriptionPlan != nil {
		o.SubscriptionPlan = *dto.SubscriptionPlan
	}
	if dto.MaxUsers != nil {
		o.MaxUsers = *dto.MaxUsers
	}
	o.UpdatedAt = time.Now()

	if err := s.repo.UpdateOrganisation(o); err != nil {
		s.logger.Error("failed to update organisation", "error", err, "organisation_id", organisationID)
		return nil, err
	}

	s.logger.Info("organisation updated", "organisation_id", organisationID, "updated_by", actor.UserID)
	return o, nil
}

// DeleteOrganisation removes the tenant and everything under it in one
// transaction. Global admin only.
func (s *Service) DeleteOrganisation(actor identity.ActorContext, organisationID int64) error {
	if actor.Role != identity.RoleAdmin {
		s.logger.Warn("organisation delete denied", "actor_id", actor.UserID, "organisation_id", organisationID)
		return errors.ErrUnauthorizedAccess
	}

	if _, err := s.repo.GetOrganisation(organisationID); err != nil {
		return errors.ErrOrganisationNotFound
	}

	if err := s.repo.DeleteOrganisationCascade(organisationID); err != nil {
		s.logger.Error("organisation cascade delete failed", "error", err, "organisation_id", organisationID)
		return errors.NewTransactionError("failed to delete organisation", err)
	}

	s.logger.Info("organisation deleted", "organisation_id", organisationID, "deleted_by", actor.UserID)
	return nil
}

// HasReachedUserLimit reports whether the organisation's active account
// count has reached its seat cap. A non-positive cap means unlimited.
func (s *Service) HasReachedUserLimit(organisationID int64) (bool, error) {
	o, err := s.repo.GetOrganisation(organisationID)
	if err != nil {
		return false, errors.ErrOrganisationNotFound
	}
	if o.MaxUsers <= 0 {
		return false, nil
	}

	count, err := s.repo.CountActiveUsers(organisationID)
	if err != nil {
		return false, err
	}
	return count >= int64(o.MaxUsers), nil
}

func (s *Service) CreateDepartment(actor identity.ActorContext, dto CreateDepartmentDTO) (*Department, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(dto.OrganisationID)) {
		s.logger.Warn("department creation denied", "actor_id", actor.UserID, "organisation_id", dto.OrganisationID)
		return nil, errors.ErrUnauthorizedAccess
	}

	if _, err := s.repo.GetOrganisation(dto.OrganisationID); err != nil {
		return nil, errors.ErrOrganisationNotFound
	}

	now := time.Now()
	d := &Department{
		OrganisationID: dto.OrganisationID,
		Name:           dto.Name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateDepartment(d); err != nil {
		s.logger.Error("failed to create department", "error", err, "organisation_id", dto.OrganisationID)
		return nil, err
	}

	s.logger.Info("department created", "department_id", d.ID, "organisation_id", d.OrganisationID)
	return d, nil
}

func (s *Service) GetDepartment(actor identity.ActorContext, departmentID int64) (*Department, error) {
	d, err := s.repo.GetDepartment(departmentID)
	if err != nil {
		return nil, errors.ErrDepartmentNotFound
	}

	if actor.OrganisationID != d.OrganisationID &&
		!s.authorizer.CanAccess(actor, access.ActionRead, orgResource(d.OrganisationID)) {
		return nil, errors.ErrUnauthorizedAccess
	}
	return d, nil
}

func (s *Service) ListDepartments(actor identity.ActorContext, organisationID int64) ([]*Department, error) {
	if actor.OrganisationID != organisationID &&
		!s.authorizer.CanAccess(actor, access.ActionRead, orgResource(organisationID)) {
		return nil, errors.ErrUnauthorizedAccess
	}
	return s.repo.ListDepartments(organisationID)
}

func (s *Service) RenameDepartment(actor identity.ActorContext, departmentID int64, dto RenameDTO) (*Department, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	d, err := s.repo.GetDepartment(departmentID)
	if err != nil {
		return nil, errors.ErrDepartmentNotFound
	}

	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(d.OrganisationID)) {
		s.logger.Warn("department rename denied", "actor_id", actor.UserID, "department_id", departmentID)
		return nil, errors.ErrUnauthorizedAccess
	}

	d.Name = dto.Name
	d.UpdatedAt = time.Now()
	if err := s.repo.UpdateDepartment(d); err != nil {
		s.logger.Error("failed to rename department", "error", err, "department_id", departmentID)
		return nil, err
	}
	return d, nil
}

// DeleteDepartment removes the department, its partner assignments and the
// goals targeting it. Its teams survive as unattached teams.
func (s *Service) DeleteDepartment(actor identity.ActorContext, departmentID int64) error {
	d, err := s.repo.GetDepartment(departmentID)
	if err != nil {
		return errors.ErrDepartmentNotFound
	}

	if !s.authorizer.CanAccess(actor, access.ActionDelete, orgResource(d.OrganisationID)) {
		s.logger.Warn("department delete denied", "actor_id", actor.UserID, "department_id", departmentID)
		return errors.ErrUnauthorizedAccess
	}

	if err := s.repo.DeleteDepartmentCascade(departmentID); err != nil {
		s.logger.Error("department cascade delete failed", "error", err, "department_id", departmentID)
		return errors.NewTransactionError("failed to delete department", err)
	}

	s.logger.Info("department deleted", "department_id", departmentID, "deleted_by", actor.UserID)
	return nil
}

func (s *Service) CreateTeam(actor identity.ActorContext, dto CreateTeamDTO) (*Team, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	orgID := actor.OrganisationID
	if dto.DepartmentID != nil {
		d, err := s.repo.GetDepartment(*dto.DepartmentID)
		if err != nil {
			return nil, errors.ErrDepartmentNotFound
		}
		orgID = d.OrganisationID
	}

	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(orgID)) {
		s.logger.Warn("team creation denied", "actor_id", actor.UserID)
		return nil, errors.ErrUnauthorizedAccess
	}

	now := time.Now()
	t := &Team{
		DepartmentID: dto.DepartmentID,
		Name:         dto.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateTeam(t); err != nil {
		s.logger.Error("failed to create team", "error", err)
		return nil, err
	}

	s.logger.Info("team created", "team_id", t.ID, "created_by", actor.UserID)
	return t, nil
}

// GetTeam returns the team record. Members of the owning organisation may
// read it; an unattached team belongs to no organisation and is visible only
// to actors the engine allows.
func (s *Service) GetTeam(actor identity.ActorContext, teamID int64) (*Team, error) {
	t, err := s.repo.GetTeam(teamID)
	if err != nil {
		return nil, errors.ErrTeamNotFound
	}

	orgID, err := s.teamOrganisation(t)
	if err != nil {
		return nil, err
	}
	if actor.OrganisationID != orgID &&
		!s.authorizer.CanAccess(actor, access.ActionRead, orgResource(orgID)) {
		return nil, errors.ErrUnauthorizedAccess
	}
	return t, nil
}

func (s *Service) ListTeams(actor identity.ActorContext, departmentID int64) ([]*Team, error) {
	d, err := s.repo.GetDepartment(departmentID)
	if err != nil {
		return nil, errors.ErrDepartmentNotFound
	}

	if actor.OrganisationID != d.OrganisationID &&
		!s.authorizer.CanAccess(actor, access.ActionRead, orgResource(d.OrganisationID)) {
		return nil, errors.ErrUnauthorizedAccess
	}
	return s.repo.ListTeams(departmentID)
}

func (s *Service) RenameTeam(actor identity.ActorContext, teamID int64, dto RenameDTO) (*Team, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := s.repo.GetTeam(teamID)
	if err != nil {
		return nil, errors.ErrTeamNotFound
	}

	orgID, err := s.teamOrganisation(t)
	if err != nil {
		return nil, err
	}
	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(orgID)) {
		s.logger.Warn("team rename denied", "actor_id", actor.UserID, "team_id", teamID)
		return nil, errors.ErrUnauthorizedAccess
	}

	t.Name = dto.Name
	t.UpdatedAt = time.Now()
	if err := s.repo.UpdateTeam(t); err != nil {
		s.logger.Error("failed to rename team", "error", err, "team_id", teamID)
		return nil, err
	}
	return t, nil
}

// DeleteTeam removes the team, its membership and reviewer assignments, and
// the goals targeting it, in one transaction.
func (s *Service) DeleteTeam(actor identity.ActorContext, teamID int64) error {
	t, err := s.repo.GetTeam(teamID)
	if err != nil {
		return errors.ErrTeamNotFound
	}

	orgID, err := s.teamOrganisation(t)
	if err != nil {
		return err
	}
	if !s.authorizer.CanAccess(actor, access.ActionDelete, orgResource(orgID)) {
		s.logger.Warn("team delete denied", "actor_id", actor.UserID, "team_id", teamID)
		return errors.ErrUnauthorizedAccess
	}

	if err := s.repo.DeleteTeamCascade(teamID); err != nil {
		s.logger.Error("team cascade delete failed", "error", err, "team_id", teamID)
		return errors.NewTransactionError("failed to delete team", err)
	}

	s.logger.Info("team deleted", "team_id", teamID, "deleted_by", actor.UserID)
	return nil
}

// teamOrganisation resolves a team's owning organisation through its
// department. An unattached team has none; only global admins pass the
// resulting check.
func (s *Service) teamOrganisation(t *Team) (int64, error) {
	if t.DepartmentID == nil {
		return 0, nil
	}
	d, err := s.repo.GetDepartment(*t.DepartmentID)
	if err != nil {
		return 0, errors.ErrDepartmentNotFound
	}
	return d.OrganisationID, nil
}

func orgResource(organisationID int64) access.Resource {
	return access.Resource{
		Type:           access.ResourceOrganisation,
		ID:             organisationID,
		OrganisationID: organisationID,
	}
}
