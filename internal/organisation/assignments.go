package organisation

import (
	"context"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/access"
	"github.com/cpdtrack/cpd-management/internal/core/events"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

// Assignment relations carry scope, not capability: a row here widens what
// an actor's role may act on, it never upgrades the role itself. Adding an
// assignment that already exists reports added=false and changes nothing.

// AddUserToTeam puts a user into a team and triggers a recompute of every
// goal whose scope now contains them.
func (s *Service) AddUserToTeam(actor identity.ActorContext, teamID, userID int64) (bool, error) {
	if err := s.requireTeamAdmin(actor, teamID); err != nil {
		return false, err
	}

	added, err := s.repo.AddUserToTeam(userID, teamID)
	if err != nil {
		s.logger.Error("failed to add team member", "error", err, "team_id", teamID, "user_id", userID)
		return false, err
	}
	if !added {
		return false, nil
	}

	s.publishUserScopeChanged(userID)
	s.logger.Info("team member added", "team_id", teamID, "user_id", userID, "added_by", actor.UserID)
	return true, nil
}

// RemoveUserFromTeam drops the membership. Goals that covered the user
// through the team are recomputed so their hours leave the totals; their
// entries themselves stay untouched.
func (s *Service) RemoveUserFromTeam(actor identity.ActorContext, teamID, userID int64) error {
	if err := s.requireTeamAdmin(actor, teamID); err != nil {
		return err
	}

	// Resolve affected goals while the membership row still exists.
	goalIDs, err := s.goals.ActiveGoalIDsForUser(userID)
	if err != nil {
		s.logger.Error("failed to resolve goals before removal", "error", err, "user_id", userID)
		return err
	}

	if err := s.repo.RemoveUserFromTeam(userID, teamID); err != nil {
		s.logger.Error("failed to remove team member", "error", err, "team_id", teamID, "user_id", userID)
		return err
	}

	for _, goalID := range goalIDs {
		if err := s.publisher.Publish(context.Background(), events.NewGoalUpdated(goalID)); err != nil {
			s.logger.Error("failed to publish goal recompute", "error", err, "goal_id", goalID)
		}
	}

	s.logger.Info("team member removed", "team_id", teamID, "user_id", userID, "removed_by", actor.UserID)
	return nil
}

func (s *Service) AssignTeamManager(actor identity.ActorContext, teamID, userID int64) (bool, error) {
	if err := s.requireTeamAdmin(actor, teamID); err != nil {
		return false, err
	}

	added, err := s.repo.AddTeamManager(teamID, userID)
	if err != nil {
		s.logger.Error("failed to assign team manager", "error", err, "team_id", teamID, "user_id", userID)
		return false, err
	}
	if added {
		s.logger.Info("team manager assigned", "team_id", teamID, "user_id", userID, "assigned_by", actor.UserID)
	}
	return added, nil
}

func (s *Service) RemoveTeamManager(actor identity.ActorContext, teamID, userID int64) error {
	if err := s.requireTeamAdmin(actor, teamID); err != nil {
		return err
	}
	if err := s.repo.RemoveTeamManager(teamID, userID); err != nil {
		s.logger.Error("failed to remove team manager", "error", err, "team_id", teamID, "user_id", userID)
		return err
	}
	s.logger.Info("team manager removed", "team_id", teamID, "user_id", userID, "removed_by", actor.UserID)
	return nil
}

func (s *Service) AssignTeamPartner(actor identity.ActorContext, teamID, userID int64) (bool, error) {
	if err := s.requireTeamAdmin(actor, teamID); err != nil {
		return false, err
	}

	added, err := s.repo.AddTeamPartner(teamID, userID)
	if err != nil {
		s.logger.Error("failed to assign team partner", "error", err, "team_id", teamID, "user_id", userID)
		return false, err
	}
	if added {
		s.logger.Info("team partner assigned", "team_id", teamID, "user_id", userID, "assigned_by", actor.UserID)
	}
	return added, nil
}

func (s *Service) RemoveTeamPartner(actor identity.ActorContext, teamID, userID int64) error {
	if err := s.requireTeamAdmin(actor, teamID); err != nil {
		return err
	}
	if err := s.repo.RemoveTeamPartner(teamID, userID); err != nil {
		s.logger.Error("failed to remove team partner", "error", err, "team_id", teamID, "user_id", userID)
		return err
	}
	s.logger.Info("team partner removed", "team_id", teamID, "user_id", userID, "removed_by", actor.UserID)
	return nil
}

func (s *Service) AssignDepartmentPartner(actor identity.ActorContext, departmentID, userID int64) (bool, error) {
	d, err := s.repo.GetDepartment(departmentID)
	if err != nil {
		return false, errors.ErrDepartmentNotFound
	}
	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(d.OrganisationID)) {
		s.logger.Warn("department partner assignment denied", "actor_id", actor.UserID, "department_id", departmentID)
		return false, errors.ErrUnauthorizedAccess
	}

	added, err := s.repo.AddDepartmentPartner(departmentID, userID)
	if err != nil {
		s.logger.Error("failed to assign department partner", "error", err, "department_id", departmentID, "user_id", userID)
		return false, err
	}
	if added {
		s.logger.Info("department partner assigned", "department_id", departmentID, "user_id", userID, "assigned_by", actor.UserID)
	}
	return added, nil
}

func (s *Service) RemoveDepartmentPartner(actor identity.ActorContext, departmentID, userID int64) error {
	d, err := s.repo.GetDepartment(departmentID)
	if err != nil {
		return errors.ErrDepartmentNotFound
	}
	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(d.OrganisationID)) {
		return errors.ErrUnauthorizedAccess
	}
	if err := s.repo.RemoveDepartmentPartner(departmentID, userID); err != nil {
		s.logger.Error("failed to remove department partner", "error", err, "department_id", departmentID, "user_id", userID)
		return err
	}
	s.logger.Info("department partner removed", "department_id", departmentID, "user_id", userID, "removed_by", actor.UserID)
	return nil
}

func (s *Service) AssignOrganisationAdmin(actor identity.ActorContext, organisationID, userID int64) (bool, error) {
	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(organisationID)) {
		s.logger.Warn("organisation admin assignment denied", "actor_id", actor.UserID, "organisation_id", organisationID)
		return false, errors.ErrUnauthorizedAccess
	}

	added, err := s.repo.AddOrganisationAdmin(organisationID, userID)
	if err != nil {
		s.logger.Error("failed to assign organisation admin", "error", err, "organisation_id", organisationID, "user_id", userID)
		return false, err
	}
	if added {
		s.logger.Info("organisation admin assigned", "organisation_id", organisationID, "user_id", userID, "assigned_by", actor.UserID)
	}
	return added, nil
}

func (s *Service) RemoveOrganisationAdmin(actor identity.ActorContext, organisationID, userID int64) error {
	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(organisationID)) {
		return errors.ErrUnauthorizedAccess
	}
	if err := s.repo.RemoveOrganisationAdmin(organisationID, userID); err != nil {
		s.logger.Error("failed to remove organisation admin", "error", err, "organisation_id", organisationID, "user_id", userID)
		return err
	}
	s.logger.Info("organisation admin removed", "organisation_id", organisationID, "user_id", userID, "removed_by", actor.UserID)
	return nil
}

// requireTeamAdmin gates team-scoped assignment changes on admin standing
// over the team's organisation.
func (s *Service) requireTeamAdmin(actor identity.ActorContext, teamID int64) error {
	t, err := s.repo.GetTeam(teamID)
	if err != nil {
		return errors.ErrTeamNotFound
	}

	orgID, err := s.teamOrganisation(t)
	if err != nil {
		return err
	}
	if !s.authorizer.CanAccess(actor, access.ActionUpdate, orgResource(orgID)) {
		s.logger.Warn("team assignment change denied", "actor_id", actor.UserID, "team_id", teamID)
		return errors.ErrUnauthorizedAccess
	}
	return nil
}

func (s *Service) publishUserScopeChanged(userID int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), events.NewEntryChanged(0, userID)); err != nil {
		s.logger.Error("failed to publish scope change", "error", err, "user_id", userID)
	}
}
