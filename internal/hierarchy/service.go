package hierarchy

import (
	"log/slog"
)

// Service resolves containment facts. Every access-control and reporting
// decision is built on the sets it returns, so resolution must be exact:
// no side effects, no overlap between assignment kinds.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ResolveUserScope produces the full scope for one user. Absent assignment
// rows yield empty sets; only the organisation lookup itself can fail.
func (s *Service) ResolveUserScope(userID int64) (*UserScope, error) {
	orgID, err := s.repo.UserOrganisation(userID)
	if err != nil {
		s.logger.Error("failed to resolve user organisation", "error", err, "user_id", userID)
		return nil, err
	}

	teams, err := s.repo.MemberTeams(userID)
	if err != nil {
		return nil, err
	}

	managed, err := s.repo.ManagedTeamIDs(userID)
	if err != nil {
		return nil, err
	}

	partneredTeams, err := s.repo.PartneredTeamIDs(userID)
	if err != nil {
		return nil, err
	}

	partneredDepartments, err := s.repo.PartneredDepartmentIDs(userID)
	if err != nil {
		return nil, err
	}

	return &UserScope{
		UserID:               userID,
		OrganisationID:       orgID,
		Teams:                teams,
		ManagedTeams:         managed,
		PartneredTeams:       partneredTeams,
		PartneredDepartments: partneredDepartments,
	}, nil
}

// UserOrganisation returns the organisation a user belongs to.
func (s *Service) UserOrganisation(userID int64) (int64, error) {
	return s.repo.UserOrganisation(userID)
}

// MemberTeams returns the teams a user belongs to, with owning departments.
func (s *Service) MemberTeams(userID int64) ([]TeamRef, error) {
	return s.repo.MemberTeams(userID)
}

// IsOrgAdmin reports whether the user holds an organisation_admins row for
// the given organisation.
func (s *Service) IsOrgAdmin(userID, organisationID int64) (bool, error) {
	return s.repo.IsOrganisationAdmin(userID, organisationID)
}

// TeamMembers resolves the inverse relation: all member user ids of a team.
func (s *Service) TeamMembers(teamID int64) ([]int64, error) {
	return s.repo.TeamMemberIDs(teamID)
}

// TeamDepartment returns the owning department of a team, nil when the team
// is unattached or missing.
func (s *Service) TeamDepartment(teamID int64) (*int64, error) {
	return s.repo.TeamDepartment(teamID)
}

func (s *Service) TeamManagers(teamID int64) ([]int64, error) {
	return s.repo.TeamManagerIDs(teamID)
}

func (s *Service) TeamPartners(teamID int64) ([]int64, error) {
	return s.repo.TeamPartnerIDs(teamID)
}

func (s *Service) DepartmentPartners(departmentID int64) ([]int64, error) {
	return s.repo.DepartmentPartnerIDs(departmentID)
}

func (s *Service) ManagedTeamIDs(userID int64) ([]int64, error) {
	return s.repo.ManagedTeamIDs(userID)
}

func (s *Service) PartneredTeamIDs(userID int64) ([]int64, error) {
	return s.repo.PartneredTeamIDs(userID)
}

func (s *Service) PartneredDepartmentIDs(userID int64) ([]int64, error) {
	return s.repo.PartneredDepartmentIDs(userID)
}

// DepartmentMembers returns the deduplicated union of members across every
// team owned by the department. A department with no teams has no members.
func (s *Service) DepartmentMembers(departmentID int64) ([]int64, error) {
	teamIDs, err := s.repo.DepartmentTeamIDs(departmentID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var members []int64
	for _, teamID := range teamIDs {
		ids, err := s.repo.TeamMemberIDs(teamID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			members = append(members, id)
		}
	}
	return members, nil
}
