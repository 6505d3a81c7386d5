package hierarchy

// TeamRef identifies a team together with its owning department, which may be
// absent: teams can exist outside any department.
type TeamRef struct {
	TeamID       int64  `json:"team_id"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// UserScope is the full containment picture for one user: the teams they
// belong to, the teams they manage, and the teams/departments they partner.
// Role grants capability; these assignment sets grant scope. The sets are
// independent: holding the manager role implies nothing about ManagedTeams.
type UserScope struct {
	UserID               int64     `json:"user_id"`
	OrganisationID       int64     `json:"organisation_id"`
	Teams                []TeamRef `json:"teams"`
	ManagedTeams         []int64   `json:"managed_teams"`
	PartneredTeams       []int64   `json:"partnered_teams"`
	PartneredDepartments []int64   `json:"partnered_departments"`
}

// TeamIDs returns the ids of teams the user is a member of.
func (s *UserScope) TeamIDs() []int64 {
	ids := make([]int64, len(s.Teams))
	for i, t := range s.Teams {
		ids[i] = t.TeamID
	}
	return ids
}

// MemberDepartmentIDs returns the departments owning the user's member teams.
func (s *UserScope) MemberDepartmentIDs() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, t := range s.Teams {
		if t.DepartmentID == nil {
			continue
		}
		if _, ok := seen[*t.DepartmentID]; ok {
			continue
		}
		seen[*t.DepartmentID] = struct{}{}
		ids = append(ids, *t.DepartmentID)
	}
	return ids
}

// MemberOfTeam reports whether the user belongs to the team.
func (s *UserScope) MemberOfTeam(teamID int64) bool {
	for _, t := range s.Teams {
		if t.TeamID == teamID {
			return true
		}
	}
	return false
}

// InDepartment reports whether any of the user's member teams is owned by the
// department.
func (s *UserScope) InDepartment(departmentID int64) bool {
	for _, t := range s.Teams {
		if t.DepartmentID != nil && *t.DepartmentID == departmentID {
			return true
		}
	}
	return false
}

func (s *UserScope) Manages(teamID int64) bool {
	return containsID(s.ManagedTeams, teamID)
}

func (s *UserScope) PartnersTeam(teamID int64) bool {
	return containsID(s.PartneredTeams, teamID)
}

func (s *UserScope) PartnersDepartment(departmentID int64) bool {
	return containsID(s.PartneredDepartments, departmentID)
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Repository is the relational traversal the resolver runs on. Missing rows
// are empty results, not errors; a dangling foreign key must never surface as
// a failure from the resolver.
type Repository interface {
	UserOrganisation(userID int64) (int64, error)
	MemberTeams(userID int64) ([]TeamRef, error)
	ManagedTeamIDs(userID int64) ([]int64, error)
	PartneredTeamIDs(userID int64) ([]int64, error)
	PartneredDepartmentIDs(userID int64) ([]int64, error)
	IsOrganisationAdmin(userID, organisationID int64) (bool, error)

	TeamMemberIDs(teamID int64) ([]int64, error)
	TeamDepartment(teamID int64) (*int64, error)
	TeamManagerIDs(teamID int64) ([]int64, error)
	TeamPartnerIDs(teamID int64) ([]int64, error)
	DepartmentTeamIDs(departmentID int64) ([]int64, error)
	DepartmentPartnerIDs(departmentID int64) ([]int64, error)
}
