package postgres

import (
	"errors"

	internal "github.com/cpdtrack/cpd-management/internal"
	organisationDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/organisation"
	userDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/user"
	"github.com/cpdtrack/cpd-management/internal/hierarchy"
	"gorm.io/gorm"
)

// HierarchyRepository implements hierarchy.Repository with junction table
// traversal via GORM.
type HierarchyRepository struct {
	db *gorm.DB
}

func NewHierarchyRepository(db *gorm.DB) hierarchy.Repository {
	return &HierarchyRepository{db: db}
}

func (r *HierarchyRepository) UserOrganisation(userID int64) (int64, error) {
	var u userDatamodel.User
	err := r.db.Select("id", "organisation_id").Where("id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, internal.ErrUserNotFound
		}
		return 0, err
	}
	return u.OrganisationID, nil
}

func (r *HierarchyRepository) MemberTeams(userID int64) ([]hierarchy.TeamRef, error) {
	var refs []hierarchy.TeamRef
	err := r.db.Model(&organisationDatamodel.UserTeam{}).
		Select("user_teams.team_id AS team_id, teams.department_id AS department_id").
		Joins("JOIN teams ON teams.id = user_teams.team_id").
		Where("user_teams.user_id = ?", userID).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *HierarchyRepository) ManagedTeamIDs(userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&organisationDatamodel.TeamManager{}).
		Where("user_id = ?", userID).
		Pluck("team_id", &ids).Error
	return ids, err
}

func (r *HierarchyRepository) PartneredTeamIDs(userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&organisationDatamodel.TeamPartner{}).
		Where("user_id = ?", userID).
		Pluck("team_id", &ids).Error
	return ids, err
}

func (r *HierarchyRepository) PartneredDepartmentIDs(userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&organisationDatamodel.DepartmentPartner{}).
		Where("user_id = ?", userID).
		Pluck("department_id", &ids).Error
	return ids, err
}

func (r *HierarchyRepository) IsOrganisationAdmin(userID, organisationID int64) (bool, error) {
	var count int64
	err := r.db.Model(&organisationDatamodel.OrganisationAdmin{}).
		Where("user_id = ? AND organisation_id = ?", userID, organisationID).
		Count(&count).Error
	return count > 0, err
}

func (r *HierarchyRepository) TeamMemberIDs(teamID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&organisationDatamodel.UserTeam{}).
		Where("team_id = ?", teamID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *HierarchyRepository) TeamDepartment(teamID int64) (*int64, error) {
	var t organisationDatamodel.Team
	err := r.db.Select("id", "department_id").Where("id = ?", teamID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return t.DepartmentID, nil
}

func (r *HierarchyRepository) TeamManagerIDs(teamID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&organisationDatamodel.TeamManager{}).
		Where("team_id = ?", teamID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *HierarchyRepository) TeamPartnerIDs(teamID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&organisationDatamodel.TeamPartner{}).
		Where("team_id = ?", teamID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *HierarchyRepository) DepartmentTeamIDs(departmentID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&organisationDatamodel.Team{}).
		Where("department_id = ?", departmentID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *HierarchyRepository) DepartmentPartnerIDs(departmentID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&organisationDatamodel.DepartmentPartner{}).
		Where("department_id = ?", departmentID).
		Pluck("user_id", &ids).Error
	return ids, err
}
