package postgres

import (
	"errors"

	internal "github.com/cpdtrack/cpd-management/internal"
	entryDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/entry"
	goalDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/goal"
	orgDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/organisation"
	userDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/user"
	"github.com/cpdtrack/cpd-management/internal/organisation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrganisationRepository implements organisation.Repository using GORM.
type OrganisationRepository struct {
	db *gorm.DB
}

func NewOrganisationRepository(db *gorm.DB) *OrganisationRepository {
	return &OrganisationRepository{db: db}
}

func (r *OrganisationRepository) CreateOrganisation(o *organisation.Organisation) error {
	row := organisation.OrganisationToDataModel(o)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	o.ID = row.ID
	return nil
}

func (r *OrganisationRepository) GetOrganisation(id int64) (*organisation.Organisation, error) {
	var row orgDatamodel.Organisation
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrOrganisationNotFound
		}
		return nil, err
	}
	return organisation.OrganisationFromDataModel(&row), nil
}

func (r *OrganisationRepository) UpdateOrganisation(o *organisation.Organisation) error {
	return r.db.Save(organisation.OrganisationToDataModel(o)).Error
}

// DeleteOrganisationCascade removes the tenant and everything under it.
// Unattached teams have no organisation link and are untouched.
func (r *OrganisationRepository) DeleteOrganisationCascade(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var userIDs []int64
		err := tx.Model(&userDatamodel.User{}).
			Where("organisation_id = ?", id).
			Pluck("id", &userIDs).Error
		if err != nil {
			return err
		}

		var departmentIDs []int64
		err = tx.Model(&orgDatamodel.Department{}).
			Where("organisation_id = ?", id).
			Pluck("id", &departmentIDs).Error
		if err != nil {
			return err
		}

		var teamIDs []int64
		if len(departmentIDs) > 0 {
			err = tx.Model(&orgDatamodel.Team{}).
				Where("department_id IN ?", departmentIDs).
				Pluck("id", &teamIDs).Error
			if err != nil {
				return err
			}
		}

		var goalIDs []int64
		query := tx.Model(&goalDatamodel.Goal{})
		cond := tx.Where("1 = 0")
		if len(userIDs) > 0 {
			cond = cond.Or("set_by IN ?", userIDs).Or("target_user_id IN ?", userIDs)
		}
		if len(teamIDs) > 0 {
			cond = cond.Or("target_team_id IN ?", teamIDs)
		}
		if len(departmentIDs) > 0 {
			cond = cond.Or("target_department_id IN ?", departmentIDs)
		}
		if err := query.Where(cond).Pluck("id", &goalIDs).Error; err != nil {
			return err
		}

		if len(goalIDs) > 0 {
			if err := tx.Delete(&goalDatamodel.GoalProgress{}, "goal_id IN ?", goalIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&goalDatamodel.Goal{}, "id IN ?", goalIDs).Error; err != nil {
				return err
			}
		}

		if len(userIDs) > 0 {
			if err := tx.Delete(&entryDatamodel.CPDEntry{}, "user_id IN ?", userIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&goalDatamodel.GoalProgress{}, "user_id IN ?", userIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&orgDatamodel.UserTeam{}, "user_id IN ?", userIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&orgDatamodel.TeamManager{}, "user_id IN ?", userIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&orgDatamodel.TeamPartner{}, "user_id IN ?", userIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&orgDatamodel.DepartmentPartner{}, "user_id IN ?", userIDs).Error; err != nil {
				return err
			}
		}

		if len(teamIDs) > 0 {
			if err := tx.Delete(&orgDatamodel.UserTeam{}, "team_id IN ?", teamIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&orgDatamodel.TeamManager{}, "team_id IN ?", teamIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&orgDatamodel.TeamPartner{}, "team_id IN ?", teamIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&orgDatamodel.Team{}, "id IN ?", teamIDs).Error; err != nil {
				return err
			}
		}

		if len(departmentIDs) > 0 {
			if err := tx.Delete(&orgDatamodel.DepartmentPartner{}, "department_id IN ?", departmentIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&orgDatamodel.Department{}, "id IN ?", departmentIDs).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&orgDatamodel.OrganisationAdmin{}, "organisation_id = ?", id).Error; err != nil {
			return err
		}
		if len(userIDs) > 0 {
			if err := tx.Delete(&userDatamodel.User{}, "id IN ?", userIDs).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&orgDatamodel.Organisation{}, "id = ?", id).Error
	})
}

func (r *OrganisationRepository) CountActiveUsers(organisationID int64) (int64, error) {
	var count int64
	err := r.db.Model(&userDatamodel.User{}).
		Where("organisation_id = ? AND archived = ?", organisationID, false).
		Count(&count).Error
	return count, err
}

func (r *OrganisationRepository) CreateDepartment(d *organisation.Department) error {
	row := organisation.DepartmentToDataModel(d)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	d.ID = row.ID
	return nil
}

func (r *OrganisationRepository) GetDepartment(id int64) (*organisation.Department, error) {
	var row orgDatamodel.Department
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDepartmentNotFound
		}
		return nil, err
	}
	return organisation.DepartmentFromDataModel(&row), nil
}

func (r *OrganisationRepository) ListDepartments(organisationID int64) ([]*organisation.Department, error) {
	var rows []*orgDatamodel.Department
	err := r.db.Where("organisation_id = ?", organisationID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*organisation.Department, len(rows))
	for i, row := range rows {
		result[i] = organisation.DepartmentFromDataModel(row)
	}
	return result, nil
}

func (r *OrganisationRepository) UpdateDepartment(d *organisation.Department) error {
	return r.db.Save(organisation.DepartmentToDataModel(d)).Error
}

// DeleteDepartmentCascade removes the department, its partner assignments
// and the goals targeting it. Owned teams are detached, not deleted.
func (r *OrganisationRepository) DeleteDepartmentCascade(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var goalIDs []int64
		err := tx.Model(&goalDatamodel.Goal{}).
			Where("target_department_id = ?", id).
			Pluck("id", &goalIDs).Error
		if err != nil {
			return err
		}
		if len(goalIDs) > 0 {
			if err := tx.Delete(&goalDatamodel.GoalProgress{}, "goal_id IN ?", goalIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&goalDatamodel.Goal{}, "id IN ?", goalIDs).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&orgDatamodel.DepartmentPartner{}, "department_id = ?", id).Error; err != nil {
			return err
		}

		err = tx.Model(&orgDatamodel.Team{}).
			Where("department_id = ?", id).
			Update("department_id", nil).Error
		if err != nil {
			return err
		}

		return tx.Delete(&orgDatamodel.Department{}, "id = ?", id).Error
	})
}

func (r *OrganisationRepository) CreateTeam(t *organisation.Team) error {
	row := organisation.TeamToDataModel(t)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	t.ID = row.ID
	return nil
}

func (r *OrganisationRepository) GetTeam(id int64) (*organisation.Team, error) {
	var row orgDatamodel.Team
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrTeamNotFound
		}
		return nil, err
	}
	return organisation.TeamFromDataModel(&row), nil
}

func (r *OrganisationRepository) ListTeams(departmentID int64) ([]*organisation.Team, error) {
	var rows []*orgDatamodel.Team
	err := r.db.Where("department_id = ?", departmentID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*organisation.Team, len(rows))
	for i, row := range rows {
		result[i] = organisation.TeamFromDataModel(row)
	}
	return result, nil
}

func (r *OrganisationRepository) UpdateTeam(t *organisation.Team) error {
	return r.db.Save(organisation.TeamToDataModel(t)).Error
}

// DeleteTeamCascade removes the team, its assignment rows and the goals
// targeting it.
func (r *OrganisationRepository) DeleteTeamCascade(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var goalIDs []int64
		err := tx.Model(&goalDatamodel.Goal{}).
			Where("target_team_id = ?", id).
			Pluck("id", &goalIDs).Error
		if err != nil {
			return err
		}
		if len(goalIDs) > 0 {
			if err := tx.Delete(&goalDatamodel.GoalProgress{}, "goal_id IN ?", goalIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&goalDatamodel.Goal{}, "id IN ?", goalIDs).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&orgDatamodel.UserTeam{}, "team_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&orgDatamodel.TeamManager{}, "team_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&orgDatamodel.TeamPartner{}, "team_id = ?", id).Error; err != nil {
			return err
		}

		return tx.Delete(&orgDatamodel.Team{}, "id = ?", id).Error
	})
}

// Assignment inserts rely on the composite unique indexes: a conflicting
// insert does nothing and reports added=false.

func (r *OrganisationRepository) AddUserToTeam(userID, teamID int64) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&orgDatamodel.UserTeam{UserID: userID, TeamID: teamID})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *OrganisationRepository) RemoveUserFromTeam(userID, teamID int64) error {
	return r.db.Delete(&orgDatamodel.UserTeam{}, "user_id = ? AND team_id = ?", userID, teamID).Error
}

func (r *OrganisationRepository) AddTeamManager(teamID, userID int64) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&orgDatamodel.TeamManager{TeamID: teamID, UserID: userID})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *OrganisationRepository) RemoveTeamManager(teamID, userID int64) error {
	return r.db.Delete(&orgDatamodel.TeamManager{}, "team_id = ? AND user_id = ?", teamID, userID).Error
}

func (r *OrganisationRepository) AddTeamPartner(teamID, userID int64) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&orgDatamodel.TeamPartner{TeamID: teamID, UserID: userID})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *OrganisationRepository) RemoveTeamPartner(teamID, userID int64) error {
	return r.db.Delete(&orgDatamodel.TeamPartner{}, "team_id = ? AND user_id = ?", teamID, userID).Error
}

func (r *OrganisationRepository) AddDepartmentPartner(departmentID, userID int64) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&orgDatamodel.DepartmentPartner{DepartmentID: departmentID, UserID: userID})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *OrganisationRepository) RemoveDepartmentPartner(departmentID, userID int64) error {
	return r.db.Delete(&orgDatamodel.DepartmentPartner{}, "department_id = ? AND user_id = ?", departmentID, userID).Error
}

func (r *OrganisationRepository) AddOrganisationAdmin(organisationID, userID int64) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&orgDatamodel.OrganisationAdmin{OrganisationID: organisationID, UserID: userID})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *OrganisationRepository) RemoveOrganisationAdmin(organisationID, userID int64) error {
	return r.db.Delete(&orgDatamodel.OrganisationAdmin{}, "organisation_id = ? AND user_id = ?", organisationID, userID).Error
}
