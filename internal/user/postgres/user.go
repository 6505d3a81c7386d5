package postgres

import (
	"errors"

	internal "github.com/cpdtrack/cpd-management/internal"
	entryDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/entry"
	goalDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/goal"
	orgDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/organisation"
	userDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/user"
	"github.com/cpdtrack/cpd-management/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements user.Repository using GORM.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *user.User) error {
	row := user.ToDataModel(u)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	u.ID = row.ID
	return nil
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) GetByEmail(email string) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) ListByOrganisation(organisationID int64, includeArchived bool, limit, offset int) ([]*user.User, error) {
	query := r.db.Where("organisation_id = ?", organisationID)
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}

	var rows []*userDatamodel.User
	err := query.Order("name ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return user.FromDataModelSlice(rows), nil
}

func (r *UserRepository) Update(u *user.User) error {
	return r.db.Save(user.ToDataModel(u)).Error
}

// DeleteCascade removes the user and every row hanging off them in one
// transaction: entries, progress rows, membership and reviewer assignments,
// and goals they set or that target them individually.
func (r *UserRepository) DeleteCascade(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entryDatamodel.CPDEntry{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&goalDatamodel.GoalProgress{}, "user_id = ?", id).Error; err != nil {
			return err
		}

		var goalIDs []int64
		err := tx.Model(&goalDatamodel.Goal{}).
			Where("set_by = ? OR target_user_id = ?", id, id).
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

		if err := tx.Delete(&orgDatamodel.UserTeam{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&orgDatamodel.TeamManager{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&orgDatamodel.TeamPartner{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&orgDatamodel.DepartmentPartner{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&orgDatamodel.OrganisationAdmin{}, "user_id = ?", id).Error; err != nil {
			return err
		}

		return tx.Delete(&userDatamodel.User{}, "id = ?", id).Error
	})
}
