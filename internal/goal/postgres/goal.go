package postgres

import (
	"errors"
	"time"

	goalDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/goal"
	"github.com/cpdtrack/cpd-management/internal/goal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GoalRepository implements goal.Repository using GORM.
type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) goal.Repository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) Create(g *goal.Goal) error {
	row := goal.ToDataModel(g)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	g.ID = row.ID
	return nil
}

func (r *GoalRepository) GetByID(id int64) (*goal.Goal, error) {
	var row goalDatamodel.Goal
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goal.ErrGoalNotFound
		}
		return nil, err
	}
	return goal.FromDataModel(&row)
}

func (r *GoalRepository) Update(g *goal.Goal) error {
	row := goal.ToDataModel(g)
	row.UpdatedAt = time.Now()
	return r.db.Save(row).Error
}

func (r *GoalRepository) UpdateStatus(id int64, status goal.Status) error {
	return r.db.Model(&goalDatamodel.Goal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now(),
		}).Error
}

func (r *GoalRepository) ListByStatus(statuses []goal.Status, limit, offset int) ([]*goal.Goal, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	var rows []*goalDatamodel.Goal
	err := r.db.Where("status IN ?", values).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	goals := make([]*goal.Goal, 0, len(rows))
	for _, row := range rows {
		g, err := goal.FromDataModel(row)
		if err != nil {
			// a row with a dangling target cannot be recomputed; skip it
			continue
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func (r *GoalRepository) ActiveGoalIDsForTargets(userID int64, teamIDs, departmentIDs []int64) ([]int64, error) {
	statuses := []string{string(goal.StatusActive), string(goal.StatusOverdue)}

	query := r.db.Model(&goalDatamodel.Goal{}).
		Where("status IN ?", statuses)

	cond := r.db.Where("target_user_id = ?", userID)
	if len(teamIDs) > 0 {
		cond = cond.Or("target_team_id IN ?", teamIDs)
	}
	if len(departmentIDs) > 0 {
		cond = cond.Or("target_department_id IN ?", departmentIDs)
	}

	var ids []int64
	err := query.Where(cond).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *GoalRepository) GetProgress(goalID int64) ([]goal.ProgressRow, error) {
	var rows []*goalDatamodel.GoalProgress
	err := r.db.Where("goal_id = ?", goalID).
		Order("user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]goal.ProgressRow, len(rows))
	for i, row := range rows {
		result[i] = goal.ProgressFromDataModel(row)
	}
	return result, nil
}

// ReplaceProgress upserts the derived rows and prunes rows for users who left
// the goal's scope, in one transaction so readers never see a half-written
// recompute.
func (r *GoalRepository) ReplaceProgress(goalID int64, rows []goal.ProgressRow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		userIDs := make([]int64, len(rows))
		for i, row := range rows {
			userIDs[i] = row.UserID
		}

		prune := tx.Where("goal_id = ?", goalID)
		if len(userIDs) > 0 {
			prune = prune.Where("user_id NOT IN ?", userIDs)
		}
		if err := prune.Delete(&goalDatamodel.GoalProgress{}).Error; err != nil {
			return err
		}

		for _, row := range rows {
			record := goal.ProgressToDataModel(row)
			record.UpdatedAt = time.Now()
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "goal_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"current_hours", "current_entries", "progress_percentage",
					"entries_percentage", "last_entry_date", "updated_at",
				}),
			}).Create(record).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
