package goal

import "time"

// Goal persists the target as three nullable foreign keys; exactly one is set,
// determined by goal_type. The domain layer converts this to a tagged union so
// nothing above the repository has to reason about which column is populated.
type Goal struct {
	ID                 int64     `gorm:"primaryKey"`
	GoalType           string    `gorm:"column:goal_type;not null"`
	TargetUserID       *int64    `gorm:"column:target_user_id"`
	TargetTeamID       *int64    `gorm:"column:target_team_id"`
	TargetDepartmentID *int64    `gorm:"column:target_department_id"`
	SetBy              int64     `gorm:"column:set_by;not null"`
	Title              string    `gorm:"column:title;not null"`
	Description        string    `gorm:"column:description"`
	TargetHours        float64   `gorm:"column:target_hours;not null"`
	TargetEntries      *int      `gorm:"column:target_entries"`
	Deadline           time.Time `gorm:"column:deadline;type:date;not null"`
	Status             string    `gorm:"column:status;default:active"`
	CreatedAt          time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time `gorm:"column:updated_at;default:now()"`
}

func (Goal) TableName() string {
	return "cpd_goals"
}

// GoalProgress rows are derived, one per (goal, affected user). They are only
// ever written by recompute.
type GoalProgress struct {
	ID                 int64      `gorm:"primaryKey"`
	GoalID             int64      `gorm:"column:goal_id;not null;uniqueIndex:idx_goal_user_progress"`
	UserID             int64      `gorm:"column:user_id;not null;uniqueIndex:idx_goal_user_progress"`
	CurrentHours       float64    `gorm:"column:current_hours;default:0"`
	CurrentEntries     int        `gorm:"column:current_entries;default:0"`
	ProgressPercentage float64    `gorm:"column:progress_percentage;default:0"`
	EntriesPercentage  *float64   `gorm:"column:entries_percentage"`
	LastEntryDate      *time.Time `gorm:"column:last_entry_date"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;default:now()"`
}

func (GoalProgress) TableName() string {
	return "goal_progress"
}
