package organisation

import "time"

const (
	SubscriptionTrial     = "trial"
	SubscriptionActive    = "active"
	SubscriptionSuspended = "suspended"
	SubscriptionCancelled = "cancelled"
)

type Organisation struct {
	ID                 int64      `gorm:"primaryKey"`
	Name               string     `gorm:"column:name;not null"`
	SubscriptionStatus string     `gorm:"column:subscription_status;default:trial"`
	SubscriptionPlan   string     `gorm:"column:subscription_plan"`
	MaxUsers           int        `gorm:"column:max_users;default:10"`
	TrialEndsAt        *time.Time `gorm:"column:trial_ends_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;default:now()"`
}

func (Organisation) TableName() string {
	return "organisations"
}

type Department struct {
	ID             int64     `gorm:"primaryKey"`
	OrganisationID int64     `gorm:"column:organisation_id;not null"`
	Name           string    `gorm:"column:name;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `gorm:"column:updated_at;default:now()"`
}

func (Department) TableName() string {
	return "departments"
}

type Team struct {
	ID           int64     `gorm:"primaryKey"`
	DepartmentID *int64    `gorm:"column:department_id"`
	Name         string    `gorm:"column:name;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `gorm:"column:updated_at;default:now()"`
}

func (Team) TableName() string {
	return "teams"
}

// Junction tables. Rows have no identity beyond the pair; uniqueness is
// enforced so a duplicate assignment is detectable as a no-op.

type UserTeam struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_user_team"`
	TeamID    int64     `gorm:"column:team_id;not null;uniqueIndex:idx_user_team"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (UserTeam) TableName() string {
	return "user_teams"
}

type TeamManager struct {
	ID        int64     `gorm:"primaryKey"`
	TeamID    int64     `gorm:"column:team_id;not null;uniqueIndex:idx_team_manager"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_team_manager"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (TeamManager) TableName() string {
	return "team_managers"
}

type TeamPartner struct {
	ID        int64     `gorm:"primaryKey"`
	TeamID    int64     `gorm:"column:team_id;not null;uniqueIndex:idx_team_partner"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_team_partner"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (TeamPartner) TableName() string {
	return "team_partners"
}

type DepartmentPartner struct {
	ID           int64     `gorm:"primaryKey"`
	DepartmentID int64     `gorm:"column:department_id;not null;uniqueIndex:idx_department_partner"`
	UserID       int64     `gorm:"column:user_id;not null;uniqueIndex:idx_department_partner"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
}

func (DepartmentPartner) TableName() string {
	return "department_partners"
}

type OrganisationAdmin struct {
	ID             int64     `gorm:"primaryKey"`
	OrganisationID int64     `gorm:"column:organisation_id;not null;uniqueIndex:idx_organisation_admin"`
	UserID         int64     `gorm:"column:user_id;not null;uniqueIndex:idx_organisation_admin"`
	CreatedAt      time.Time `gorm:"column:created_at;default:now()"`
}

func (OrganisationAdmin) TableName() string {
	return "organisation_admins"
}
