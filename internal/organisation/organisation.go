package organisation

import (
	"time"

	orgDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/organisation"
)

// Subscription statuses. New organisations start on a trial.
const (
	SubscriptionTrial     = orgDatamodel.SubscriptionTrial
	SubscriptionActive    = orgDatamodel.SubscriptionActive
	SubscriptionSuspended = orgDatamodel.SubscriptionSuspended
	SubscriptionCancelled = orgDatamodel.SubscriptionCancelled
)

// SubscriptionStatuses is the closed set of subscription states.
var SubscriptionStatuses = []string{
	SubscriptionTrial,
	SubscriptionActive,
	SubscriptionSuspended,
	SubscriptionCancelled,
}

const (
	DefaultMaxUsers = 10
	TrialPeriodDays = 30
)

// Organisation is the tenant root. MaxUsers caps active accounts; archived
// users do not occupy a seat.
type Organisation struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	SubscriptionStatus string     `json:"subscription_status"`
	SubscriptionPlan   string     `json:"subscription_plan,omitempty"`
	MaxUsers           int        `json:"max_users"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type Department struct {
	ID             int64     `json:"id"`
	OrganisationID int64     `json:"organisation_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Team groups users for goal targeting and review scope. DepartmentID is
// nullable: a team may sit outside any department.
type Team struct {
	ID           int64     `json:"id"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func OrganisationToDataModel(o *Organisation) *orgDatamodel.Organisation {
	return &orgDatamodel.Organisation{
		ID:                 o.ID,
		Name:               o.Name,
		SubscriptionStatus: o.SubscriptionStatus,
		SubscriptionPlan:   o.SubscriptionPlan,
		MaxUsers:           o.MaxUsers,
		TrialEndsAt:        o.TrialEndsAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func OrganisationFromDataModel(o *orgDatamodel.Organisation) *Organisation {
	return &Organisation{
		ID:                 o.ID,
		Name:               o.Name,
		SubscriptionStatus: o.SubscriptionStatus,
		SubscriptionPlan:   o.SubscriptionPlan,
		MaxUsers:           o.MaxUsers,
		TrialEndsAt:        o.TrialEndsAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func DepartmentToDataModel(d *Department) *orgDatamodel.Department {
	return &orgDatamodel.Department{
		ID:             d.ID,
		OrganisationID: d.OrganisationID,
		Name:           d.Name,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func DepartmentFromDataModel(d *orgDatamodel.Department) *Department {
	return &Department{
		ID:             d.ID,
		OrganisationID: d.OrganisationID,
		Name:           d.Name,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func TeamToDataModel(t *Team) *orgDatamodel.Team {
	return &orgDatamodel.Team{
		ID:           t.ID,
		DepartmentID: t.DepartmentID,
		Name:         t.Name,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func TeamFromDataModel(t *orgDatamodel.Team) *Team {
	return &Team{
		ID:           t.ID,
		DepartmentID: t.DepartmentID,
		Name:         t.Name,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
