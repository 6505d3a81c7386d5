package goal

import (
	"errors"
	"time"

	goalDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/goal"
)

// Status is the goal lifecycle state. Completed and cancelled are terminal;
// recompute is the only path into completed and overdue.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanCancel reports whether an explicit cancel is allowed from this state.
func (s Status) CanCancel() bool {
	return s == StatusActive || s == StatusOverdue
}

// TargetKind discriminates the goal target union.
type TargetKind string

const (
	TargetKindUser       TargetKind = "individual"
	TargetKindTeam       TargetKind = "team"
	TargetKindDepartment TargetKind = "department"
)

// Target is a tagged union over the three possible goal scopes. It can only
// be built through the constructors, so exactly one scope is ever set.
type Target struct {
	kind TargetKind
	id   int64
}

func TargetUser(userID int64) Target {
	return Target{kind: TargetKindUser, id: userID}
}

func TargetTeam(teamID int64) Target {
	return Target{kind: TargetKindTeam, id: teamID}
}

func TargetDepartment(departmentID int64) Target {
	return Target{kind: TargetKindDepartment, id: departmentID}
}

func (t Target) Kind() TargetKind {
	return t.kind
}

func (t Target) ID() int64 {
	return t.id
}

func (t Target) Valid() bool {
	switch t.kind {
	case TargetKindUser, TargetKindTeam, TargetKindDepartment:
		return t.id > 0
	default:
		return false
	}
}

// Goal is the domain shape; the three nullable foreign keys of the stored row
// are collapsed into Target.
type Goal struct {
	ID            int64      `json:"id"`
	Target        Target     `json:"-"`
	GoalType      TargetKind `json:"goal_type"`
	TargetID      int64      `json:"target_id"`
	SetBy         int64      `json:"set_by"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	TargetHours   float64    `json:"target_hours"`
	TargetEntries *int       `json:"target_entries,omitempty"`
	Deadline      time.Time  `json:"deadline"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ProgressRow is one derived (goal, user) progress record.
type ProgressRow struct {
	GoalID             int64      `json:"goal_id"`
	UserID             int64      `json:"user_id"`
	CurrentHours       float64    `json:"current_hours"`
	CurrentEntries     int        `json:"current_entries"`
	ProgressPercentage float64    `json:"progress_percentage"`
	EntriesPercentage  *float64   `json:"entries_percentage,omitempty"`
	LastEntryDate      *time.Time `json:"last_entry_date,omitempty"`
}

var (
	ErrGoalNotFound   = errors.New("goal not found")
	ErrGoalTerminal   = errors.New("goal is in a terminal state")
	ErrInvalidTarget  = errors.New("goal target is invalid")
	ErrUnknownGoalRow = errors.New("stored goal row has no resolvable target")
)

func ToDataModel(g *Goal) *goalDatamodel.Goal {
	row := &goalDatamodel.Goal{
		ID:            g.ID,
		GoalType:      string(g.Target.Kind()),
		SetBy:         g.SetBy,
		Title:         g.Title,
		Description:   g.Description,
		TargetHours:   g.TargetHours,
		TargetEntries: g.TargetEntries,
		Deadline:      g.Deadline,
		Status:        string(g.Status),
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}

	id := g.Target.ID()
	switch g.Target.Kind() {
	case TargetKindUser:
		row.TargetUserID = &id
	case TargetKindTeam:
		row.TargetTeamID = &id
	case TargetKindDepartment:
		row.TargetDepartmentID = &id
	}
	return row
}

func FromDataModel(row *goalDatamodel.Goal) (*Goal, error) {
	var target Target
	switch TargetKind(row.GoalType) {
	case TargetKindUser:
		if row.TargetUserID == nil {
			return nil, ErrUnknownGoalRow
		}
		target = TargetUser(*row.TargetUserID)
	case TargetKindTeam:
		if row.TargetTeamID == nil {
			return nil, ErrUnknownGoalRow
		}
		target = TargetTeam(*row.TargetTeamID)
	case TargetKindDepartment:
		if row.TargetDepartmentID == nil {
			return nil, ErrUnknownGoalRow
		}
		target = TargetDepartment(*row.TargetDepartmentID)
	default:
		return nil, ErrUnknownGoalRow
	}

	return &Goal{
		ID:            row.ID,
		Target:        target,
		GoalType:      target.Kind(),
		TargetID:      target.ID(),
		SetBy:         row.SetBy,
		Title:         row.Title,
		Description:   row.Description,
		TargetHours:   row.TargetHours,
		TargetEntries: row.TargetEntries,
		Deadline:      row.Deadline,
		Status:        Status(row.Status),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func ProgressFromDataModel(row *goalDatamodel.GoalProgress) ProgressRow {
	return ProgressRow{
		GoalID:             row.GoalID,
		UserID:             row.UserID,
		CurrentHours:       row.CurrentHours,
		CurrentEntries:     row.CurrentEntries,
		ProgressPercentage: row.ProgressPercentage,
		EntriesPercentage:  row.EntriesPercentage,
		LastEntryDate:      row.LastEntryDate,
	}
}

func ProgressToDataModel(row ProgressRow) *goalDatamodel.GoalProgress {
	return &goalDatamodel.GoalProgress{
		GoalID:             row.GoalID,
		UserID:             row.UserID,
		CurrentHours:       row.CurrentHours,
		CurrentEntries:     row.CurrentEntries,
		ProgressPercentage: row.ProgressPercentage,
		EntriesPercentage:  row.EntriesPercentage,
		LastEntryDate:      row.LastEntryDate,
	}
}
