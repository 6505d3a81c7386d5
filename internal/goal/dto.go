package goal

import (
	"time"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/core/common/validation"
)

// CreateGoalDTO is the request payload for creating a goal. Exactly one of
// the target fields must be set, matching goal_type.
type CreateGoalDTO struct {
	GoalType           string    `json:"goal_type"`
	TargetUserID       *int64    `json:"target_user_id,omitempty"`
	TargetTeamID       *int64    `json:"target_team_id,omitempty"`
	TargetDepartmentID *int64    `json:"target_department_id,omitempty"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	TargetHours        float64   `json:"target_hours"`
	TargetEntries      *int      `json:"target_entries,omitempty"`
	Deadline           time.Time `json:"deadline"`
}

// Target resolves the three optional foreign keys into the tagged union,
// rejecting rows where the set field does not match goal_type or more than
// one field is populated.
func (dto CreateGoalDTO) ResolveTarget() (Target, *errors.AppError) {
	set := 0
	if dto.TargetUserID != nil {
		set++
	}
	if dto.TargetTeamID != nil {
		set++
	}
	if dto.TargetDepartmentID != nil {
		set++
	}
	if set != 1 {
		return Target{}, errors.NewValidationFieldError("goal_type",
			"exactly one of target_user_id, target_team_id, target_department_id must be set",
			errors.ErrCodeInvalidTarget)
	}

	switch TargetKind(dto.GoalType) {
	case TargetKindUser:
		if dto.TargetUserID == nil {
			return Target{}, errors.NewValidationFieldError("target_user_id",
				"target_user_id is required for individual goals", errors.ErrCodeInvalidTarget)
		}
		return TargetUser(*dto.TargetUserID), nil
	case TargetKindTeam:
		if dto.TargetTeamID == nil {
			return Target{}, errors.NewValidationFieldError("target_team_id",
				"target_team_id is required for team goals", errors.ErrCodeInvalidTarget)
		}
		return TargetTeam(*dto.TargetTeamID), nil
	case TargetKindDepartment:
		if dto.TargetDepartmentID == nil {
			return Target{}, errors.NewValidationFieldError("target_department_id",
				"target_department_id is required for department goals", errors.ErrCodeInvalidTarget)
		}
		return TargetDepartment(*dto.TargetDepartmentID), nil
	default:
		return Target{}, errors.NewValidationFieldError("goal_type",
			"goal_type must be one of: individual, team, department", errors.ErrCodeInvalidTarget)
	}
}

func (dto CreateGoalDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(255)
	v.Field("target_hours", dto.TargetHours).Required().MinFloat(0.5, errors.ErrCodeInvalidHours)
	v.Field("deadline", dto.Deadline).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	if !dto.Deadline.IsZero() && dto.Deadline.Before(truncateToDay(time.Now())) {
		return errors.NewValidationFieldError("deadline",
			"deadline cannot be in the past", errors.ErrCodeInvalidDeadline)
	}
	if dto.TargetEntries != nil && *dto.TargetEntries <= 0 {
		return errors.NewValidationFieldError("target_entries",
			"target_entries must be positive when set", errors.ErrCodeValidationFailed)
	}
	return nil
}

// UpdateGoalDTO carries the editable goal fields. Target scope is immutable
// after creation; retargeting is modelled as cancel-and-recreate.
type UpdateGoalDTO struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	TargetHours   *float64   `json:"target_hours,omitempty"`
	TargetEntries *int       `json:"target_entries,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
}

func (dto UpdateGoalDTO) Validate() *errors.AppError {
	if dto.Title != nil && *dto.Title == "" {
		return errors.NewValidationFieldError("title", "title cannot be empty", errors.ErrCodeValidationFailed)
	}
	if dto.TargetHours != nil && *dto.TargetHours <= 0 {
		return errors.NewValidationFieldError("target_hours", "target_hours must be positive", errors.ErrCodeInvalidHours)
	}
	if dto.TargetEntries != nil && *dto.TargetEntries <= 0 {
		return errors.NewValidationFieldError("target_entries", "target_entries must be positive when set", errors.ErrCodeValidationFailed)
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
