package organisation

import (
	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/core/common/validation"
)

type CreateOrganisationDTO struct {
	Name             string `json:"name"`
	SubscriptionPlan string `json:"subscription_plan,omitempty"`
	MaxUsers         int    `json:"max_users,omitempty"`
}

func (dto CreateOrganisationDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(255)
	if dto.MaxUsers < 0 {
		return errors.NewValidationFieldError("max_users",
			"max_users cannot be negative", errors.ErrCodeValidationFailed)
	}
	return v.Validate()
}

type UpdateOrganisationDTO struct {
	Name               *string `json:"name,omitempty"`
	SubscriptionStatus *string `json:"subscription_status,omitempty"`
	SubscriptionPlan   *string `json:"subscription_plan,omitempty"`
	MaxUsers           *int    `json:"max_users,omitempty"`
}

func (dto UpdateOrganisationDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", *dto.Name).Required().MaxLength(255)
	}
	if dto.SubscriptionStatus != nil {
		v.Field("subscription_status", *dto.SubscriptionStatus).Required().
			OneOf(SubscriptionStatuses, errors.ErrCodeValidationFailed)
	}
	if dto.MaxUsers != nil && *dto.MaxUsers <= 0 {
		return errors.NewValidationFieldError("max_users",
			"max_users must be positive", errors.ErrCodeValidationFailed)
	}
	return v.Validate()
}

type CreateDepartmentDTO struct {
	OrganisationID int64  `json:"organisation_id"`
	Name           string `json:"name"`
}

func (dto CreateDepartmentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("organisation_id", dto.OrganisationID).Required()
	v.Field("name", dto.Name).Required().MaxLength(255)
	return v.Validate()
}

type CreateTeamDTO struct {
	DepartmentID *int64 `json:"department_id,omitempty"`
	Name         string `json:"name"`
}

func (dto CreateTeamDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(255)
	return v.Validate()
}

type RenameDTO struct {
	Name string `json:"name"`
}

func (dto RenameDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(255)
	return v.Validate()
}

// AssignmentDTO names the user side of a junction row; the team, department
// or organisation comes from the URL.
type AssignmentDTO struct {
	UserID int64 `json:"user_id"`
}

func (dto AssignmentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_id", dto.UserID).Required()
	return v.Validate()
}
