package user

import (
	"fmt"
	"net/mail"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/core/common/validation"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

// CreateUserDTO is the request payload for adding a user to an organisation.
type CreateUserDTO struct {
	OrganisationID int64  `json:"organisation_id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Password       string `json:"password"`
	Role           string `json:"role"`
}

func (dto CreateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("organisation_id", dto.OrganisationID).Required()
	v.Field("email", dto.Email).Required().MaxLength(255).Custom(validEmail("email"))
	v.Field("name", dto.Name).Required().MaxLength(255)
	v.Field("password", dto.Password).Required().MinLength(8)
	v.Field("role", dto.Role).Required().Custom(validRole("role"))
	return v.Validate()
}

// UpdateUserDTO carries profile edits. Role changes ride the same payload but
// are admin-gated in the service.
type UpdateUserDTO struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty"`
}

func (dto UpdateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", *dto.Name).Required().MaxLength(255)
	}
	if dto.Role != nil {
		v.Field("role", *dto.Role).Required().Custom(validRole("role"))
	}
	return v.Validate()
}

func validEmail(field string) func(interface{}) *errors.AppError {
	return func(value interface{}) *errors.AppError {
		s, ok := value.(string)
		if !ok || s == "" {
			return nil
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return errors.NewValidationFieldError(field,
				fmt.Sprintf("%s must be a valid email address", field), errors.ErrCodeValidationFailed)
		}
		return nil
	}
}

func validRole(field string) func(interface{}) *errors.AppError {
	return func(value interface{}) *errors.AppError {
		s, ok := value.(string)
		if !ok || s == "" {
			return nil
		}
		if _, err := identity.ParseRole(s); err != nil {
			return errors.NewValidationFieldError(field,
				fmt.Sprintf("%s must be one of: user, manager, partner, admin", field), errors.ErrCodeInvalidRole)
		}
		return nil
	}
}
