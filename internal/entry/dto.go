package entry

import (
	"time"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/core/common/validation"
)

// CreateEntryDTO is the request payload for logging a CPD activity.
type CreateEntryDTO struct {
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	DateCompleted time.Time `json:"date_completed"`
	Hours         float64   `json:"hours"`
	Category      string    `json:"category"`
	SupportingDoc *string   `json:"supporting_doc,omitempty"`
}

func (dto CreateEntryDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(255)
	v.Field("description", dto.Description).MaxLength(2000)
	v.Field("date_completed", dto.DateCompleted).Required().NotFuture()
	v.Field("hours", dto.Hours).Required().
		PositiveFloat(errors.ErrCodeInvalidHours).
		MaxFloat(MaxHoursPerEntry, errors.ErrCodeHoursTooHigh)
	v.Field("category", dto.Category).Required().OneOf(Categories, errors.ErrCodeInvalidCategory)
	v.Field("supporting_doc", dto.SupportingDoc).FileExtension(AllowedDocExtensions)
	return v.Validate()
}

// UpdateEntryDTO carries the owner-editable fields; a successful update puts
// the entry back into pending review.
type UpdateEntryDTO struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	DateCompleted *time.Time `json:"date_completed,omitempty"`
	Hours         *float64   `json:"hours,omitempty"`
	Category      *string    `json:"category,omitempty"`
	SupportingDoc *string    `json:"supporting_doc,omitempty"`
}

func (dto UpdateEntryDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if dto.Title != nil {
		v.Field("title", *dto.Title).Required().MaxLength(255)
	}
	if dto.Description != nil {
		v.Field("description", *dto.Description).MaxLength(2000)
	}
	if dto.DateCompleted != nil {
		v.Field("date_completed", *dto.DateCompleted).Required().NotFuture()
	}
	if dto.Hours != nil {
		v.Field("hours", *dto.Hours).Required().
			PositiveFloat(errors.ErrCodeInvalidHours).
			MaxFloat(MaxHoursPerEntry, errors.ErrCodeHoursTooHigh)
	}
	if dto.Category != nil {
		v.Field("category", *dto.Category).Required().OneOf(Categories, errors.ErrCodeInvalidCategory)
	}
	if dto.SupportingDoc != nil {
		v.Field("supporting_doc", dto.SupportingDoc).FileExtension(AllowedDocExtensions)
	}
	return v.Validate()
}
