package entry

import (
	"time"

	entryDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/entry"
)

// Review status constants
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// Categories is the closed set of CPD activity categories.
var Categories = []string{
	"Training",
	"Conference",
	"Reading",
	"Online Course",
	"Other",
}

// AllowedDocExtensions lists the accepted supporting document file types.
var AllowedDocExtensions = []string{"pdf", "doc", "docx", "jpg", "png"}

const MaxHoursPerEntry = 100

type Entry struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	DateCompleted  time.Time  `json:"date_completed"`
	Hours          float64    `json:"hours"`
	Category       string     `json:"category"`
	SupportingDoc  *string    `json:"supporting_doc,omitempty"`
	ReviewStatus   string     `json:"review_status"`
	ReviewComments *string    `json:"review_comments,omitempty"`
	ReviewedBy     *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (e *Entry) IsPending() bool {
	return e.ReviewStatus == ReviewStatusPending
}

// ResetReview clears the review outcome after an owner edit; the entry goes
// back into the pending queue.
func (e *Entry) ResetReview() {
	e.ReviewStatus = ReviewStatusPending
	e.ReviewComments = nil
	e.ReviewedBy = nil
	e.ReviewedAt = nil
}

func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

func ToDataModel(e *Entry) *entryDatamodel.CPDEntry {
	return &entryDatamodel.CPDEntry{
		ID:             e.ID,
		UserID:         e.UserID,
		Title:          e.Title,
		Description:    e.Description,
		DateCompleted:  e.DateCompleted,
		Hours:          e.Hours,
		Category:       e.Category,
		SupportingDoc:  e.SupportingDoc,
		ReviewStatus:   e.ReviewStatus,
		ReviewComments: e.ReviewComments,
		ReviewedBy:     e.ReviewedBy,
		ReviewedAt:     e.ReviewedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func FromDataModel(e *entryDatamodel.CPDEntry) *Entry {
	return &Entry{
		ID:             e.ID,
		UserID:         e.UserID,
		Title:          e.Title,
		Description:    e.Description,
		DateCompleted:  e.DateCompleted,
		Hours:          e.Hours,
		Category:       e.Category,
		SupportingDoc:  e.SupportingDoc,
		ReviewStatus:   e.ReviewStatus,
		ReviewComments: e.ReviewComments,
		ReviewedBy:     e.ReviewedBy,
		ReviewedAt:     e.ReviewedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*entryDatamodel.CPDEntry) []*Entry {
	result := make([]*Entry, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
