package review

import (
	"time"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/entry"
)

// Repository defines the storage operations for entry reviews. BulkApprove
// runs inside one transaction: either every given entry is approved or none.
type Repository interface {
	ApplyReview(entryID, reviewerID int64, status string, comments *string, at time.Time) error
	BulkApprove(entryIDs []int64, reviewerID int64, at time.Time) error
	PendingForUsers(userIDs []int64, limit, offset int) ([]*entry.Entry, error)
	PendingForOrganisation(organisationID int64, limit, offset int) ([]*entry.Entry, error)
}

// EntryStore is the read side the workflow needs from the entry layer.
type EntryStore interface {
	GetByID(id int64) (*entry.Entry, error)
}

// BulkApproveResult reports which entries were approved and which were
// skipped as ineligible. A skip is not a failure.
type BulkApproveResult struct {
	ApprovedIDs []int64 `json:"approved_ids"`
	SkippedIDs  []int64 `json:"skipped_ids"`
}

// ReviewDTO is the request payload for a single review decision.
type ReviewDTO struct {
	Status   string  `json:"status"`
	Comments *string `json:"comments,omitempty"`
}

func (dto ReviewDTO) Validate() *errors.AppError {
	if dto.Status != entry.ReviewStatusApproved && dto.Status != entry.ReviewStatusRejected {
		return errors.NewValidationFieldError("status",
			"status must be either 'approved' or 'rejected'", errors.ErrCodeValidationFailed)
	}
	return nil
}
