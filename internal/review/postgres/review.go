package postgres

import (
	"fmt"
	"time"

	entryDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/entry"
	"github.com/cpdtrack/cpd-management/internal/entry"
	"gorm.io/gorm"
)

// ReviewRepository implements review.Repository using GORM.
type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// ApplyReview writes the review outcome onto the entry row. Writing over a
// previous outcome is intentional: the latest decision wins.
func (r *ReviewRepository) ApplyReview(entryID, reviewerID int64, status string, comments *string, at time.Time) error {
	result := r.db.Model(&entryDatamodel.CPDEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]interface{}{
			"review_status":   status,
			"review_comments": comments,
			"reviewed_by":     reviewerID,
			"reviewed_at":     at,
			"updated_at":      at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("entry %d not found", entryID)
	}
	return nil
}

// BulkApprove approves every given entry in a single transaction. If any
// update fails the transaction rolls back and no entry is approved.
func (r *ReviewRepository) BulkApprove(entryIDs []int64, reviewerID int64, at time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, entryID := range entryIDs {
			result := tx.Model(&entryDatamodel.CPDEntry{}).
				Where("id = ?", entryID).
				Updates(map[string]interface{}{
					"review_status":   entry.ReviewStatusApproved,
					"review_comments": nil,
					"reviewed_by":     reviewerID,
					"reviewed_at":     at,
					"updated_at":      at,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("entry %d not found", entryID)
			}
		}
		return nil
	})
}

func (r *ReviewRepository) PendingForUsers(userIDs []int64, limit, offset int) ([]*entry.Entry, error) {
	if len(userIDs) == 0 {
		return []*entry.Entry{}, nil
	}
	var rows []*entryDatamodel.CPDEntry
	err := r.db.Where("user_id IN ? AND review_status = ?", userIDs, entry.ReviewStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return entry.FromDataModelSlice(rows), nil
}

// PendingForOrganisation lists an organisation's entire pending queue,
// joining through users to scope by tenant.
func (r *ReviewRepository) PendingForOrganisation(organisationID int64, limit, offset int) ([]*entry.Entry, error) {
	var rows []*entryDatamodel.CPDEntry
	err := r.db.Model(&entryDatamodel.CPDEntry{}).
		Joins("JOIN users ON users.id = cpd_entries.user_id").
		Where("users.organisation_id = ? AND cpd_entries.review_status = ?",
			organisationID, entry.ReviewStatusPending).
		Order("cpd_entries.created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return entry.FromDataModelSlice(rows), nil
}
