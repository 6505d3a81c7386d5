package postgres

import (
	"errors"
	"time"

	internal "github.com/cpdtrack/cpd-management/internal"
	entryDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/entry"
	"github.com/cpdtrack/cpd-management/internal/entry"
	"github.com/cpdtrack/cpd-management/internal/goal"
	"gorm.io/gorm"
)

// EntryRepository implements entry.Repository and goal.EntryAggregator
// using GORM.
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Create(e *entry.Entry) error {
	row := entry.ToDataModel(e)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	e.ID = row.ID
	return nil
}

func (r *EntryRepository) GetByID(id int64) (*entry.Entry, error) {
	var row entryDatamodel.CPDEntry
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrEntryNotFound
		}
		return nil, err
	}
	return entry.FromDataModel(&row), nil
}

func (r *EntryRepository) GetByUserID(userID int64, limit, offset int) ([]*entry.Entry, error) {
	var rows []*entryDatamodel.CPDEntry
	err := r.db.Where("user_id = ?", userID).
		Order("date_completed DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return entry.FromDataModelSlice(rows), nil
}

// GetPendingForUsers returns pending entries across a set of users, oldest
// first so review queues drain FIFO.
func (r *EntryRepository) GetPendingForUsers(userIDs []int64, limit, offset int) ([]*entry.Entry, error) {
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

func (r *EntryRepository) Update(e *entry.Entry) error {
	e.UpdatedAt = time.Now()
	return r.db.Save(entry.ToDataModel(e)).Error
}

func (r *EntryRepository) Delete(id int64) error {
	return r.db.Delete(&entryDatamodel.CPDEntry{}, "id = ?", id).Error
}

// AggregateUserEntries sums hours and counts entries dated on or before the
// cutoff, regardless of review status: pending hours count toward progress.
func (r *EntryRepository) AggregateUserEntries(userID int64, until time.Time) (goal.EntryAggregate, error) {
	type aggregate struct {
		Hours   float64
		Entries int
		Last    *time.Time
	}

	var agg aggregate
	err := r.db.Model(&entryDatamodel.CPDEntry{}).
		Select("COALESCE(SUM(hours), 0) AS hours, COUNT(*) AS entries, MAX(date_completed) AS last").
		Where("user_id = ? AND date_completed <= ?", userID, until).
		Scan(&agg).Error
	if err != nil {
		return goal.EntryAggregate{}, err
	}

	return goal.EntryAggregate{
		Hours:         agg.Hours,
		Entries:       agg.Entries,
		LastEntryDate: agg.Last,
	}, nil
}
