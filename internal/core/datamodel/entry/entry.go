package entry

import "time"

type CPDEntry struct {
	ID             int64      `gorm:"primaryKey"`
	UserID         int64      `gorm:"column:user_id;not null"`
	Title          string     `gorm:"column:title;not null"`
	Description    string     `gorm:"column:description"`
	DateCompleted  time.Time  `gorm:"column:date_completed;type:date;not null"`
	Hours          float64    `gorm:"column:hours;not null"`
	Category       string     `gorm:"column:category;not null"`
	SupportingDoc  *string    `gorm:"column:supporting_doc"`
	ReviewStatus   string     `gorm:"column:review_status;default:pending"`
	ReviewComments *string    `gorm:"column:review_comments"`
	ReviewedBy     *int64     `gorm:"column:reviewed_by"`
	ReviewedAt     *time.Time `gorm:"column:reviewed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;default:now()"`
}

func (CPDEntry) TableName() string {
	return "cpd_entries"
}
