package user

import "time"

type User struct {
	ID             int64      `gorm:"primaryKey"`
	OrganisationID int64      `gorm:"column:organisation_id;not null"`
	Email          string     `gorm:"column:email;uniqueIndex;not null"`
	Name           string     `gorm:"column:name;not null"`
	PasswordHash   string     `gorm:"column:password_hash;not null"`
	Role           string     `gorm:"column:role;default:user"`
	Archived       bool       `gorm:"column:archived;default:false"`
	ArchivedAt     *time.Time `gorm:"column:archived_at"`
	ArchivedBy     *int64     `gorm:"column:archived_by"`
	CreatedAt      time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}
