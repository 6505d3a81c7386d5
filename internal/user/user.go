package user

import (
	"time"

	userDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/user"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

// User is the domain shape of an account. PasswordHash never crosses the
// transport boundary.
type User struct {
	ID             int64         `json:"id"`
	OrganisationID int64         `json:"organisation_id"`
	Email          string        `json:"email"`
	Name           string        `json:"name"`
	PasswordHash   string        `json:"-"`
	Role           identity.Role `json:"role"`
	Archived       bool          `json:"archived"`
	ArchivedAt     *time.Time    `json:"archived_at,omitempty"`
	ArchivedBy     *int64        `json:"archived_by,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return !u.Archived
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:             u.ID,
		OrganisationID: u.OrganisationID,
		Email:          u.Email,
		Name:           u.Name,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		Archived:       u.Archived,
		ArchivedAt:     u.ArchivedAt,
		ArchivedBy:     u.ArchivedBy,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:             u.ID,
		OrganisationID: u.OrganisationID,
		Email:          u.Email,
		Name:           u.Name,
		PasswordHash:   u.PasswordHash,
		Role:           identity.Role(u.Role),
		Archived:       u.Archived,
		ArchivedAt:     u.ArchivedAt,
		ArchivedBy:     u.ArchivedBy,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*userDatamodel.User) []*User {
	result := make([]*User, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
