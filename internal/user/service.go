package user

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/access"
	"github.com/cpdtrack/cpd-management/internal/core/events"
	"github.com/cpdtrack/cpd-management/internal/identity"
	"golang.org/x/crypto/bcrypt"
)

// Repository defines the data access methods for user accounts.
type Repository interface {
	Create(u *User) error
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	ListByOrganisation(organisationID int64, includeArchived bool, limit, offset int) ([]*User, error)
	Update(u *User) error
	DeleteCascade(id int64) error
}

// Capacity answers whether an organisation can take another active user.
type Capacity interface {
	HasReachedUserLimit(organisationID int64) (bool, error)
}

// Authorizer is the slice of the access engine the user service needs.
type Authorizer interface {
	CanAccess(actor identity.ActorContext, action access.Action, resource access.Resource) bool
}

// GoalLocator finds the goals whose progress a user contributes to. Needed
// before a hard delete, while the membership rows still exist.
type GoalLocator interface {
	ActiveGoalIDsForUser(userID int64) ([]int64, error)
}

// Publisher pushes domain events onto the bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service handles user account lifecycle.
type Service struct {
	repo       Repository
	capacity   Capacity
	authorizer Authorizer
	goals      GoalLocator
	publisher  Publisher
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo Repository, capacity Capacity, authorizer Authorizer, goals GoalLocator, publisher Publisher, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		capacity:   capacity,
		authorizer: authorizer,
		goals:      goals,
		publisher:  publisher,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// CreateUser adds an account to an organisation. Only admins and
// organisation admins may create accounts, and the organisation's user limit
// is checked against active accounts: archived users free their seat.
func (s *Service) CreateUser(actor identity.ActorContext, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if !s.authorizer.CanAccess(actor, access.ActionUpdate,
		access.Resource{Type: access.ResourceOrganisation, ID: dto.OrganisationID, OrganisationID: dto.OrganisationID}) {
		s.logger.Warn("user creation denied", "actor_id", actor.UserID, "organisation_id", dto.OrganisationID)
		return nil, errors.ErrUnauthorizedAccess
	}

	reached, err := s.capacity.HasReachedUserLimit(dto.OrganisationID)
	if err != nil {
		s.logger.Error("user limit check failed", "error", err, "organisation_id", dto.OrganisationID)
		return nil, err
	}
	if reached {
		return nil, errors.ErrUserLimitReached
	}

	if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
		return nil, errors.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		s.logger.Error("password hashing failed", "error", err)
		return nil, errors.NewInternalError("failed to process password", err)
	}

	role, _ := identity.ParseRole(dto.Role)
	now := time.Now()
	u := &User{
		OrganisationID: dto.OrganisationID,
		Email:          dto.Email,
		Name:           dto.Name,
		PasswordHash:   string(hash),
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user created",
		"user_id", u.ID,
		"organisation_id", u.OrganisationID,
		"role", u.Role,
		"created_by", actor.UserID)

	return u, nil
}

// GetUser retrieves an account, subject to the actor's scope.
func (s *Service) GetUser(actor identity.ActorContext, userID int64) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	if !s.authorizer.CanAccess(actor, access.ActionRead, access.UserResource(u.ID, u.OrganisationID)) {
		s.logger.Warn("user read denied", "actor_id", actor.UserID, "user_id", userID)
		return nil, errors.ErrUnauthorizedAccess
	}

	return u, nil
}

// ListUsers lists an organisation's accounts. Active accounts only unless
// includeArchived is set; only admins and organisation admins may list.
func (s *Service) ListUsers(actor identity.ActorContext, organisationID int64, includeArchived bool, limit, offset int) ([]*User, error) {
	if !s.authorizer.CanAccess(actor, access.ActionRead,
		access.Resource{Type: access.ResourceOrganisation, ID: organisationID, OrganisationID: organisationID}) {
		s.logger.Warn("user list denied", "actor_id", actor.UserID, "organisation_id", organisationID)
		return nil, errors.ErrUnauthorizedAccess
	}

	return s.repo.ListByOrganisation(organisationID, includeArchived, limit, offset)
}

// UpdateUser applies profile edits. Users may rename themselves; role
// changes require admin or organisation-admin standing.
func (s *Service) UpdateUser(actor identity.ActorContext, userID int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	if !s.authorizer.CanAccess(actor, access.ActionUpdate, access.UserResource(u.ID, u.OrganisationID)) {
		s.logger.Warn("user update denied", "actor_id", actor.UserID, "user_id", userID)
		return nil, errors.ErrUnauthorizedAccess
	}

	if dto.Role != nil {
		if !s.authorizer.CanAccess(actor, access.ActionUpdate,
			access.Resource{Type: access.ResourceOrganisation, ID: u.OrganisationID, OrganisationID: u.OrganisationID}) {
			s.logger.Warn("role change denied", "actor_id", actor.UserID, "user_id", userID)
			return nil, errors.ErrUnauthorizedAccess
		}
		role, _ := identity.ParseRole(*dto.Role)
		u.Role = role
	}
	if dto.Name != nil {
		u.Name = *dto.Name
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("user updated", "user_id", userID, "updated_by", actor.UserID)
	return u, nil
}

// ArchiveUser soft-deletes an account: it disappears from active listings
// and can no longer log in, but its entries stay in history and keep
// counting toward team goal progress. Archiving an archived user is a no-op.
func (s *Service) ArchiveUser(actor identity.ActorContext, userID int64) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	if !s.authorizer.CanAccess(actor, access.ActionDelete,
		access.Resource{Type: access.ResourceOrganisation, ID: u.OrganisationID, OrganisationID: u.OrganisationID}) {
		s.logger.Warn("user archive denied", "actor_id", actor.UserID, "user_id", userID)
		return nil, errors.ErrUnauthorizedAccess
	}

	if u.Archived {
		return u, nil
	}

	now := time.Now()
	u.Archived = true
	u.ArchivedAt = &now
	u.ArchivedBy = &actor.UserID
	u.UpdatedAt = now

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to archive user", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("user archived", "user_id", userID, "archived_by", actor.UserID)
	return u, nil
}

// UnarchiveUser restores an archived account, re-checking the seat limit:
// restoring consumes a seat the same way creating does.
func (s *Service) UnarchiveUser(actor identity.ActorContext, userID int64) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	if !s.authorizer.CanAccess(actor, access.ActionDelete,
		access.Resource{Type: access.ResourceOrganisation, ID: u.OrganisationID, OrganisationID: u.OrganisationID}) {
		s.logger.Warn("user unarchive denied", "actor_id", actor.UserID, "user_id", userID)
		return nil, errors.ErrUnauthorizedAccess
	}

	if !u.Archived {
		return u, nil
	}

	reached, err := s.capacity.HasReachedUserLimit(u.OrganisationID)
	if err != nil {
		return nil, err
	}
	if reached {
		return nil, errors.ErrUserLimitReached
	}

	u.Archived = false
	u.ArchivedAt = nil
	u.ArchivedBy = nil
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to unarchive user", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("user unarchived", "user_id", userID, "unarchived_by", actor.UserID)
	return u, nil
}

// DeleteUser hard-deletes an account and everything hanging off it: entries,
// progress rows, team memberships and reviewer assignments, in one
// transaction. Goals whose scope contained the user are recomputed after the
// delete so their hours drop out of team totals.
func (s *Service) DeleteUser(actor identity.ActorContext, userID int64) error {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return errors.ErrUserNotFound
	}

	if !s.authorizer.CanAccess(actor, access.ActionDelete,
		access.Resource{Type: access.ResourceOrganisation, ID: u.OrganisationID, OrganisationID: u.OrganisationID}) {
		s.logger.Warn("user delete denied", "actor_id", actor.UserID, "user_id", userID)
		return errors.ErrUnauthorizedAccess
	}

	// Resolve affected goals while the membership rows still exist.
	goalIDs, err := s.goals.ActiveGoalIDsForUser(userID)
	if err != nil {
		s.logger.Error("failed to resolve goals before delete", "error", err, "user_id", userID)
		return err
	}

	if err := s.repo.DeleteCascade(userID); err != nil {
		s.logger.Error("user cascade delete failed", "error", err, "user_id", userID)
		return errors.NewTransactionError("failed to delete user", err)
	}

	for _, goalID := range goalIDs {
		if err := s.publisher.Publish(context.Background(), events.NewGoalUpdated(goalID)); err != nil {
			s.logger.Error("failed to publish goal recompute after delete",
				"error", err, "goal_id", goalID, "user_id", userID)
		}
	}

	s.logger.Info("user deleted", "user_id", userID, "deleted_by", actor.UserID)
	return nil
}
