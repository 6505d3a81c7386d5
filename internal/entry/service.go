package entry

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/access"
	"github.com/cpdtrack/cpd-management/internal/core/events"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

// Repository defines the data access methods for CPD entries.
type Repository interface {
	Create(e *Entry) error
	GetByID(id int64) (*Entry, error)
	GetByUserID(userID int64, limit, offset int) ([]*Entry, error)
	GetPendingForUsers(userIDs []int64, limit, offset int) ([]*Entry, error)
	Update(e *Entry) error
	Delete(id int64) error
}

// Authorizer is the slice of the access engine the entry service needs.
type Authorizer interface {
	CanAccessEntry(actor identity.ActorContext, action access.Action, entryID, ownerID int64) bool
}

// Publisher pushes domain events onto the bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service handles CPD entry business logic.
type Service struct {
	repo       Repository
	authorizer Authorizer
	publisher  Publisher
	logger     *slog.Logger
}

func NewService(repo Repository, authorizer Authorizer, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		publisher:  publisher,
		logger:     logger,
	}
}

// CreateEntry logs a new CPD activity for the acting user. New entries start
// pending review; their hours already count toward goal progress.
func (s *Service) CreateEntry(actor identity.ActorContext, dto CreateEntryDTO) (*Entry, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("entry validation failed", "error", err, "user_id", actor.UserID)
		return nil, err
	}

	now := time.Now()
	e := &Entry{
		UserID:        actor.UserID,
		Title:         dto.Title,
		Description:   dto.Description,
		DateCompleted: dto.DateCompleted,
		Hours:         dto.Hours,
		Category:      dto.Category,
		SupportingDoc: dto.SupportingDoc,
		ReviewStatus:  ReviewStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(e); err != nil {
		s.logger.Error("failed to create entry", "error", err, "user_id", actor.UserID)
		return nil, err
	}

	s.publishChanged(e)

	s.logger.Info("entry created",
		"entry_id", e.ID,
		"user_id", actor.UserID,
		"hours", e.Hours,
		"category", e.Category)

	return e, nil
}

// GetEntry retrieves a single entry, subject to the actor's scope. Archived
// owners do not hide history: access is decided on containment, not on the
// owner's archived flag.
func (s *Service) GetEntry(actor identity.ActorContext, entryID int64) (*Entry, error) {
	e, err := s.repo.GetByID(entryID)
	if err != nil {
		return nil, errors.ErrEntryNotFound
	}

	if !s.authorizer.CanAccessEntry(actor, access.ActionRead, e.ID, e.UserID) {
		s.logger.Warn("entry read denied",
			"entry_id", entryID, "actor_id", actor.UserID, "owner_id", e.UserID)
		return nil, errors.ErrUnauthorizedAccess
	}

	return e, nil
}

// GetUserEntries lists a user's entries for any actor whose scope covers
// that user.
func (s *Service) GetUserEntries(actor identity.ActorContext, userID int64, limit, offset int) ([]*Entry, error) {
	if actor.UserID != userID &&
		!s.authorizer.CanAccessEntry(actor, access.ActionRead, 0, userID) {
		s.logger.Warn("entry list denied", "actor_id", actor.UserID, "owner_id", userID)
		return nil, errors.ErrUnauthorizedAccess
	}

	entries, err := s.repo.GetByUserID(userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list entries", "error", err, "user_id", userID)
		return nil, err
	}
	return entries, nil
}

// UpdateEntry applies owner edits and sends the entry back to pending review.
func (s *Service) UpdateEntry(actor identity.ActorContext, entryID int64, dto UpdateEntryDTO) (*Entry, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	e, err := s.repo.GetByID(entryID)
	if err != nil {
		return nil, errors.ErrEntryNotFound
	}

	if !s.authorizer.CanAccessEntry(actor, access.ActionUpdate, e.ID, e.UserID) {
		s.logger.Warn("entry update denied",
			"entry_id", entryID, "actor_id", actor.UserID, "owner_id", e.UserID)
		return nil, errors.ErrUnauthorizedAccess
	}

	if dto.Title != nil {
		e.Title = *dto.Title
	}
	if dto.Description != nil {
		e.Description = *dto.Description
	}
	if dto.DateCompleted != nil {
		e.DateCompleted = *dto.DateCompleted
	}
	if dto.Hours != nil {
		e.Hours = *dto.Hours
	}
	if dto.Category != nil {
		e.Category = *dto.Category
	}
	if dto.SupportingDoc != nil {
		e.SupportingDoc = dto.SupportingDoc
	}
	e.ResetReview()
	e.UpdatedAt = time.Now()

	if err := s.repo.Update(e); err != nil {
		s.logger.Error("failed to update entry", "error", err, "entry_id", entryID)
		return nil, err
	}

	s.publishChanged(e)

	s.logger.Info("entry updated", "entry_id", entryID, "user_id", e.UserID)
	return e, nil
}

// DeleteEntry removes an entry. The stored supporting document reference goes
// with the row; file removal is the upload layer's concern.
func (s *Service) DeleteEntry(actor identity.ActorContext, entryID int64) error {
	e, err := s.repo.GetByID(entryID)
	if err != nil {
		return errors.ErrEntryNotFound
	}

	if !s.authorizer.CanAccessEntry(actor, access.ActionDelete, e.ID, e.UserID) {
		s.logger.Warn("entry delete denied",
			"entry_id", entryID, "actor_id", actor.UserID, "owner_id", e.UserID)
		return errors.ErrUnauthorizedAccess
	}

	if err := s.repo.Delete(entryID); err != nil {
		s.logger.Error("failed to delete entry", "error", err, "entry_id", entryID)
		return err
	}

	s.publishChanged(e)

	s.logger.Info("entry deleted", "entry_id", entryID, "deleted_by", actor.UserID)
	return nil
}

func (s *Service) publishChanged(e *Entry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), events.NewEntryChanged(e.ID, e.UserID)); err != nil {
		s.logger.Error("failed to publish entry change", "error", err, "entry_id", e.ID)
	}
}
