package review

import (
	"log/slog"
	"time"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/entry"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

// Eligibility answers whether a reviewer may decide on a given owner's
// entries. Ineligibility is a quiet 'no', never an error.
type Eligibility interface {
	CanUserReviewEntry(reviewer identity.ActorContext, entryOwnerID int64) bool
}

// ScopeResolver is the slice of the hierarchy layer used to build the
// reviewer's pending queue.
type ScopeResolver interface {
	ManagedTeamIDs(userID int64) ([]int64, error)
	PartneredTeamIDs(userID int64) ([]int64, error)
	PartneredDepartmentIDs(userID int64) ([]int64, error)
	TeamMembers(teamID int64) ([]int64, error)
	DepartmentMembers(departmentID int64) ([]int64, error)
}

// Service handles entry review decisions.
type Service struct {
	repo        Repository
	entries     EntryStore
	eligibility Eligibility
	scopes      ScopeResolver
	logger      *slog.Logger
}

func NewService(repo Repository, entries EntryStore, eligibility Eligibility, scopes ScopeResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		entries:     entries,
		eligibility: eligibility,
		scopes:      scopes,
		logger:      logger,
	}
}

// ReviewEntry records an approve/reject decision on a single entry. The
// outcome is whether the decision was applied: an ineligible reviewer gets
// false without an error. Re-reviewing an already decided entry overwrites
// the previous outcome.
func (s *Service) ReviewEntry(reviewer identity.ActorContext, entryID int64, dto ReviewDTO) (bool, error) {
	if err := dto.Validate(); err != nil {
		return false, err
	}

	e, err := s.entries.GetByID(entryID)
	if err != nil {
		return false, errors.ErrEntryNotFound
	}

	if !s.eligibility.CanUserReviewEntry(reviewer, e.UserID) {
		s.logger.Warn("review denied",
			"entry_id", entryID, "reviewer_id", reviewer.UserID, "owner_id", e.UserID)
		return false, nil
	}

	if err := s.repo.ApplyReview(entryID, reviewer.UserID, dto.Status, dto.Comments, time.Now()); err != nil {
		s.logger.Error("failed to apply review", "error", err, "entry_id", entryID)
		return false, err
	}

	s.logger.Info("entry reviewed",
		"entry_id", entryID,
		"reviewer_id", reviewer.UserID,
		"status", dto.Status)

	return true, nil
}

// BulkApprove approves a batch of entries in one transaction. Entries the
// reviewer is not eligible for, and ids that do not resolve, are skipped and
// reported; they never fail the batch. A storage error during the transaction
// approves nothing.
func (s *Service) BulkApprove(reviewer identity.ActorContext, entryIDs []int64) (*BulkApproveResult, error) {
	result := &BulkApproveResult{
		ApprovedIDs: []int64{},
		SkippedIDs:  []int64{},
	}

	for _, id := range entryIDs {
		e, err := s.entries.GetByID(id)
		if err != nil {
			result.SkippedIDs = append(result.SkippedIDs, id)
			continue
		}
		if !s.eligibility.CanUserReviewEntry(reviewer, e.UserID) {
			result.SkippedIDs = append(result.SkippedIDs, id)
			continue
		}
		result.ApprovedIDs = append(result.ApprovedIDs, id)
	}

	if len(result.ApprovedIDs) == 0 {
		return result, nil
	}

	if err := s.repo.BulkApprove(result.ApprovedIDs, reviewer.UserID, time.Now()); err != nil {
		s.logger.Error("bulk approve transaction failed",
			"error", err, "reviewer_id", reviewer.UserID, "count", len(result.ApprovedIDs))
		return nil, errors.NewTransactionError("bulk approve failed", err)
	}

	s.logger.Info("bulk approve applied",
		"reviewer_id", reviewer.UserID,
		"approved", len(result.ApprovedIDs),
		"skipped", len(result.SkippedIDs))

	return result, nil
}

// PendingReviews lists the pending entries the reviewer is eligible to
// decide on, oldest first. Admins see the whole organisation's queue.
func (s *Service) PendingReviews(reviewer identity.ActorContext, limit, offset int) ([]*entry.Entry, error) {
	if reviewer.IsAdmin() {
		return s.repo.PendingForOrganisation(reviewer.OrganisationID, limit, offset)
	}
	if !reviewer.Role.CanReview() {
		return []*entry.Entry{}, nil
	}

	userIDs, err := s.reviewableUserIDs(reviewer)
	if err != nil {
		s.logger.Error("failed to resolve review scope", "error", err, "reviewer_id", reviewer.UserID)
		return nil, err
	}

	return s.repo.PendingForUsers(userIDs, limit, offset)
}

// reviewableUserIDs collects the distinct members of every team and
// department the reviewer is assigned to. The reviewer's own entries are
// excluded: nobody reviews themselves through the queue.
func (s *Service) reviewableUserIDs(reviewer identity.ActorContext) ([]int64, error) {
	teamIDs := map[int64]struct{}{}

	managed, err := s.scopes.ManagedTeamIDs(reviewer.UserID)
	if err != nil {
		return nil, err
	}
	for _, id := range managed {
		teamIDs[id] = struct{}{}
	}

	if reviewer.Role == identity.RolePartner {
		partnered, err := s.scopes.PartneredTeamIDs(reviewer.UserID)
		if err != nil {
			return nil, err
		}
		for _, id := range partnered {
			teamIDs[id] = struct{}{}
		}
	}

	seen := map[int64]struct{}{}
	var userIDs []int64
	addMembers := func(members []int64) {
		for _, id := range members {
			if id == reviewer.UserID {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			userIDs = append(userIDs, id)
		}
	}

	for teamID := range teamIDs {
		members, err := s.scopes.TeamMembers(teamID)
		if err != nil {
			return nil, err
		}
		addMembers(members)
	}

	if reviewer.Role == identity.RolePartner {
		departmentIDs, err := s.scopes.PartneredDepartmentIDs(reviewer.UserID)
		if err != nil {
			return nil, err
		}
		for _, departmentID := range departmentIDs {
			members, err := s.scopes.DepartmentMembers(departmentID)
			if err != nil {
				return nil, err
			}
			addMembers(members)
		}
	}

	return userIDs, nil
}
