package goal

import (
	"context"
	"log/slog"
	"sort"
	"time"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/access"
	"github.com/cpdtrack/cpd-management/internal/core/events"
	"github.com/cpdtrack/cpd-management/internal/hierarchy"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

// Repository defines the data access methods for goals and derived progress.
type Repository interface {
	Create(g *Goal) error
	GetByID(id int64) (*Goal, error)
	Update(g *Goal) error
	UpdateStatus(id int64, status Status) error
	ListByStatus(statuses []Status, limit, offset int) ([]*Goal, error)
	ActiveGoalIDsForTargets(userID int64, teamIDs, departmentIDs []int64) ([]int64, error)
	GetProgress(goalID int64) ([]ProgressRow, error)
	// ReplaceProgress upserts the given rows and removes rows for users no
	// longer in the goal's scope, all inside one transaction.
	ReplaceProgress(goalID int64, rows []ProgressRow) error
}

// MembershipResolver supplies the affected user set for a goal target.
type MembershipResolver interface {
	MemberTeams(userID int64) ([]hierarchy.TeamRef, error)
	TeamMembers(teamID int64) ([]int64, error)
	DepartmentMembers(departmentID int64) ([]int64, error)
	ResolveUserScope(userID int64) (*hierarchy.UserScope, error)
	TeamDepartment(teamID int64) (*int64, error)
}

// Authorizer is the slice of the access engine the goal service consults: the
// admin, org-admin and setter rules. Target-scope rules need the tagged
// target and are applied here, not in the engine.
type Authorizer interface {
	CanAccessGoal(actor identity.ActorContext, action access.Action, goalID, setBy int64) bool
}

// EntryAggregate is the per-user CPD summary recompute is built from.
// Pending entries count: progress is not gated on review status.
type EntryAggregate struct {
	Hours         float64
	Entries       int
	LastEntryDate *time.Time
}

// EntryAggregator sums a user's CPD entries dated on or before the cutoff.
type EntryAggregator interface {
	AggregateUserEntries(userID int64, until time.Time) (EntryAggregate, error)
}

// RecomputeResult is what one recompute returns: the status after the run and
// the derived rows, ordered by user id.
type RecomputeResult struct {
	GoalID int64         `json:"goal_id"`
	Status Status        `json:"status"`
	Rows   []ProgressRow `json:"progress_rows"`
}

// SweepResult summarises a bulk recompute pass.
type SweepResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// Service owns the goal lifecycle and the progress state machine. Recompute
// is the single mutation path for progress fields and status transitions;
// create/edit/cancel and the event handlers all funnel into it.
type Service struct {
	repo        Repository
	memberships MembershipResolver
	entries     EntryAggregator
	authorizer  Authorizer
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo Repository, memberships MembershipResolver, entries EntryAggregator, authorizer Authorizer, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		memberships: memberships,
		entries:     entries,
		authorizer:  authorizer,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateGoal validates, authorizes the target scope against the actor, and
// persists the goal. The caller publishes goal.updated to seed progress rows.
func (s *Service) CreateGoal(actor identity.ActorContext, dto CreateGoalDTO) (*Goal, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("goal validation failed", "error", err, "actor_id", actor.UserID)
		return nil, err
	}

	target, appErr := dto.ResolveTarget()
	if appErr != nil {
		return nil, appErr
	}

	if !actor.Role.CanSetGoals() {
		s.logger.Warn("goal creation denied: role cannot set goals",
			"actor_id", actor.UserID, "role", actor.Role)
		return nil, errors.ErrUnauthorizedAccess
	}

	allowed, err := s.canTargetScope(actor, target)
	if err != nil {
		s.logger.Error("goal target scope check failed", "error", err, "actor_id", actor.UserID)
		return nil, errors.NewInternalError("failed to verify goal target scope", err)
	}
	if !allowed {
		s.logger.Warn("goal creation denied: target outside actor scope",
			"actor_id", actor.UserID, "role", actor.Role,
			"target_kind", target.Kind(), "target_id", target.ID())
		return nil, errors.ErrUnauthorizedAccess
	}

	now := s.now()
	g := &Goal{
		Target:        target,
		GoalType:      target.Kind(),
		TargetID:      target.ID(),
		SetBy:         actor.UserID,
		Title:         dto.Title,
		Description:   dto.Description,
		TargetHours:   dto.TargetHours,
		TargetEntries: dto.TargetEntries,
		Deadline:      dto.Deadline,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(g); err != nil {
		s.logger.Error("failed to create goal", "error", err, "actor_id", actor.UserID)
		return nil, err
	}

	s.logger.Info("goal created",
		"goal_id", g.ID,
		"set_by", actor.UserID,
		"target_kind", target.Kind(),
		"target_id", target.ID(),
		"target_hours", g.TargetHours,
		"deadline", g.Deadline)

	return g, nil
}

// UpdateGoal edits the mutable goal fields. Changing target_hours or the
// deadline requires a recompute; the caller publishes goal.updated when the
// returned changed flag is true.
func (s *Service) UpdateGoal(actor identity.ActorContext, goalID int64, dto UpdateGoalDTO) (*Goal, bool, error) {
	if err := dto.Validate(); err != nil {
		return nil, false, err
	}

	g, err := s.repo.GetByID(goalID)
	if err != nil {
		return nil, false, errors.ErrGoalNotFound
	}

	if !s.canAdminister(actor, g) {
		s.logger.Warn("goal update denied", "goal_id", goalID, "actor_id", actor.UserID)
		return nil, false, errors.ErrUnauthorizedAccess
	}

	if g.Status.Terminal() {
		return nil, false, errors.ErrGoalNotActive
	}

	needsRecompute := false
	if dto.Title != nil {
		g.Title = *dto.Title
	}
	if dto.Description != nil {
		g.Description = *dto.Description
	}
	if dto.TargetHours != nil && *dto.TargetHours != g.TargetHours {
		g.TargetHours = *dto.TargetHours
		needsRecompute = true
	}
	if dto.TargetEntries != nil {
		g.TargetEntries = dto.TargetEntries
	}
	if dto.Deadline != nil && !dto.Deadline.Equal(g.Deadline) {
		g.Deadline = *dto.Deadline
		needsRecompute = true
	}
	g.UpdatedAt = s.now()

	if err := s.repo.Update(g); err != nil {
		s.logger.Error("failed to update goal", "error", err, "goal_id", goalID)
		return nil, false, err
	}

	s.logger.Info("goal updated", "goal_id", goalID, "needs_recompute", needsRecompute)
	return g, needsRecompute, nil
}

// CancelGoal transitions active/overdue goals to cancelled. Terminal goals
// cannot be cancelled again.
func (s *Service) CancelGoal(actor identity.ActorContext, goalID int64) error {
	g, err := s.repo.GetByID(goalID)
	if err != nil {
		return errors.ErrGoalNotFound
	}

	if !s.canAdminister(actor, g) {
		s.logger.Warn("goal cancel denied", "goal_id", goalID, "actor_id", actor.UserID)
		return errors.ErrUnauthorizedAccess
	}

	if !g.Status.CanCancel() {
		s.logger.Warn("cannot cancel goal in current status",
			"goal_id", goalID, "status", g.Status)
		return errors.ErrGoalNotActive
	}

	if err := s.repo.UpdateStatus(goalID, StatusCancelled); err != nil {
		s.logger.Error("failed to cancel goal", "error", err, "goal_id", goalID)
		return err
	}

	s.logger.Info("goal cancelled", "goal_id", goalID, "cancelled_by", actor.UserID)
	return nil
}

// GetGoal returns the goal with its progress rows. Reads are scoped: the
// rows expose every covered member's hours, so an actor outside the goal's
// organisation and scope gets a deny, not data.
func (s *Service) GetGoal(actor identity.ActorContext, goalID int64) (*Goal, []ProgressRow, error) {
	g, err := s.repo.GetByID(goalID)
	if err != nil {
		return nil, nil, errors.ErrGoalNotFound
	}

	if !s.canView(actor, g) {
		s.logger.Warn("goal read denied", "goal_id", goalID, "actor_id", actor.UserID)
		return nil, nil, errors.ErrUnauthorizedAccess
	}

	rows, err := s.repo.GetProgress(goalID)
	if err != nil {
		return nil, nil, err
	}
	return g, rows, nil
}

// RecomputeProgress rebuilds the progress rows for one goal and applies the
// state machine. It is idempotent: with no intervening entry changes, two
// consecutive runs produce identical rows and status.
func (s *Service) RecomputeProgress(goalID int64) (*RecomputeResult, error) {
	g, err := s.repo.GetByID(goalID)
	if err != nil {
		return nil, errors.ErrGoalNotFound
	}

	if g.Status == StatusCancelled {
		rows, err := s.repo.GetProgress(goalID)
		if err != nil {
			return nil, err
		}
		return &RecomputeResult{GoalID: goalID, Status: g.Status, Rows: rows}, nil
	}

	affected, err := s.affectedUsers(g.Target)
	if err != nil {
		s.logger.Error("failed to resolve affected users", "error", err, "goal_id", goalID)
		return nil, err
	}

	today := truncateToDay(s.now())
	cutoff := today.Add(24*time.Hour - time.Nanosecond)

	var totalHours float64
	rows := make([]ProgressRow, 0, len(affected))
	for _, userID := range affected {
		agg, err := s.entries.AggregateUserEntries(userID, cutoff)
		if err != nil {
			s.logger.Error("entry aggregation failed", "error", err, "goal_id", goalID, "user_id", userID)
			return nil, err
		}

		row := ProgressRow{
			GoalID:             goalID,
			UserID:             userID,
			CurrentHours:       agg.Hours,
			CurrentEntries:     agg.Entries,
			ProgressPercentage: hoursPercentage(agg.Hours, g.TargetHours),
			LastEntryDate:      agg.LastEntryDate,
		}
		if g.TargetEntries != nil && *g.TargetEntries > 0 {
			pct := entriesPercentage(agg.Entries, *g.TargetEntries)
			row.EntriesPercentage = &pct
		}
		rows = append(rows, row)
		totalHours += agg.Hours
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })

	if err := s.repo.ReplaceProgress(goalID, rows); err != nil {
		s.logger.Error("failed to persist progress rows", "error", err, "goal_id", goalID)
		return nil, err
	}

	next := s.nextStatus(g, totalHours, today)
	if next != g.Status {
		if err := s.repo.UpdateStatus(goalID, next); err != nil {
			s.logger.Error("failed to transition goal status", "error", err,
				"goal_id", goalID, "from", g.Status, "to", next)
			return nil, err
		}
		s.logger.Info("goal status transitioned",
			"goal_id", goalID, "from", g.Status, "to", next)
	}

	return &RecomputeResult{GoalID: goalID, Status: next, Rows: rows}, nil
}

// SweepActiveGoals recomputes every active and overdue goal. A failed goal is
// logged and skipped; the sweep always runs to completion.
func (s *Service) SweepActiveGoals(batchSize int) (SweepResult, error) {
	if batchSize <= 0 {
		batchSize = 200
	}

	result := SweepResult{}
	offset := 0
	for {
		goals, err := s.repo.ListByStatus([]Status{StatusActive, StatusOverdue}, batchSize, offset)
		if err != nil {
			s.logger.Error("sweep failed to list goals", "error", err, "offset", offset)
			return result, err
		}
		if len(goals) == 0 {
			break
		}

		for _, g := range goals {
			result.Attempted++
			if _, err := s.RecomputeProgress(g.ID); err != nil {
				s.logger.Error("sweep recompute failed, goal skipped",
					"error", err, "goal_id", g.ID)
				continue
			}
			result.Succeeded++
		}

		if len(goals) < batchSize {
			break
		}
		offset += batchSize
	}

	s.logger.Info("goal sweep finished",
		"attempted", result.Attempted, "succeeded", result.Succeeded)
	return result, nil
}

// RegisterEventHandlers subscribes recompute to the mutation events, making
// the bus the only trigger path besides the sweep.
func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EntryChangedEvent, func(ctx context.Context, e events.Event) error {
		ownerID, ok := events.EntryOwnerID(e)
		if !ok {
			return nil
		}
		return s.recomputeGoalsForUser(ownerID)
	})

	bus.Subscribe(events.GoalUpdatedEvent, func(ctx context.Context, e events.Event) error {
		goalID, ok := events.GoalID(e)
		if !ok {
			return nil
		}
		_, err := s.RecomputeProgress(goalID)
		return err
	})
}

// ActiveGoalIDsForUser lists every non-terminal goal whose scope contains
// the user: individual goals on them, goals on their teams, and goals on
// those teams' departments.
func (s *Service) ActiveGoalIDsForUser(userID int64) ([]int64, error) {
	teams, err := s.memberships.MemberTeams(userID)
	if err != nil {
		return nil, err
	}

	teamIDs := make([]int64, 0, len(teams))
	deptSeen := make(map[int64]struct{})
	var departmentIDs []int64
	for _, t := range teams {
		teamIDs = append(teamIDs, t.TeamID)
		if t.DepartmentID != nil {
			if _, ok := deptSeen[*t.DepartmentID]; !ok {
				deptSeen[*t.DepartmentID] = struct{}{}
				departmentIDs = append(departmentIDs, *t.DepartmentID)
			}
		}
	}

	return s.repo.ActiveGoalIDsForTargets(userID, teamIDs, departmentIDs)
}

// recomputeGoalsForUser recomputes each of those goals, logging and skipping
// individual failures.
func (s *Service) recomputeGoalsForUser(userID int64) error {
	goalIDs, err := s.ActiveGoalIDsForUser(userID)
	if err != nil {
		return err
	}

	for _, goalID := range goalIDs {
		if _, err := s.RecomputeProgress(goalID); err != nil {
			s.logger.Error("recompute after entry change failed",
				"error", err, "goal_id", goalID, "user_id", userID)
		}
	}
	return nil
}

// affectedUsers expands the target scope to the concrete user set.
func (s *Service) affectedUsers(target Target) ([]int64, error) {
	switch target.Kind() {
	case TargetKindUser:
		return []int64{target.ID()}, nil
	case TargetKindTeam:
		return s.memberships.TeamMembers(target.ID())
	case TargetKindDepartment:
		return s.memberships.DepartmentMembers(target.ID())
	default:
		return nil, ErrInvalidTarget
	}
}

// nextStatus applies the transition rules. Completion is judged on the total
// hours across the full target scope and is sticky; overdue flips back to
// active only when the deadline has been pushed into the future by an edit.
func (s *Service) nextStatus(g *Goal, totalHours float64, today time.Time) Status {
	if g.Status == StatusCompleted {
		return StatusCompleted
	}
	if hoursPercentage(totalHours, g.TargetHours) >= 100 {
		return StatusCompleted
	}
	if truncateToDay(g.Deadline).Before(today) {
		return StatusOverdue
	}
	return StatusActive
}

// canTargetScope decides whether the actor controls the target scope.
// Exhaustive over roles; unknown roles are denied.
func (s *Service) canTargetScope(actor identity.ActorContext, target Target) (bool, error) {
	if actor.Role == identity.RoleAdmin {
		return true, nil
	}

	scope, err := s.memberships.ResolveUserScope(actor.UserID)
	if err != nil {
		return false, err
	}

	switch actor.Role {
	case identity.RoleManager:
		switch target.Kind() {
		case TargetKindUser:
			teams, err := s.memberships.MemberTeams(target.ID())
			if err != nil {
				return false, err
			}
			for _, t := range teams {
				if scope.Manages(t.TeamID) {
					return true, nil
				}
			}
			return false, nil
		case TargetKindTeam:
			return scope.Manages(target.ID()), nil
		default:
			return false, nil
		}
	case identity.RolePartner:
		switch target.Kind() {
		case TargetKindUser:
			teams, err := s.memberships.MemberTeams(target.ID())
			if err != nil {
				return false, err
			}
			for _, t := range teams {
				if scope.PartnersTeam(t.TeamID) {
					return true, nil
				}
				if t.DepartmentID != nil && scope.PartnersDepartment(*t.DepartmentID) {
					return true, nil
				}
			}
			return false, nil
		case TargetKindTeam:
			if scope.PartnersTeam(target.ID()) {
				return true, nil
			}
			deptID, err := s.memberships.TeamDepartment(target.ID())
			if err != nil {
				return false, err
			}
			return deptID != nil && scope.PartnersDepartment(*deptID), nil
		case TargetKindDepartment:
			return scope.PartnersDepartment(target.ID()), nil
		default:
			return false, nil
		}
	default:
		return false, nil
	}
}

// canView gates reads: whoever the engine allows (admins, org admins of the
// setter's organisation, the setter), whoever controls the target scope, and
// whoever the goal measures. A user always may read a goal set on them, their
// team, or their team's department.
func (s *Service) canView(actor identity.ActorContext, g *Goal) bool {
	if s.authorizer != nil && s.authorizer.CanAccessGoal(actor, access.ActionRead, g.ID, g.SetBy) {
		return true
	}

	if allowed, err := s.canTargetScope(actor, g.Target); err == nil && allowed {
		return true
	}

	switch g.Target.Kind() {
	case TargetKindUser:
		return g.Target.ID() == actor.UserID
	case TargetKindTeam, TargetKindDepartment:
		scope, err := s.memberships.ResolveUserScope(actor.UserID)
		if err != nil {
			s.logger.Warn("goal membership check failed, denying",
				"error", err, "goal_id", g.ID, "actor_id", actor.UserID)
			return false
		}
		if g.Target.Kind() == TargetKindTeam {
			return scope.MemberOfTeam(g.Target.ID())
		}
		return scope.InDepartment(g.Target.ID())
	default:
		return false
	}
}

// canAdminister gates edit/cancel: the setter, admins, or an actor who
// controls the goal's target scope.
func (s *Service) canAdminister(actor identity.ActorContext, g *Goal) bool {
	if actor.Role == identity.RoleAdmin {
		return true
	}
	if g.SetBy == actor.UserID {
		return true
	}
	allowed, err := s.canTargetScope(actor, g.Target)
	if err != nil {
		s.logger.Warn("goal scope check failed, denying",
			"error", err, "goal_id", g.ID, "actor_id", actor.UserID)
		return false
	}
	return allowed
}

func hoursPercentage(hours, targetHours float64) float64 {
	if targetHours <= 0 {
		return 0
	}
	pct := 100 * hours / targetHours
	if pct > 100 {
		return 100
	}
	return pct
}

func entriesPercentage(entries, targetEntries int) float64 {
	if targetEntries <= 0 {
		return 0
	}
	pct := 100 * float64(entries) / float64(targetEntries)
	if pct > 100 {
		return 100
	}
	return pct
}
