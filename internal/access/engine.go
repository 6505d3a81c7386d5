package access

import (
	"log/slog"

	"github.com/cpdtrack/cpd-management/internal/hierarchy"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

// ScopeResolver supplies the containment facts the engine decides on.
type ScopeResolver interface {
	ResolveUserScope(userID int64) (*hierarchy.UserScope, error)
	MemberTeams(userID int64) ([]hierarchy.TeamRef, error)
	IsOrgAdmin(userID, organisationID int64) (bool, error)
}

// Engine is a pure allow/deny predicate. It never mutates anything and never
// returns an error: a relation row that cannot be resolved means the rule
// does not match, and an unmatched request is denied.
type Engine struct {
	scopes ScopeResolver
	logger *slog.Logger
}

func NewEngine(scopes ScopeResolver, logger *slog.Logger) *Engine {
	return &Engine{
		scopes: scopes,
		logger: logger,
	}
}

// CanAccess decides with first-match precedence:
//  1. global admin role
//  2. organisation-admin assignment for the resource's organisation
//  3. resource owner (review is never an owner action)
//  4. role-scoped capability over the owner's teams
//  5. deny
func (e *Engine) CanAccess(actor identity.ActorContext, action Action, resource Resource) bool {
	if !actor.Valid() {
		return false
	}

	if actor.Role == identity.RoleAdmin {
		return true
	}

	if resource.OrganisationID > 0 {
		isOrgAdmin, err := e.scopes.IsOrgAdmin(actor.UserID, resource.OrganisationID)
		if err != nil {
			e.logger.Warn("org admin lookup failed, rule skipped",
				"error", err, "actor_id", actor.UserID, "organisation_id", resource.OrganisationID)
		} else if isOrgAdmin {
			return true
		}
	}

	if resource.OwnerID > 0 && resource.OwnerID == actor.UserID && action != ActionReview {
		return true
	}

	switch action {
	case ActionRead, ActionReview:
		if resource.Type == ResourceEntry || resource.Type == ResourceUser {
			return e.ownerInActorScope(actor, resource.OwnerID)
		}
	}

	return false
}

// CanAccessEntry is CanAccess for a CPD entry identified by id and owner,
// resolving the owner's organisation for the org-admin rule. An owner whose
// organisation cannot be resolved simply never matches that rule.
func (e *Engine) CanAccessEntry(actor identity.ActorContext, action Action, entryID, ownerID int64) bool {
	var orgID int64
	if scope, err := e.scopes.ResolveUserScope(ownerID); err == nil {
		orgID = scope.OrganisationID
	}
	return e.CanAccess(actor, action, EntryResource(entryID, ownerID, orgID))
}

// CanAccessGoal is CanAccess for a goal identified by id and setter,
// resolving the setter's organisation for the org-admin rule. Target-scope
// rules are the goal service's to apply; this covers the admin, org-admin and
// setter precedence steps.
func (e *Engine) CanAccessGoal(actor identity.ActorContext, action Action, goalID, setBy int64) bool {
	var orgID int64
	if scope, err := e.scopes.ResolveUserScope(setBy); err == nil {
		orgID = scope.OrganisationID
	}
	return e.CanAccess(actor, action, GoalResource(goalID, setBy, orgID))
}

// CanUserReviewEntry applies the review eligibility rule: admin always,
// manager for owners in assigned teams, partner for owners in partnered
// teams or partnered departments. Role and assignment must both hold.
func (e *Engine) CanUserReviewEntry(reviewer identity.ActorContext, entryOwnerID int64) bool {
	if !reviewer.Valid() || entryOwnerID <= 0 {
		return false
	}
	if reviewer.Role == identity.RoleAdmin {
		return true
	}
	if !reviewer.Role.CanReview() {
		return false
	}
	return e.ownerInActorScope(reviewer, entryOwnerID)
}

// ownerInActorScope checks whether the owner falls inside the actor's
// role-scoped assignment sets. Department partnership is transitively
// broader than team partnership: it covers every team under the department.
func (e *Engine) ownerInActorScope(actor identity.ActorContext, ownerID int64) bool {
	if ownerID <= 0 {
		return false
	}

	scope, err := e.scopes.ResolveUserScope(actor.UserID)
	if err != nil {
		e.logger.Warn("actor scope resolution failed, denying",
			"error", err, "actor_id", actor.UserID)
		return false
	}

	ownerTeams, err := e.scopes.MemberTeams(ownerID)
	if err != nil {
		e.logger.Warn("owner team resolution failed, denying",
			"error", err, "owner_id", ownerID)
		return false
	}

	switch actor.Role {
	case identity.RoleManager:
		for _, t := range ownerTeams {
			if scope.Manages(t.TeamID) {
				return true
			}
		}
		return false
	case identity.RolePartner:
		for _, t := range ownerTeams {
			if scope.PartnersTeam(t.TeamID) {
				return true
			}
			if t.DepartmentID != nil && scope.PartnersDepartment(*t.DepartmentID) {
				return true
			}
		}
		return false
	case identity.RoleUser, identity.RoleAdmin:
		return false
	default:
		return false
	}
}
