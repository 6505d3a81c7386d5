package access_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cpdtrack/cpd-management/internal/access"
	"github.com/cpdtrack/cpd-management/internal/hierarchy"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

func TestAccess(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Access Suite")
}

// Mock scope resolver for testing
type mockScopeResolver struct {
	scopes       map[int64]*hierarchy.UserScope
	memberTeams  map[int64][]hierarchy.TeamRef
	orgAdmins    map[int64]int64
	resolveError error
	teamsError   error
	adminError   error
}

func newMockScopeResolver() *mockScopeResolver {
	return &mockScopeResolver{
		scopes:      make(map[int64]*hierarchy.UserScope),
		memberTeams: make(map[int64][]hierarchy.TeamRef),
		orgAdmins:   make(map[int64]int64),
	}
}

func (m *mockScopeResolver) ResolveUserScope(userID int64) (*hierarchy.UserScope, error) {
	if m.resolveError != nil {
		return nil, m.resolveError
	}
	if scope, exists := m.scopes[userID]; exists {
		return scope, nil
	}
	return &hierarchy.UserScope{UserID: userID}, nil
}

func (m *mockScopeResolver) MemberTeams(userID int64) ([]hierarchy.TeamRef, error) {
	if m.teamsError != nil {
		return nil, m.teamsError
	}
	return m.memberTeams[userID], nil
}

func (m *mockScopeResolver) IsOrgAdmin(userID, organisationID int64) (bool, error) {
	if m.adminError != nil {
		return false, m.adminError
	}
	return m.orgAdmins[userID] == organisationID, nil
}

var _ = Describe("Engine", func() {
	var (
		engine *access.Engine
		scopes *mockScopeResolver
		logger *slog.Logger
	)

	ownerID := int64(5)
	deptID := int64(3)

	BeforeEach(func() {
		scopes = newMockScopeResolver()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		engine = access.NewEngine(scopes, logger)

		scopes.memberTeams[ownerID] = []hierarchy.TeamRef{{TeamID: 10, DepartmentID: &deptID}}
	})

	entry := func() access.Resource {
		return access.EntryResource(100, ownerID, 1)
	}

	Describe("CanAccess", func() {
		Context("with the global admin role", func() {
			It("should allow everything", func() {
				admin := identity.ActorContext{UserID: 99, Role: identity.RoleAdmin, OrganisationID: 1}

				Expect(engine.CanAccess(admin, access.ActionRead, entry())).To(BeTrue())
				Expect(engine.CanAccess(admin, access.ActionDelete, entry())).To(BeTrue())
			})
		})

		Context("with an organisation admin assignment", func() {
			It("should allow actions on resources in that organisation", func() {
				orgAdmin := identity.ActorContext{UserID: 8, Role: identity.RoleUser, OrganisationID: 1}
				scopes.orgAdmins[8] = 1

				Expect(engine.CanAccess(orgAdmin, access.ActionUpdate, entry())).To(BeTrue())
			})

			It("should not extend to other organisations", func() {
				orgAdmin := identity.ActorContext{UserID: 8, Role: identity.RoleUser, OrganisationID: 2}
				scopes.orgAdmins[8] = 2

				Expect(engine.CanAccess(orgAdmin, access.ActionUpdate, entry())).To(BeFalse())
			})
		})

		Context("as the resource owner", func() {
			It("should allow read, update and delete", func() {
				owner := identity.ActorContext{UserID: ownerID, Role: identity.RoleUser, OrganisationID: 1}

				Expect(engine.CanAccess(owner, access.ActionRead, entry())).To(BeTrue())
				Expect(engine.CanAccess(owner, access.ActionUpdate, entry())).To(BeTrue())
				Expect(engine.CanAccess(owner, access.ActionDelete, entry())).To(BeTrue())
			})

			It("should not grant review through ownership alone", func() {
				owner := identity.ActorContext{UserID: ownerID, Role: identity.RoleUser, OrganisationID: 1}

				Expect(engine.CanAccess(owner, access.ActionReview, entry())).To(BeFalse())
			})
		})

		Context("with the manager role", func() {
			It("should allow reading entries of members in managed teams", func() {
				manager := identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: 1}
				scopes.scopes[2] = &hierarchy.UserScope{UserID: 2, ManagedTeams: []int64{10}}

				Expect(engine.CanAccess(manager, access.ActionRead, entry())).To(BeTrue())
			})

			It("should deny when holding the role without the assignment", func() {
				manager := identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: 1}
				scopes.scopes[2] = &hierarchy.UserScope{UserID: 2}

				Expect(engine.CanAccess(manager, access.ActionRead, entry())).To(BeFalse())
			})

			It("should deny mutating another user's entry even in a managed team", func() {
				manager := identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: 1}
				scopes.scopes[2] = &hierarchy.UserScope{UserID: 2, ManagedTeams: []int64{10}}

				Expect(engine.CanAccess(manager, access.ActionUpdate, entry())).To(BeFalse())
				Expect(engine.CanAccess(manager, access.ActionDelete, entry())).To(BeFalse())
			})
		})

		Context("with the partner role", func() {
			It("should allow reading via a partnered team", func() {
				partner := identity.ActorContext{UserID: 3, Role: identity.RolePartner, OrganisationID: 1}
				scopes.scopes[3] = &hierarchy.UserScope{UserID: 3, PartneredTeams: []int64{10}}

				Expect(engine.CanAccess(partner, access.ActionRead, entry())).To(BeTrue())
			})

			It("should allow reading via a partnered department covering the owner's team", func() {
				partner := identity.ActorContext{UserID: 3, Role: identity.RolePartner, OrganisationID: 1}
				scopes.scopes[3] = &hierarchy.UserScope{UserID: 3, PartneredDepartments: []int64{deptID}}

				Expect(engine.CanAccess(partner, access.ActionRead, entry())).To(BeTrue())
			})

			It("should deny when the owner's team sits outside every partnership", func() {
				partner := identity.ActorContext{UserID: 3, Role: identity.RolePartner, OrganisationID: 1}
				scopes.scopes[3] = &hierarchy.UserScope{UserID: 3, PartneredTeams: []int64{77}}

				Expect(engine.CanAccess(partner, access.ActionRead, entry())).To(BeFalse())
			})
		})

		Context("when scope resolution fails", func() {
			It("should deny rather than error", func() {
				manager := identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: 1}
				scopes.resolveError = errors.New("db unavailable")

				Expect(engine.CanAccess(manager, access.ActionRead, entry())).To(BeFalse())
			})
		})

		Context("with an invalid actor", func() {
			It("should deny", func() {
				Expect(engine.CanAccess(identity.ActorContext{}, access.ActionRead, entry())).To(BeFalse())
			})
		})
	})

	Describe("CanAccessGoal", func() {
		setterID := int64(6)

		BeforeEach(func() {
			scopes.scopes[setterID] = &hierarchy.UserScope{UserID: setterID, OrganisationID: 1}
		})

		It("should allow the setter to read their own goal", func() {
			setter := identity.ActorContext{UserID: setterID, Role: identity.RoleManager, OrganisationID: 1}

			Expect(engine.CanAccessGoal(setter, access.ActionRead, 200, setterID)).To(BeTrue())
		})

		It("should allow an organisation admin of the setter's organisation", func() {
			orgAdmin := identity.ActorContext{UserID: 8, Role: identity.RoleUser, OrganisationID: 1}
			scopes.orgAdmins[8] = 1

			Expect(engine.CanAccessGoal(orgAdmin, access.ActionRead, 200, setterID)).To(BeTrue())
		})

		It("should deny an actor from another organisation", func() {
			outsider := identity.ActorContext{UserID: 77, Role: identity.RoleManager, OrganisationID: 2}
			scopes.scopes[77] = &hierarchy.UserScope{UserID: 77, OrganisationID: 2}

			Expect(engine.CanAccessGoal(outsider, access.ActionRead, 200, setterID)).To(BeFalse())
		})
	})

	Describe("CanUserReviewEntry", func() {
		It("should allow the admin role without assignments", func() {
			admin := identity.ActorContext{UserID: 99, Role: identity.RoleAdmin, OrganisationID: 1}

			Expect(engine.CanUserReviewEntry(admin, ownerID)).To(BeTrue())
		})

		It("should allow a manager assigned to the owner's team", func() {
			manager := identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: 1}
			scopes.scopes[2] = &hierarchy.UserScope{UserID: 2, ManagedTeams: []int64{10}}

			Expect(engine.CanUserReviewEntry(manager, ownerID)).To(BeTrue())
		})

		It("should deny a standard user even with a manager assignment", func() {
			standard := identity.ActorContext{UserID: 4, Role: identity.RoleUser, OrganisationID: 1}
			scopes.scopes[4] = &hierarchy.UserScope{UserID: 4, ManagedTeams: []int64{10}}

			Expect(engine.CanUserReviewEntry(standard, ownerID)).To(BeFalse())
		})

		It("should allow a partner through department partnership", func() {
			partner := identity.ActorContext{UserID: 3, Role: identity.RolePartner, OrganisationID: 1}
			scopes.scopes[3] = &hierarchy.UserScope{UserID: 3, PartneredDepartments: []int64{deptID}}

			Expect(engine.CanUserReviewEntry(partner, ownerID)).To(BeTrue())
		})
	})
})
