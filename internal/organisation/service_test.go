package organisation_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cpdtrack/cpd-management/internal/access"
	"github.com/cpdtrack/cpd-management/internal/core/events"
	"github.com/cpdtrack/cpd-management/internal/identity"
	"github.com/cpdtrack/cpd-management/internal/organisation"
)

func TestOrganisation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Organisation Suite")
}

// Mock repository for testing
type mockOrganisationRepository struct {
	organisations map[int64]*organisation.Organisation
	departments   map[int64]*organisation.Department
	teams         map[int64]*organisation.Team
	memberships   map[string]bool
	activeUsers   map[int64]int64
	removedPairs  []string
	nextID        int64
}

func newMockOrganisationRepository() *mockOrganisationRepository {
	return &mockOrganisationRepository{
		organisations: make(map[int64]*organisation.Organisation),
		departments:   make(map[int64]*organisation.Department),
		teams:         make(map[int64]*organisation.Team),
		memberships:   make(map[string]bool),
		activeUsers:   make(map[int64]int64),
		nextID:        1,
	}
}

func membershipKey(userID, teamID int64) string {
	return fmt.Sprintf("%d:%d", userID, teamID)
}

func (m *mockOrganisationRepository) CreateOrganisation(o *organisation.Organisation) error {
	o.ID = m.nextID
	m.nextID++
	m.organisations[o.ID] = o
	return nil
}

func (m *mockOrganisationRepository) GetOrganisation(id int64) (*organisation.Organisation, error) {
	o, exists := m.organisations[id]
	if !exists {
		return nil, errors.New("organisation not found")
	}
	return o, nil
}

func (m *mockOrganisationRepository) UpdateOrganisation(o *organisation.Organisation) error {
	m.organisations[o.ID] = o
	return nil
}

func (m *mockOrganisationRepository) DeleteOrganisationCascade(id int64) error {
	delete(m.organisations, id)
	return nil
}

func (m *mockOrganisationRepository) CountActiveUsers(organisationID int64) (int64, error) {
	return m.activeUsers[organisationID], nil
}

func (m *mockOrganisationRepository) CreateDepartment(d *organisation.Department) error {
	d.ID = m.nextID
	m.nextID++
	m.departments[d.ID] = d
	return nil
}

func (m *mockOrganisationRepository) GetDepartment(id int64) (*organisation.Department, error) {
	d, exists := m.departments[id]
	if !exists {
		return nil, errors.New("department not found")
	}
	return d, nil
}

func (m *mockOrganisationRepository) ListDepartments(organisationID int64) ([]*organisation.Department, error) {
	var result []*organisation.Department
	for _, d := range m.departments {
		if d.OrganisationID == organisationID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockOrganisationRepository) UpdateDepartment(d *organisation.Department) error {
	m.departments[d.ID] = d
	return nil
}

func (m *mockOrganisationRepository) DeleteDepartmentCascade(id int64) error {
	delete(m.departments, id)
	return nil
}

func (m *mockOrganisationRepository) CreateTeam(t *organisation.Team) error {
	t.ID = m.nextID
	m.nextID++
	m.teams[t.ID] = t
	return nil
}

func (m *mockOrganisationRepository) GetTeam(id int64) (*organisation.Team, error) {
	t, exists := m.teams[id]
	if !exists {
		return nil, errors.New("team not found")
	}
	return t, nil
}

func (m *mockOrganisationRepository) ListTeams(departmentID int64) ([]*organisation.Team, error) {
	var result []*organisation.Team
	for _, t := range m.teams {
		if t.DepartmentID != nil && *t.DepartmentID == departmentID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockOrganisationRepository) UpdateTeam(t *organisation.Team) error {
	m.teams[t.ID] = t
	return nil
}

func (m *mockOrganisationRepository) DeleteTeamCascade(id int64) error {
	delete(m.teams, id)
	return nil
}

func (m *mockOrganisationRepository) AddUserToTeam(userID, teamID int64) (bool, error) {
	key := membershipKey(userID, teamID)
	if m.memberships[key] {
		return false, nil
	}
	m.memberships[key] = true
	return true, nil
}

func (m *mockOrganisationRepository) RemoveUserFromTeam(userID, teamID int64) error {
	delete(m.memberships, membershipKey(userID, teamID))
	m.removedPairs = append(m.removedPairs, membershipKey(userID, teamID))
	return nil
}

func (m *mockOrganisationRepository) AddTeamManager(teamID, userID int64) (bool, error) {
	return true, nil
}

func (m *mockOrganisationRepository) RemoveTeamManager(teamID, userID int64) error {
	return nil
}

func (m *mockOrganisationRepository) AddTeamPartner(teamID, userID int64) (bool, error) {
	return true, nil
}

func (m *mockOrganisationRepository) RemoveTeamPartner(teamID, userID int64) error {
	return nil
}

func (m *mockOrganisationRepository) AddDepartmentPartner(departmentID, userID int64) (bool, error) {
	return true, nil
}

func (m *mockOrganisationRepository) RemoveDepartmentPartner(departmentID, userID int64) error {
	return nil
}

func (m *mockOrganisationRepository) AddOrganisationAdmin(organisationID, userID int64) (bool, error) {
	return true, nil
}

func (m *mockOrganisationRepository) RemoveOrganisationAdmin(organisationID, userID int64) error {
	return nil
}

// Mock authorizer for testing: global admins always pass, others only for
// organisations explicitly allowed
type mockOrgAuthorizer struct {
	allowedOrgs map[int64]bool
}

func (m *mockOrgAuthorizer) CanAccess(actor identity.ActorContext, action access.Action, resource access.Resource) bool {
	if actor.Role == identity.RoleAdmin {
		return true
	}
	return m.allowedOrgs[resource.OrganisationID]
}

// Mock goal locator for testing
type mockGoalLocator struct {
	goalIDs []int64
}

func (m *mockGoalLocator) ActiveGoalIDsForUser(userID int64) ([]int64, error) {
	return m.goalIDs, nil
}

// Mock publisher for testing
type mockPublisher struct {
	published []events.Event
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.published = append(m.published, event)
	return nil
}

var _ = Describe("OrganisationService", func() {
	var (
		organisationService *organisation.Service
		mockRepo            *mockOrganisationRepository
		authorizer          *mockOrgAuthorizer
		goals               *mockGoalLocator
		publisher           *mockPublisher
		logger              *slog.Logger
		admin               identity.ActorContext
	)

	BeforeEach(func() {
		mockRepo = newMockOrganisationRepository()
		authorizer = &mockOrgAuthorizer{allowedOrgs: make(map[int64]bool)}
		goals = &mockGoalLocator{}
		publisher = &mockPublisher{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		organisationService = organisation.NewService(mockRepo, authorizer, goals, publisher, logger)

		admin = identity.ActorContext{UserID: 1, Role: identity.RoleAdmin, OrganisationID: 1}
	})

	Describe("CreateOrganisation", func() {
		It("should provision a trial tenant with a trial end date", func() {
			result, err := organisationService.CreateOrganisation(organisation.CreateOrganisationDTO{
				Name:             "Acme",
				SubscriptionPlan: "starter",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.SubscriptionStatus).To(Equal(organisation.SubscriptionTrial))
			Expect(result.TrialEndsAt).ToNot(BeNil())
			Expect(result.MaxUsers).To(Equal(organisation.DefaultMaxUsers))
		})
	})

	Describe("HasReachedUserLimit", func() {
		var org *organisation.Organisation

		BeforeEach(func() {
			var err error
			org, err = organisationService.CreateOrganisation(organisation.CreateOrganisationDTO{
				Name:             "Acme",
				SubscriptionPlan: "starter",
				MaxUsers:         3,
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should report false while seats remain", func() {
			mockRepo.activeUsers[org.ID] = 2

			reached, err := organisationService.HasReachedUserLimit(org.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(reached).To(BeFalse())
		})

		It("should report true at the cap", func() {
			mockRepo.activeUsers[org.ID] = 3

			reached, err := organisationService.HasReachedUserLimit(org.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(reached).To(BeTrue())
		})

		It("should treat a non-positive cap as unlimited", func() {
			org.MaxUsers = 0
			mockRepo.activeUsers[org.ID] = 9999

			reached, err := organisationService.HasReachedUserLimit(org.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(reached).To(BeFalse())
		})
	})

	Describe("DeleteOrganisation", func() {
		var org *organisation.Organisation

		BeforeEach(func() {
			var err error
			org, err = organisationService.CreateOrganisation(organisation.CreateOrganisationDTO{
				Name:             "Acme",
				SubscriptionPlan: "starter",
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should allow a global admin", func() {
			Expect(organisationService.DeleteOrganisation(admin, org.ID)).To(Succeed())

			_, err := mockRepo.GetOrganisation(org.ID)
			Expect(err).To(HaveOccurred())
		})

		It("should deny everyone else regardless of assignments", func() {
			manager := identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: org.ID}
			authorizer.allowedOrgs[org.ID] = true

			err := organisationService.DeleteOrganisation(manager, org.ID)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("AddUserToTeam", func() {
		var (
			department *organisation.Department
			team       *organisation.Team
		)

		BeforeEach(func() {
			org, err := organisationService.CreateOrganisation(organisation.CreateOrganisationDTO{
				Name:             "Acme",
				SubscriptionPlan: "starter",
			})
			Expect(err).ToNot(HaveOccurred())

			department, err = organisationService.CreateDepartment(admin, organisation.CreateDepartmentDTO{
				OrganisationID: org.ID,
				Name:           "Engineering",
			})
			Expect(err).ToNot(HaveOccurred())

			team, err = organisationService.CreateTeam(admin, organisation.CreateTeamDTO{
				DepartmentID: &department.ID,
				Name:         "Platform",
			})
			Expect(err).ToNot(HaveOccurred())
			publisher.published = nil
		})

		It("should add the member and publish a scope change", func() {
			added, err := organisationService.AddUserToTeam(admin, team.ID, 7)

			Expect(err).ToNot(HaveOccurred())
			Expect(added).To(BeTrue())
			Expect(publisher.published).To(HaveLen(1))
			Expect(publisher.published[0].EventType()).To(Equal(events.EntryChangedEvent))
		})

		It("should publish nothing for a duplicate membership", func() {
			_, err := organisationService.AddUserToTeam(admin, team.ID, 7)
			Expect(err).ToNot(HaveOccurred())
			publisher.published = nil

			added, err := organisationService.AddUserToTeam(admin, team.ID, 7)

			Expect(err).ToNot(HaveOccurred())
			Expect(added).To(BeFalse())
			Expect(publisher.published).To(BeEmpty())
		})

		It("should deny an actor without admin standing over the organisation", func() {
			manager := identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: department.OrganisationID}

			_, err := organisationService.AddUserToTeam(manager, team.ID, 7)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RemoveUserFromTeam", func() {
		var team *organisation.Team

		BeforeEach(func() {
			org, err := organisationService.CreateOrganisation(organisation.CreateOrganisationDTO{
				Name:             "Acme",
				SubscriptionPlan: "starter",
			})
			Expect(err).ToNot(HaveOccurred())

			department, err := organisationService.CreateDepartment(admin, organisation.CreateDepartmentDTO{
				OrganisationID: org.ID,
				Name:           "Engineering",
			})
			Expect(err).ToNot(HaveOccurred())

			team, err = organisationService.CreateTeam(admin, organisation.CreateTeamDTO{
				DepartmentID: &department.ID,
				Name:         "Platform",
			})
			Expect(err).ToNot(HaveOccurred())

			_, err = organisationService.AddUserToTeam(admin, team.ID, 7)
			Expect(err).ToNot(HaveOccurred())
			publisher.published = nil
		})

		It("should trigger a recompute for every goal covering the user", func() {
			goals.goalIDs = []int64{100, 101}

			Expect(organisationService.RemoveUserFromTeam(admin, team.ID, 7)).To(Succeed())

			Expect(publisher.published).To(HaveLen(2))
			Expect(publisher.published[0].EventType()).To(Equal(events.GoalUpdatedEvent))
		})
	})

	Describe("GetTeam", func() {
		var (
			org  *organisation.Organisation
			team *organisation.Team
		)

		BeforeEach(func() {
			var err error
			org, err = organisationService.CreateOrganisation(organisation.CreateOrganisationDTO{
				Name:             "Acme",
				SubscriptionPlan: "starter",
			})
			Expect(err).ToNot(HaveOccurred())

			department, err := organisationService.CreateDepartment(admin, organisation.CreateDepartmentDTO{
				OrganisationID: org.ID,
				Name:           "Engineering",
			})
			Expect(err).ToNot(HaveOccurred())

			team, err = organisationService.CreateTeam(admin, organisation.CreateTeamDTO{
				DepartmentID: &department.ID,
				Name:         "Platform",
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should allow a member of the owning organisation", func() {
			member := identity.ActorContext{UserID: 7, Role: identity.RoleUser, OrganisationID: org.ID}

			result, err := organisationService.GetTeam(member, team.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.ID).To(Equal(team.ID))
		})

		It("should deny an actor from another organisation", func() {
			outsider := identity.ActorContext{UserID: 7, Role: identity.RoleUser, OrganisationID: org.ID + 1}

			_, err := organisationService.GetTeam(outsider, team.ID)

			Expect(err).To(HaveOccurred())
		})

		It("should show an unattached team only to a global admin", func() {
			floating, err := organisationService.CreateTeam(admin, organisation.CreateTeamDTO{Name: "Floaters"})
			Expect(err).ToNot(HaveOccurred())

			_, err = organisationService.GetTeam(admin, floating.ID)
			Expect(err).ToNot(HaveOccurred())

			member := identity.ActorContext{UserID: 7, Role: identity.RoleUser, OrganisationID: org.ID}
			_, err = organisationService.GetTeam(member, floating.ID)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ListTeams", func() {
		var (
			org        *organisation.Organisation
			department *organisation.Department
		)

		BeforeEach(func() {
			var err error
			org, err = organisationService.CreateOrganisation(organisation.CreateOrganisationDTO{
				Name:             "Acme",
				SubscriptionPlan: "starter",
			})
			Expect(err).ToNot(HaveOccurred())

			department, err = organisationService.CreateDepartment(admin, organisation.CreateDepartmentDTO{
				OrganisationID: org.ID,
				Name:           "Engineering",
			})
			Expect(err).ToNot(HaveOccurred())

			_, err = organisationService.CreateTeam(admin, organisation.CreateTeamDTO{
				DepartmentID: &department.ID,
				Name:         "Platform",
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should allow a member of the owning organisation", func() {
			member := identity.ActorContext{UserID: 7, Role: identity.RoleUser, OrganisationID: org.ID}

			teams, err := organisationService.ListTeams(member, department.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(teams).To(HaveLen(1))
		})

		It("should deny an actor from another organisation", func() {
			outsider := identity.ActorContext{UserID: 7, Role: identity.RoleUser, OrganisationID: org.ID + 1}

			_, err := organisationService.ListTeams(outsider, department.ID)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("CreateTeam", func() {
		It("should allow a team without a department for a global admin", func() {
			team, err := organisationService.CreateTeam(admin, organisation.CreateTeamDTO{Name: "Floaters"})

			Expect(err).ToNot(HaveOccurred())
			Expect(team.DepartmentID).To(BeNil())
		})

		It("should gate an unattached team on the actor's own organisation", func() {
			manager := identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: 1}

			_, err := organisationService.CreateTeam(manager, organisation.CreateTeamDTO{Name: "Floaters"})

			Expect(err).To(HaveOccurred())
		})
	})
})
