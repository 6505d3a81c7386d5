package hierarchy_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cpdtrack/cpd-management/internal/hierarchy"
)

func TestHierarchy(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Hierarchy Suite")
}

// Mock repository for testing
type mockHierarchyRepository struct {
	organisations        map[int64]int64
	memberTeams          map[int64][]hierarchy.TeamRef
	managedTeams         map[int64][]int64
	partneredTeams       map[int64][]int64
	partneredDepartments map[int64][]int64
	orgAdmins            map[int64]int64
	teamMembers          map[int64][]int64
	departmentTeams      map[int64][]int64
	orgError             error
	memberError          error
}

func newMockHierarchyRepository() *mockHierarchyRepository {
	return &mockHierarchyRepository{
		organisations:        make(map[int64]int64),
		memberTeams:          make(map[int64][]hierarchy.TeamRef),
		managedTeams:         make(map[int64][]int64),
		partneredTeams:       make(map[int64][]int64),
		partneredDepartments: make(map[int64][]int64),
		orgAdmins:            make(map[int64]int64),
		teamMembers:          make(map[int64][]int64),
		departmentTeams:      make(map[int64][]int64),
	}
}

func (m *mockHierarchyRepository) UserOrganisation(userID int64) (int64, error) {
	if m.orgError != nil {
		return 0, m.orgError
	}
	orgID, exists := m.organisations[userID]
	if !exists {
		return 0, errors.New("user not found")
	}
	return orgID, nil
}

func (m *mockHierarchyRepository) MemberTeams(userID int64) ([]hierarchy.TeamRef, error) {
	if m.memberError != nil {
		return nil, m.memberError
	}
	return m.memberTeams[userID], nil
}

func (m *mockHierarchyRepository) ManagedTeamIDs(userID int64) ([]int64, error) {
	return m.managedTeams[userID], nil
}

func (m *mockHierarchyRepository) PartneredTeamIDs(userID int64) ([]int64, error) {
	return m.partneredTeams[userID], nil
}

func (m *mockHierarchyRepository) PartneredDepartmentIDs(userID int64) ([]int64, error) {
	return m.partneredDepartments[userID], nil
}

func (m *mockHierarchyRepository) IsOrganisationAdmin(userID, organisationID int64) (bool, error) {
	return m.orgAdmins[userID] == organisationID, nil
}

func (m *mockHierarchyRepository) TeamMemberIDs(teamID int64) ([]int64, error) {
	return m.teamMembers[teamID], nil
}

func (m *mockHierarchyRepository) TeamDepartment(teamID int64) (*int64, error) {
	return nil, nil
}

func (m *mockHierarchyRepository) TeamManagerIDs(teamID int64) ([]int64, error) {
	return nil, nil
}

func (m *mockHierarchyRepository) TeamPartnerIDs(teamID int64) ([]int64, error) {
	return nil, nil
}

func (m *mockHierarchyRepository) DepartmentTeamIDs(departmentID int64) ([]int64, error) {
	return m.departmentTeams[departmentID], nil
}

func (m *mockHierarchyRepository) DepartmentPartnerIDs(departmentID int64) ([]int64, error) {
	return nil, nil
}

var _ = Describe("HierarchyService", func() {
	var (
		hierarchyService *hierarchy.Service
		mockRepo         *mockHierarchyRepository
		logger           *slog.Logger
	)

	BeforeEach(func() {
		mockRepo = newMockHierarchyRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		hierarchyService = hierarchy.NewService(mockRepo, logger)
	})

	Describe("ResolveUserScope", func() {
		It("should assemble every assignment set for the user", func() {
			dept := int64(3)
			mockRepo.organisations[7] = 1
			mockRepo.memberTeams[7] = []hierarchy.TeamRef{{TeamID: 10, DepartmentID: &dept}}
			mockRepo.managedTeams[7] = []int64{11}
			mockRepo.partneredTeams[7] = []int64{12}
			mockRepo.partneredDepartments[7] = []int64{4}

			scope, err := hierarchyService.ResolveUserScope(7)

			Expect(err).ToNot(HaveOccurred())
			Expect(scope.OrganisationID).To(Equal(int64(1)))
			Expect(scope.TeamIDs()).To(Equal([]int64{10}))
			Expect(scope.ManagedTeams).To(Equal([]int64{11}))
			Expect(scope.PartneredTeams).To(Equal([]int64{12}))
			Expect(scope.PartneredDepartments).To(Equal([]int64{4}))
		})

		It("should return empty sets for a user with no assignments", func() {
			mockRepo.organisations[7] = 1

			scope, err := hierarchyService.ResolveUserScope(7)

			Expect(err).ToNot(HaveOccurred())
			Expect(scope.Teams).To(BeEmpty())
			Expect(scope.ManagedTeams).To(BeEmpty())
			Expect(scope.PartneredTeams).To(BeEmpty())
			Expect(scope.PartneredDepartments).To(BeEmpty())
		})

		It("should fail when the organisation lookup fails", func() {
			mockRepo.orgError = errors.New("connection reset")

			_, err := hierarchyService.ResolveUserScope(7)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DepartmentMembers", func() {
		It("should deduplicate members shared between teams", func() {
			mockRepo.departmentTeams[3] = []int64{10, 11}
			mockRepo.teamMembers[10] = []int64{1, 2}
			mockRepo.teamMembers[11] = []int64{2, 3}

			members, err := hierarchyService.DepartmentMembers(3)

			Expect(err).ToNot(HaveOccurred())
			Expect(members).To(Equal([]int64{1, 2, 3}))
		})

		It("should return no members for a department without teams", func() {
			members, err := hierarchyService.DepartmentMembers(99)

			Expect(err).ToNot(HaveOccurred())
			Expect(members).To(BeEmpty())
		})
	})

	Describe("UserScope", func() {
		It("should deduplicate owning departments across member teams", func() {
			dept := int64(3)
			scope := &hierarchy.UserScope{
				Teams: []hierarchy.TeamRef{
					{TeamID: 10, DepartmentID: &dept},
					{TeamID: 11, DepartmentID: &dept},
					{TeamID: 12},
				},
			}

			Expect(scope.MemberDepartmentIDs()).To(Equal([]int64{3}))
		})

		It("should answer membership checks from the member teams", func() {
			dept := int64(3)
			scope := &hierarchy.UserScope{
				Teams: []hierarchy.TeamRef{
					{TeamID: 10, DepartmentID: &dept},
					{TeamID: 12},
				},
			}

			Expect(scope.MemberOfTeam(10)).To(BeTrue())
			Expect(scope.MemberOfTeam(12)).To(BeTrue())
			Expect(scope.MemberOfTeam(11)).To(BeFalse())
			Expect(scope.InDepartment(3)).To(BeTrue())
			Expect(scope.InDepartment(4)).To(BeFalse())
		})

		It("should answer containment checks from the assignment sets", func() {
			scope := &hierarchy.UserScope{
				ManagedTeams:         []int64{10},
				PartneredTeams:       []int64{11},
				PartneredDepartments: []int64{3},
			}

			Expect(scope.Manages(10)).To(BeTrue())
			Expect(scope.Manages(11)).To(BeFalse())
			Expect(scope.PartnersTeam(11)).To(BeTrue())
			Expect(scope.PartnersDepartment(3)).To(BeTrue())
			Expect(scope.PartnersDepartment(4)).To(BeFalse())
		})
	})
})
