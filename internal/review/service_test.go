package review_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cpdtrack/cpd-management/internal/entry"
	"github.com/cpdtrack/cpd-management/internal/identity"
	"github.com/cpdtrack/cpd-management/internal/review"
)

func TestReview(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Review Suite")
}

// Mock repository for testing
type mockReviewRepository struct {
	applied        map[int64]string
	bulkError      error
	applyError     error
	pendingByUser  map[int64][]*entry.Entry
	pendingOrgList []*entry.Entry
}

func newMockReviewRepository() *mockReviewRepository {
	return &mockReviewRepository{
		applied:       make(map[int64]string),
		pendingByUser: make(map[int64][]*entry.Entry),
	}
}

func (m *mockReviewRepository) ApplyReview(entryID, reviewerID int64, status string, comments *string, at time.Time) error {
	if m.applyError != nil {
		return m.applyError
	}
	m.applied[entryID] = status
	return nil
}

func (m *mockReviewRepository) BulkApprove(entryIDs []int64, reviewerID int64, at time.Time) error {
	if m.bulkError != nil {
		return m.bulkError
	}
	for _, id := range entryIDs {
		m.applied[id] = entry.ReviewStatusApproved
	}
	return nil
}

func (m *mockReviewRepository) PendingForUsers(userIDs []int64, limit, offset int) ([]*entry.Entry, error) {
	var result []*entry.Entry
	for _, userID := range userIDs {
		result = append(result, m.pendingByUser[userID]...)
	}
	if result == nil {
		result = []*entry.Entry{}
	}
	return result, nil
}

func (m *mockReviewRepository) PendingForOrganisation(organisationID int64, limit, offset int) ([]*entry.Entry, error) {
	return m.pendingOrgList, nil
}

// Mock entry store for testing
type mockEntryStore struct {
	entries map[int64]*entry.Entry
}

func newMockEntryStore() *mockEntryStore {
	return &mockEntryStore{entries: make(map[int64]*entry.Entry)}
}

func (m *mockEntryStore) GetByID(id int64) (*entry.Entry, error) {
	e, exists := m.entries[id]
	if !exists {
		return nil, errors.New("entry not found")
	}
	return e, nil
}

// Mock eligibility for testing: eligible owners per reviewer id
type mockEligibility struct {
	eligibleOwners map[int64]map[int64]bool
}

func newMockEligibility() *mockEligibility {
	return &mockEligibility{eligibleOwners: make(map[int64]map[int64]bool)}
}

func (m *mockEligibility) allow(reviewerID, ownerID int64) {
	if m.eligibleOwners[reviewerID] == nil {
		m.eligibleOwners[reviewerID] = make(map[int64]bool)
	}
	m.eligibleOwners[reviewerID][ownerID] = true
}

func (m *mockEligibility) CanUserReviewEntry(reviewer identity.ActorContext, entryOwnerID int64) bool {
	if reviewer.Role == identity.RoleAdmin {
		return true
	}
	return m.eligibleOwners[reviewer.UserID][entryOwnerID]
}

// Mock scope resolver for testing
type mockScopeResolver struct {
	managedTeams         map[int64][]int64
	partneredTeams       map[int64][]int64
	partneredDepartments map[int64][]int64
	teamMembers          map[int64][]int64
	departmentMembers    map[int64][]int64
}

func newMockScopeResolver() *mockScopeResolver {
	return &mockScopeResolver{
		managedTeams:         make(map[int64][]int64),
		partneredTeams:       make(map[int64][]int64),
		partneredDepartments: make(map[int64][]int64),
		teamMembers:          make(map[int64][]int64),
		departmentMembers:    make(map[int64][]int64),
	}
}

func (m *mockScopeResolver) ManagedTeamIDs(userID int64) ([]int64, error) {
	return m.managedTeams[userID], nil
}

func (m *mockScopeResolver) PartneredTeamIDs(userID int64) ([]int64, error) {
	return m.partneredTeams[userID], nil
}

func (m *mockScopeResolver) PartneredDepartmentIDs(userID int64) ([]int64, error) {
	return m.partneredDepartments[userID], nil
}

func (m *mockScopeResolver) TeamMembers(teamID int64) ([]int64, error) {
	return m.teamMembers[teamID], nil
}

func (m *mockScopeResolver) DepartmentMembers(departmentID int64) ([]int64, error) {
	return m.departmentMembers[departmentID], nil
}

var _ = Describe("ReviewService", func() {
	var (
		reviewService *review.Service
		mockRepo      *mockReviewRepository
		entryStore    *mockEntryStore
		eligibility   *mockEligibility
		scopes        *mockScopeResolver
		logger        *slog.Logger
		manager       identity.ActorContext
	)

	BeforeEach(func() {
		mockRepo = newMockReviewRepository()
		entryStore = newMockEntryStore()
		eligibility = newMockEligibility()
		scopes = newMockScopeResolver()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		reviewService = review.NewService(mockRepo, entryStore, eligibility, scopes, logger)

		manager = identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: 1}
	})

	addEntry := func(id, ownerID int64) *entry.Entry {
		e := &entry.Entry{ID: id, UserID: ownerID, ReviewStatus: entry.ReviewStatusPending}
		entryStore.entries[id] = e
		return e
	}

	Describe("ReviewEntry", func() {
		Context("when the reviewer is eligible", func() {
			It("should apply the decision and report it as applied", func() {
				addEntry(100, 5)
				eligibility.allow(manager.UserID, 5)

				applied, err := reviewService.ReviewEntry(manager, 100, review.ReviewDTO{Status: entry.ReviewStatusApproved})

				Expect(err).ToNot(HaveOccurred())
				Expect(applied).To(BeTrue())
				Expect(mockRepo.applied[100]).To(Equal(entry.ReviewStatusApproved))
			})

			It("should overwrite a previous decision", func() {
				addEntry(100, 5)
				eligibility.allow(manager.UserID, 5)

				_, err := reviewService.ReviewEntry(manager, 100, review.ReviewDTO{Status: entry.ReviewStatusApproved})
				Expect(err).ToNot(HaveOccurred())

				applied, err := reviewService.ReviewEntry(manager, 100, review.ReviewDTO{Status: entry.ReviewStatusRejected})

				Expect(err).ToNot(HaveOccurred())
				Expect(applied).To(BeTrue())
				Expect(mockRepo.applied[100]).To(Equal(entry.ReviewStatusRejected))
			})
		})

		Context("when the reviewer is not eligible", func() {
			It("should report not applied without an error", func() {
				addEntry(100, 5)

				applied, err := reviewService.ReviewEntry(manager, 100, review.ReviewDTO{Status: entry.ReviewStatusApproved})

				Expect(err).ToNot(HaveOccurred())
				Expect(applied).To(BeFalse())
				Expect(mockRepo.applied).To(BeEmpty())
			})
		})

		Context("when the status is not a review outcome", func() {
			It("should return a validation error", func() {
				addEntry(100, 5)
				eligibility.allow(manager.UserID, 5)

				_, err := reviewService.ReviewEntry(manager, 100, review.ReviewDTO{Status: "pending"})

				Expect(err).To(HaveOccurred())
			})
		})

		Context("when the entry does not exist", func() {
			It("should return not found", func() {
				_, err := reviewService.ReviewEntry(manager, 404, review.ReviewDTO{Status: entry.ReviewStatusApproved})

				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("BulkApprove", func() {
		It("should approve eligible entries and skip the rest", func() {
			addEntry(1, 5)
			addEntry(2, 6)
			eligibility.allow(manager.UserID, 5)

			result, err := reviewService.BulkApprove(manager, []int64{1, 2})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.ApprovedIDs).To(Equal([]int64{1}))
			Expect(result.SkippedIDs).To(Equal([]int64{2}))
			Expect(mockRepo.applied).To(HaveKey(int64(1)))
			Expect(mockRepo.applied).ToNot(HaveKey(int64(2)))
		})

		It("should skip ids that do not resolve to entries", func() {
			addEntry(1, 5)
			eligibility.allow(manager.UserID, 5)

			result, err := reviewService.BulkApprove(manager, []int64{1, 404})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.ApprovedIDs).To(Equal([]int64{1}))
			Expect(result.SkippedIDs).To(Equal([]int64{404}))
		})

		It("should not touch storage when nothing is eligible", func() {
			addEntry(1, 5)

			result, err := reviewService.BulkApprove(manager, []int64{1})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.ApprovedIDs).To(BeEmpty())
			Expect(result.SkippedIDs).To(Equal([]int64{1}))
			Expect(mockRepo.applied).To(BeEmpty())
		})

		It("should approve nothing when the transaction fails", func() {
			addEntry(1, 5)
			addEntry(2, 6)
			eligibility.allow(manager.UserID, 5)
			eligibility.allow(manager.UserID, 6)
			mockRepo.bulkError = errors.New("deadlock")

			result, err := reviewService.BulkApprove(manager, []int64{1, 2})

			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())
			Expect(mockRepo.applied).To(BeEmpty())
		})
	})

	Describe("PendingReviews", func() {
		It("should give admins the organisation-wide queue", func() {
			admin := identity.ActorContext{UserID: 9, Role: identity.RoleAdmin, OrganisationID: 1}
			mockRepo.pendingOrgList = []*entry.Entry{{ID: 1}, {ID: 2}}

			entries, err := reviewService.PendingReviews(admin, 50, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(2))
		})

		It("should give a manager the members of their managed teams, excluding themselves", func() {
			scopes.managedTeams[manager.UserID] = []int64{10}
			scopes.teamMembers[10] = []int64{manager.UserID, 5, 6}
			mockRepo.pendingByUser[5] = []*entry.Entry{{ID: 1, UserID: 5}}
			mockRepo.pendingByUser[6] = []*entry.Entry{{ID: 2, UserID: 6}}
			mockRepo.pendingByUser[manager.UserID] = []*entry.Entry{{ID: 3, UserID: manager.UserID}}

			entries, err := reviewService.PendingReviews(manager, 50, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			for _, e := range entries {
				Expect(e.UserID).ToNot(Equal(manager.UserID))
			}
		})

		It("should include partnered departments for the partner role", func() {
			partner := identity.ActorContext{UserID: 3, Role: identity.RolePartner, OrganisationID: 1}
			scopes.partneredDepartments[partner.UserID] = []int64{4}
			scopes.departmentMembers[4] = []int64{7}
			mockRepo.pendingByUser[7] = []*entry.Entry{{ID: 5, UserID: 7}}

			entries, err := reviewService.PendingReviews(partner, 50, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("should return an empty queue for the standard user role", func() {
			standard := identity.ActorContext{UserID: 4, Role: identity.RoleUser, OrganisationID: 1}

			entries, err := reviewService.PendingReviews(standard, 50, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})
})
