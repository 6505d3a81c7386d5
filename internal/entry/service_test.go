package entry_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cpdtrack/cpd-management/internal/access"
	"github.com/cpdtrack/cpd-management/internal/core/events"
	"github.com/cpdtrack/cpd-management/internal/entry"
	"github.com/cpdtrack/cpd-management/internal/identity"
)

func TestEntry(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Entry Suite")
}

// Mock repository for testing
type mockEntryRepository struct {
	entries     map[int64]*entry.Entry
	byUser      map[int64][]*entry.Entry
	createError error
	nextID      int64
}

func newMockEntryRepository() *mockEntryRepository {
	return &mockEntryRepository{
		entries: make(map[int64]*entry.Entry),
		byUser:  make(map[int64][]*entry.Entry),
		nextID:  1,
	}
}

func (m *mockEntryRepository) Create(e *entry.Entry) error {
	if m.createError != nil {
		return m.createError
	}
	e.ID = m.nextID
	m.nextID++
	m.entries[e.ID] = e
	m.byUser[e.UserID] = append(m.byUser[e.UserID], e)
	return nil
}

func (m *mockEntryRepository) GetByID(id int64) (*entry.Entry, error) {
	e, exists := m.entries[id]
	if !exists {
		return nil, errors.New("entry not found")
	}
	return e, nil
}

func (m *mockEntryRepository) GetByUserID(userID int64, limit, offset int) ([]*entry.Entry, error) {
	entries := m.byUser[userID]
	if entries == nil {
		return []*entry.Entry{}, nil
	}
	return entries, nil
}

func (m *mockEntryRepository) GetPendingForUsers(userIDs []int64, limit, offset int) ([]*entry.Entry, error) {
	return []*entry.Entry{}, nil
}

func (m *mockEntryRepository) Update(e *entry.Entry) error {
	m.entries[e.ID] = e
	return nil
}

func (m *mockEntryRepository) Delete(id int64) error {
	if e, exists := m.entries[id]; exists {
		delete(m.entries, id)
		filtered := m.byUser[e.UserID][:0]
		for _, candidate := range m.byUser[e.UserID] {
			if candidate.ID != id {
				filtered = append(filtered, candidate)
			}
		}
		m.byUser[e.UserID] = filtered
	}
	return nil
}

// Mock authorizer for testing: owners plus explicitly allowed actors
type mockEntryAuthorizer struct {
	allowed map[int64]bool
}

func newMockEntryAuthorizer() *mockEntryAuthorizer {
	return &mockEntryAuthorizer{allowed: make(map[int64]bool)}
}

func (m *mockEntryAuthorizer) CanAccessEntry(actor identity.ActorContext, action access.Action, entryID, ownerID int64) bool {
	if actor.UserID == ownerID && action != access.ActionReview {
		return true
	}
	return m.allowed[actor.UserID]
}

// Mock publisher for testing
type mockPublisher struct {
	published []events.Event
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.published = append(m.published, event)
	return nil
}

var _ = Describe("EntryService", func() {
	var (
		entryService *entry.Service
		mockRepo     *mockEntryRepository
		authorizer   *mockEntryAuthorizer
		publisher    *mockPublisher
		logger       *slog.Logger
		owner        identity.ActorContext
	)

	BeforeEach(func() {
		mockRepo = newMockEntryRepository()
		authorizer = newMockEntryAuthorizer()
		publisher = &mockPublisher{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		entryService = entry.NewService(mockRepo, authorizer, publisher, logger)

		owner = identity.ActorContext{UserID: 5, Role: identity.RoleUser, OrganisationID: 1}
	})

	validDTO := func() entry.CreateEntryDTO {
		return entry.CreateEntryDTO{
			Title:         "Security workshop",
			DateCompleted: time.Now().AddDate(0, 0, -1),
			Hours:         3.5,
			Category:      "Training",
		}
	}

	Describe("CreateEntry", func() {
		It("should create a pending entry owned by the actor", func() {
			result, err := entryService.CreateEntry(owner, validDTO())

			Expect(err).ToNot(HaveOccurred())
			Expect(result.UserID).To(Equal(owner.UserID))
			Expect(result.ReviewStatus).To(Equal(entry.ReviewStatusPending))
		})

		It("should publish an entry change for goal recompute", func() {
			result, err := entryService.CreateEntry(owner, validDTO())

			Expect(err).ToNot(HaveOccurred())
			Expect(publisher.published).To(HaveLen(1))
			Expect(publisher.published[0].EventType()).To(Equal(events.EntryChangedEvent))
			ownerID, ok := events.EntryOwnerID(publisher.published[0])
			Expect(ok).To(BeTrue())
			Expect(ownerID).To(Equal(result.UserID))
		})

		It("should reject a future completion date", func() {
			dto := validDTO()
			dto.DateCompleted = time.Now().AddDate(0, 0, 2)

			_, err := entryService.CreateEntry(owner, dto)

			Expect(err).To(HaveOccurred())
		})

		It("should accept any positive fraction of an hour", func() {
			dto := validDTO()
			dto.Hours = 0.1

			result, err := entryService.CreateEntry(owner, dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Hours).To(Equal(0.1))
		})

		It("should reject zero hours", func() {
			dto := validDTO()
			dto.Hours = 0

			_, err := entryService.CreateEntry(owner, dto)

			Expect(err).To(HaveOccurred())
		})

		It("should reject negative hours", func() {
			dto := validDTO()
			dto.Hours = -1

			_, err := entryService.CreateEntry(owner, dto)

			Expect(err).To(HaveOccurred())
		})

		It("should reject hours above the per-entry cap", func() {
			dto := validDTO()
			dto.Hours = 101

			_, err := entryService.CreateEntry(owner, dto)

			Expect(err).To(HaveOccurred())
		})

		It("should reject a category outside the set", func() {
			dto := validDTO()
			dto.Category = "Gardening"

			_, err := entryService.CreateEntry(owner, dto)

			Expect(err).To(HaveOccurred())
		})

		It("should reject an unsupported document extension", func() {
			doc := "evidence.exe"
			dto := validDTO()
			dto.SupportingDoc = &doc

			_, err := entryService.CreateEntry(owner, dto)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateEntry", func() {
		var existing *entry.Entry

		BeforeEach(func() {
			var err error
			existing, err = entryService.CreateEntry(owner, validDTO())
			Expect(err).ToNot(HaveOccurred())
			publisher.published = nil
		})

		It("should reset the review outcome after an owner edit", func() {
			reviewer := int64(2)
			existing.ReviewStatus = entry.ReviewStatusApproved
			existing.ReviewedBy = &reviewer

			hours := 4.0
			result, err := entryService.UpdateEntry(owner, existing.ID, entry.UpdateEntryDTO{Hours: &hours})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.ReviewStatus).To(Equal(entry.ReviewStatusPending))
			Expect(result.ReviewedBy).To(BeNil())
			Expect(result.Hours).To(Equal(4.0))
		})

		It("should publish an entry change", func() {
			hours := 4.0
			_, err := entryService.UpdateEntry(owner, existing.ID, entry.UpdateEntryDTO{Hours: &hours})

			Expect(err).ToNot(HaveOccurred())
			Expect(publisher.published).To(HaveLen(1))
		})

		It("should deny an actor outside the owner's scope", func() {
			other := identity.ActorContext{UserID: 9, Role: identity.RoleUser, OrganisationID: 1}
			hours := 4.0

			_, err := entryService.UpdateEntry(other, existing.ID, entry.UpdateEntryDTO{Hours: &hours})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetUserEntries", func() {
		BeforeEach(func() {
			_, err := entryService.CreateEntry(owner, validDTO())
			Expect(err).ToNot(HaveOccurred())
		})

		It("should always allow the owner", func() {
			entries, err := entryService.GetUserEntries(owner, owner.UserID, 50, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("should allow an actor whose scope covers the owner", func() {
			manager := identity.ActorContext{UserID: 2, Role: identity.RoleManager, OrganisationID: 1}
			authorizer.allowed[manager.UserID] = true

			entries, err := entryService.GetUserEntries(manager, owner.UserID, 50, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("should deny anyone else", func() {
			other := identity.ActorContext{UserID: 9, Role: identity.RoleUser, OrganisationID: 1}

			_, err := entryService.GetUserEntries(other, owner.UserID, 50, 0)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DeleteEntry", func() {
		var existing *entry.Entry

		BeforeEach(func() {
			var err error
			existing, err = entryService.CreateEntry(owner, validDTO())
			Expect(err).ToNot(HaveOccurred())
			publisher.published = nil
		})

		It("should delete and publish an entry change", func() {
			Expect(entryService.DeleteEntry(owner, existing.ID)).To(Succeed())
			Expect(publisher.published).To(HaveLen(1))

			_, err := entryService.GetEntry(owner, existing.ID)
			Expect(err).To(HaveOccurred())
		})
	})
})
