package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	entryDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/entry"
	"github.com/cpdtrack/cpd-management/internal/entry"
)

func TestEntryRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "EntryRepository Suite")
}

var _ = Describe("EntryRepository", func() {
	var (
		db   *gorm.DB
		repo *EntryRepository
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&entryDatamodel.CPDEntry{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewEntryRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	newEntry := func(userID int64, hours float64, daysAgo int) *entry.Entry {
		return &entry.Entry{
			UserID:        userID,
			Title:         "Workshop",
			DateCompleted: time.Now().AddDate(0, 0, -daysAgo),
			Hours:         hours,
			Category:      "Training",
			ReviewStatus:  entry.ReviewStatusPending,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
	}

	Describe("Create", func() {
		It("should persist an entry and assign an id", func() {
			e := newEntry(1, 3.5, 1)

			err := repo.Create(e)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.ID).To(BeNumerically(">", 0))
		})
	})

	Describe("GetByID", func() {
		It("should round-trip the stored fields", func() {
			e := newEntry(1, 3.5, 1)
			Expect(repo.Create(e)).To(Succeed())

			found, err := repo.GetByID(e.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(found.UserID).To(Equal(int64(1)))
			Expect(found.Hours).To(Equal(3.5))
			Expect(found.ReviewStatus).To(Equal(entry.ReviewStatusPending))
		})

		It("should return not found for a missing id", func() {
			_, err := repo.GetByID(404)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetPendingForUsers", func() {
		It("should return pending entries for the given users, oldest first", func() {
			first := newEntry(1, 2, 5)
			first.CreatedAt = time.Now().Add(-2 * time.Hour)
			second := newEntry(1, 3, 1)
			second.CreatedAt = time.Now().Add(-1 * time.Hour)
			other := newEntry(9, 4, 1)
			Expect(repo.Create(first)).To(Succeed())
			Expect(repo.Create(second)).To(Succeed())
			Expect(repo.Create(other)).To(Succeed())

			approved := newEntry(1, 5, 1)
			approved.ReviewStatus = entry.ReviewStatusApproved
			Expect(repo.Create(approved)).To(Succeed())

			pending, err := repo.GetPendingForUsers([]int64{1}, 50, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(2))
			Expect(pending[0].ID).To(Equal(first.ID))
			Expect(pending[1].ID).To(Equal(second.ID))
		})

		It("should return an empty slice for an empty user set", func() {
			pending, err := repo.GetPendingForUsers(nil, 50, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})
	})

	Describe("AggregateUserEntries", func() {
		It("should sum hours and count entries regardless of review status", func() {
			pending := newEntry(1, 2.5, 3)
			approved := newEntry(1, 4, 2)
			approved.ReviewStatus = entry.ReviewStatusApproved
			Expect(repo.Create(pending)).To(Succeed())
			Expect(repo.Create(approved)).To(Succeed())

			agg, err := repo.AggregateUserEntries(1, time.Now())

			Expect(err).NotTo(HaveOccurred())
			Expect(agg.Hours).To(Equal(6.5))
			Expect(agg.Entries).To(Equal(2))
			Expect(agg.LastEntryDate).NotTo(BeNil())
		})

		It("should exclude entries dated after the cutoff", func() {
			old := newEntry(1, 2, 10)
			recent := newEntry(1, 3, 1)
			Expect(repo.Create(old)).To(Succeed())
			Expect(repo.Create(recent)).To(Succeed())

			agg, err := repo.AggregateUserEntries(1, time.Now().AddDate(0, 0, -5))

			Expect(err).NotTo(HaveOccurred())
			Expect(agg.Hours).To(Equal(2.0))
			Expect(agg.Entries).To(Equal(1))
		})

		It("should return zeroes for a user with no entries", func() {
			agg, err := repo.AggregateUserEntries(42, time.Now())

			Expect(err).NotTo(HaveOccurred())
			Expect(agg.Hours).To(BeZero())
			Expect(agg.Entries).To(BeZero())
		})
	})

	Describe("Delete", func() {
		It("should remove the row", func() {
			e := newEntry(1, 3, 1)
			Expect(repo.Create(e)).To(Succeed())

			Expect(repo.Delete(e.ID)).To(Succeed())

			_, err := repo.GetByID(e.ID)
			Expect(err).To(HaveOccurred())
		})
	})
})
