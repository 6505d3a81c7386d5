package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	goalDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/goal"
	orgDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/organisation"
	userDatamodel "github.com/cpdtrack/cpd-management/internal/core/datamodel/user"
	"github.com/cpdtrack/cpd-management/internal/organisation"
)

func TestOrganisationRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OrganisationRepository Suite")
}

var _ = Describe("OrganisationRepository", func() {
	var (
		db   *gorm.DB
		repo *OrganisationRepository
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&orgDatamodel.Organisation{},
			&orgDatamodel.Department{},
			&orgDatamodel.Team{},
			&orgDatamodel.UserTeam{},
			&orgDatamodel.TeamManager{},
			&orgDatamodel.TeamPartner{},
			&orgDatamodel.DepartmentPartner{},
			&orgDatamodel.OrganisationAdmin{},
			&userDatamodel.User{},
			&goalDatamodel.Goal{},
			&goalDatamodel.GoalProgress{},
		)
		Expect(err).NotTo(HaveOccurred())

		repo = NewOrganisationRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("AddUserToTeam", func() {
		It("should report added on the first insert and a no-op on the duplicate", func() {
			added, err := repo.AddUserToTeam(1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(BeTrue())

			added, err = repo.AddUserToTeam(1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(BeFalse())

			var count int64
			Expect(db.Model(&orgDatamodel.UserTeam{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("CountActiveUsers", func() {
		It("should exclude archived accounts", func() {
			Expect(db.Create(&userDatamodel.User{
				OrganisationID: 1, Email: "a@example.com", Name: "A", PasswordHash: "x",
			}).Error).To(Succeed())
			Expect(db.Create(&userDatamodel.User{
				OrganisationID: 1, Email: "b@example.com", Name: "B", PasswordHash: "x", Archived: true,
			}).Error).To(Succeed())
			Expect(db.Create(&userDatamodel.User{
				OrganisationID: 2, Email: "c@example.com", Name: "C", PasswordHash: "x",
			}).Error).To(Succeed())

			count, err := repo.CountActiveUsers(1)

			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("DeleteDepartmentCascade", func() {
		It("should detach owned teams and remove department goals", func() {
			department := &organisation.Department{OrganisationID: 1, Name: "Engineering"}
			Expect(repo.CreateDepartment(department)).To(Succeed())

			team := &organisation.Team{DepartmentID: &department.ID, Name: "Platform"}
			Expect(repo.CreateTeam(team)).To(Succeed())

			goalRow := &goalDatamodel.Goal{
				GoalType:           "department",
				TargetDepartmentID: &department.ID,
				SetBy:              1,
				Title:              "Department hours",
				TargetHours:        40,
				Deadline:           time.Now().AddDate(0, 1, 0),
				Status:             "active",
			}
			Expect(db.Create(goalRow).Error).To(Succeed())
			Expect(db.Create(&goalDatamodel.GoalProgress{GoalID: goalRow.ID, UserID: 1}).Error).To(Succeed())

			Expect(repo.DeleteDepartmentCascade(department.ID)).To(Succeed())

			_, err := repo.GetDepartment(department.ID)
			Expect(err).To(HaveOccurred())

			surviving, err := repo.GetTeam(team.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(surviving.DepartmentID).To(BeNil())

			var goalCount int64
			Expect(db.Model(&goalDatamodel.Goal{}).Count(&goalCount).Error).To(Succeed())
			Expect(goalCount).To(BeZero())

			var progressCount int64
			Expect(db.Model(&goalDatamodel.GoalProgress{}).Count(&progressCount).Error).To(Succeed())
			Expect(progressCount).To(BeZero())
		})
	})

	Describe("DeleteTeamCascade", func() {
		It("should remove assignment rows and team goals", func() {
			team := &organisation.Team{Name: "Platform"}
			Expect(repo.CreateTeam(team)).To(Succeed())

			added, err := repo.AddUserToTeam(1, team.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(BeTrue())
			added, err = repo.AddTeamManager(team.ID, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(BeTrue())

			goalRow := &goalDatamodel.Goal{
				GoalType:     "team",
				TargetTeamID: &team.ID,
				SetBy:        1,
				Title:        "Team hours",
				TargetHours:  20,
				Deadline:     time.Now().AddDate(0, 1, 0),
				Status:       "active",
			}
			Expect(db.Create(goalRow).Error).To(Succeed())

			Expect(repo.DeleteTeamCascade(team.ID)).To(Succeed())

			_, err = repo.GetTeam(team.ID)
			Expect(err).To(HaveOccurred())

			var memberCount int64
			Expect(db.Model(&orgDatamodel.UserTeam{}).Count(&memberCount).Error).To(Succeed())
			Expect(memberCount).To(BeZero())

			var goalCount int64
			Expect(db.Model(&goalDatamodel.Goal{}).Count(&goalCount).Error).To(Succeed())
			Expect(goalCount).To(BeZero())
		})
	})
})
