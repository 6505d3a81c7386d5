package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo organisation and accounts for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := initGormDB(sqlxDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		orgName := "Acme Professional Services"
		var orgID int64
		row := db.Raw("SELECT id FROM organisations WHERE name = ?", orgName).Row()
		if err := row.Scan(&orgID); err != nil {
			if err := db.Exec("INSERT INTO organisations (name, subscription_status, subscription_plan, max_users, trial_ends_at, created_at, updated_at) VALUES (?, 'trial', 'starter', 25, now() + interval '30 days', now(), now())", orgName).Error; err != nil {
				log.Fatalf("failed to insert organisation: %v", err)
			}
			if err := db.Raw("SELECT id FROM organisations WHERE name = ?", orgName).Row().Scan(&orgID); err != nil {
				log.Fatalf("failed to lookup organisation id: %v", err)
			}
			fmt.Println("Seeded organisation:", orgName)
		} else {
			fmt.Println("organisation already exists; will ensure accounts")
		}

		accounts := []struct {
			Email string
			Name  string
			Role  string
		}{
			{"admin@acme.test", "Alice Admin", "admin"},
			{"manager@acme.test", "Mark Manager", "manager"},
			{"partner@acme.test", "Paula Partner", "partner"},
			{"user@acme.test", "Uma User", "user"},
		}

		userIDs := map[string]int64{}
		for _, a := range accounts {
			var id int64
			row := db.Raw("SELECT id FROM users WHERE email = ?", a.Email).Row()
			if err := row.Scan(&id); err != nil {
				if err := db.Exec("INSERT INTO users (organisation_id, email, name, password_hash, role, archived, created_at, updated_at) VALUES (?, ?, ?, ?, ?, false, now(), now())", orgID, a.Email, a.Name, string(hash), a.Role).Error; err != nil {
					log.Fatalf("failed to insert user %s: %v", a.Email, err)
				}
				if err := db.Raw("SELECT id FROM users WHERE email = ?", a.Email).Row().Scan(&id); err != nil {
					log.Fatalf("failed to lookup user id for %s: %v", a.Email, err)
				}
				fmt.Println("Seeded user:", a.Email)
			}
			userIDs[a.Role] = id
		}

		departmentName := "Engineering"
		var departmentID int64
		row = db.Raw("SELECT id FROM departments WHERE organisation_id = ? AND name = ?", orgID, departmentName).Row()
		if err := row.Scan(&departmentID); err != nil {
			if err := db.Exec("INSERT INTO departments (organisation_id, name, created_at, updated_at) VALUES (?, ?, now(), now())", orgID, departmentName).Error; err != nil {
				log.Fatalf("failed to insert department: %v", err)
			}
			if err := db.Raw("SELECT id FROM departments WHERE organisation_id = ? AND name = ?", orgID, departmentName).Row().Scan(&departmentID); err != nil {
				log.Fatalf("failed to lookup department id: %v", err)
			}
			fmt.Println("Seeded department:", departmentName)
		}

		teamName := "Platform"
		var teamID int64
		row = db.Raw("SELECT id FROM teams WHERE department_id = ? AND name = ?", departmentID, teamName).Row()
		if err := row.Scan(&teamID); err != nil {
			if err := db.Exec("INSERT INTO teams (department_id, name, created_at, updated_at) VALUES (?, ?, now(), now())", departmentID, teamName).Error; err != nil {
				log.Fatalf("failed to insert team: %v", err)
			}
			if err := db.Raw("SELECT id FROM teams WHERE department_id = ? AND name = ?", departmentID, teamName).Row().Scan(&teamID); err != nil {
				log.Fatalf("failed to lookup team id: %v", err)
			}
			fmt.Println("Seeded team:", teamName)
		}

		seedJunction(db, "user_teams", "user_id", userIDs["user"], "team_id", teamID)
		seedJunction(db, "user_teams", "user_id", userIDs["manager"], "team_id", teamID)
		seedJunction(db, "team_managers", "team_id", teamID, "user_id", userIDs["manager"])
		seedJunction(db, "department_partners", "department_id", departmentID, "user_id", userIDs["partner"])
		seedJunction(db, "organisation_admins", "organisation_id", orgID, "user_id", userIDs["admin"])

		fmt.Println("Demo organisation seeded; all accounts use password:", password)
	},
}

func seedJunction(db *gorm.DB, table, leftCol string, leftID int64, rightCol string, rightID int64) {
	var exists int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? AND %s = ?", table, leftCol, rightCol)
	if err := db.Raw(query, leftID, rightID).Row().Scan(&exists); err == nil {
		return
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s, %s, created_at) VALUES (?, ?, now())", table, leftCol, rightCol)
	if err := db.Exec(insert, leftID, rightID).Error; err != nil {
		log.Fatalf("failed to insert into %s: %v", table, err)
	}
	fmt.Printf("Seeded %s: %d -> %d\n", table, leftID, rightID)
}
