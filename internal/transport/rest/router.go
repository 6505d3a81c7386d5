package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/cpdtrack/cpd-management/internal/auth"
	"github.com/cpdtrack/cpd-management/internal/entry"
	"github.com/cpdtrack/cpd-management/internal/goal"
	"github.com/cpdtrack/cpd-management/internal/organisation"
	"github.com/cpdtrack/cpd-management/internal/review"
	"github.com/cpdtrack/cpd-management/internal/transport/middleware"
	"github.com/cpdtrack/cpd-management/internal/transport/swagger"
	"github.com/cpdtrack/cpd-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers bundles the feature handlers the router mounts.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Organisation *organisation.Handler
	Entry        *entry.Handler
	Goal         *goal.Handler
	Review       *review.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Public routes: tenant sign-up and the category list
		r.Post("/organisations", h.Organisation.CreateOrganisation)
		r.Get("/categories", h.Entry.GetCategories)

		// Protected routes
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Route("/users", func(ur chi.Router) {
				ur.Post("/", h.User.CreateUser)
				ur.Get("/{id}", h.User.GetUser)
				ur.Patch("/{id}", h.User.UpdateUser)
				ur.Delete("/{id}", h.User.DeleteUser)
				ur.Post("/{id}/archive", h.User.ArchiveUser)
				ur.Post("/{id}/unarchive", h.User.UnarchiveUser)
				ur.Get("/{userID}/entries", h.Entry.GetUserEntries)
			})

			pr.Route("/organisations/{id}", func(or chi.Router) {
				or.Get("/", h.Organisation.GetOrganisation)
				or.Patch("/", h.Organisation.UpdateOrganisation)
				or.Delete("/", h.Organisation.DeleteOrganisation)
				or.Post("/admins", h.Organisation.AddOrganisationAdmin)
				or.Delete("/admins/{userID}", h.Organisation.RemoveOrganisationAdmin)
			})
			pr.Get("/organisations/{orgID}/users", h.User.ListUsers)
			pr.Get("/organisations/{orgID}/departments", h.Organisation.ListDepartments)

			pr.Route("/departments", func(dr chi.Router) {
				dr.Post("/", h.Organisation.CreateDepartment)
				dr.Get("/{id}", h.Organisation.GetDepartment)
				dr.Patch("/{id}", h.Organisation.RenameDepartment)
				dr.Delete("/{id}", h.Organisation.DeleteDepartment)
				dr.Get("/{id}/teams", h.Organisation.ListTeams)
				dr.Post("/{id}/partners", h.Organisation.AddDepartmentPartner)
				dr.Delete("/{id}/partners/{userID}", h.Organisation.RemoveDepartmentPartner)
			})

			pr.Route("/teams", func(tr chi.Router) {
				tr.Post("/", h.Organisation.CreateTeam)
				tr.Get("/{id}", h.Organisation.GetTeam)
				tr.Patch("/{id}", h.Organisation.RenameTeam)
				tr.Delete("/{id}", h.Organisation.DeleteTeam)
				tr.Post("/{id}/members", h.Organisation.AddTeamMember)
				tr.Delete("/{id}/members/{userID}", h.Organisation.RemoveTeamMember)
				tr.Post("/{id}/managers", h.Organisation.AddTeamManager)
				tr.Delete("/{id}/managers/{userID}", h.Organisation.RemoveTeamManager)
				tr.Post("/{id}/partners", h.Organisation.AddTeamPartner)
				tr.Delete("/{id}/partners/{userID}", h.Organisation.RemoveTeamPartner)
			})

			pr.Route("/entries", func(er chi.Router) {
				er.Post("/", h.Entry.CreateEntry)
				er.Get("/", h.Entry.GetUserEntries)
				er.Get("/{id}", h.Entry.GetEntry)
				er.Patch("/{id}", h.Entry.UpdateEntry)
				er.Delete("/{id}", h.Entry.DeleteEntry)
				er.Patch("/{id}/review", h.Review.ReviewEntry)
			})

			pr.Route("/reviews", func(rr chi.Router) {
				rr.Get("/pending", h.Review.PendingReviews)
				rr.Post("/bulk-approve", h.Review.BulkApprove)
			})

			pr.Route("/goals", func(gr chi.Router) {
				gr.Post("/", h.Goal.CreateGoal)
				gr.Get("/{id}", h.Goal.GetGoal)
				gr.Patch("/{id}", h.Goal.UpdateGoal)
				gr.Post("/{id}/cancel", h.Goal.CancelGoal)
			})
		})
	})
}
