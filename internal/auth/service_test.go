package auth_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/cpdtrack/cpd-management/internal/auth"
	"github.com/cpdtrack/cpd-management/internal/identity"
	"github.com/cpdtrack/cpd-management/internal/user"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

// Mock user store for testing
type mockUserStore struct {
	byEmail map[string]*user.User
	byID    map[int64]*user.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		byEmail: make(map[string]*user.User),
		byID:    make(map[int64]*user.User),
	}
}

func (m *mockUserStore) add(u *user.User) {
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
}

func (m *mockUserStore) GetByEmail(email string) (*user.User, error) {
	u, exists := m.byEmail[email]
	if !exists {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (m *mockUserStore) GetByID(id int64) (*user.User, error) {
	u, exists := m.byID[id]
	if !exists {
		return nil, errors.New("user not found")
	}
	return u, nil
}

var _ = Describe("AuthService", func() {
	var (
		authService *auth.Service
		users       *mockUserStore
		tokens      *auth.JWTTokenGenerator
		logger      *slog.Logger
		account     *user.User
	)

	password := "correct-horse"

	BeforeEach(func() {
		users = newMockUserStore()
		tokens = auth.NewJWTTokenGenerator("access-secret", "refresh-secret", time.Minute, time.Hour)
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		authService = auth.NewService(users, tokens, logger)

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		Expect(err).ToNot(HaveOccurred())

		account = &user.User{
			ID:             5,
			OrganisationID: 1,
			Email:          "user@example.com",
			Name:           "Uma User",
			PasswordHash:   string(hash),
			Role:           identity.RoleManager,
		}
		users.add(account)
	})

	Describe("Authenticate", func() {
		It("should issue a token pair for valid credentials", func() {
			result, err := authService.Authenticate(auth.LoginDTO{Email: account.Email, Password: password})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.AccessToken).ToNot(BeEmpty())
			Expect(result.RefreshToken).ToNot(BeEmpty())
		})

		It("should reject a wrong password", func() {
			_, err := authService.Authenticate(auth.LoginDTO{Email: account.Email, Password: "wrong"})

			Expect(err).To(HaveOccurred())
		})

		It("should reject an unknown email", func() {
			_, err := authService.Authenticate(auth.LoginDTO{Email: "nobody@example.com", Password: password})

			Expect(err).To(HaveOccurred())
		})

		It("should reject an archived account even with valid credentials", func() {
			account.Archived = true

			_, err := authService.Authenticate(auth.LoginDTO{Email: account.Email, Password: password})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ResolveActor", func() {
		var accessToken string

		BeforeEach(func() {
			result, err := authService.Authenticate(auth.LoginDTO{Email: account.Email, Password: password})
			Expect(err).ToNot(HaveOccurred())
			accessToken = result.AccessToken
		})

		It("should build the actor from a live token", func() {
			actor, err := authService.ResolveActor(accessToken)

			Expect(err).ToNot(HaveOccurred())
			Expect(actor.UserID).To(Equal(account.ID))
			Expect(actor.Role).To(Equal(identity.RoleManager))
			Expect(actor.OrganisationID).To(Equal(account.OrganisationID))
		})

		It("should reject a token once the account is archived", func() {
			account.Archived = true

			_, err := authService.ResolveActor(accessToken)

			Expect(err).To(HaveOccurred())
		})

		It("should reject a refresh token used as an access token", func() {
			result, err := authService.Authenticate(auth.LoginDTO{Email: account.Email, Password: password})
			Expect(err).ToNot(HaveOccurred())

			_, err = authService.ResolveActor(result.RefreshToken)

			Expect(err).To(HaveOccurred())
		})

		It("should reject garbage", func() {
			_, err := authService.ResolveActor("not-a-token")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RefreshTokens", func() {
		It("should exchange a refresh token for a new pair", func() {
			result, err := authService.Authenticate(auth.LoginDTO{Email: account.Email, Password: password})
			Expect(err).ToNot(HaveOccurred())

			refreshed, err := authService.RefreshTokens(result.RefreshToken)

			Expect(err).ToNot(HaveOccurred())
			Expect(refreshed.AccessToken).ToNot(BeEmpty())
		})

		It("should reject an access token used for refresh", func() {
			result, err := authService.Authenticate(auth.LoginDTO{Email: account.Email, Password: password})
			Expect(err).ToNot(HaveOccurred())

			_, err = authService.RefreshTokens(result.AccessToken)

			Expect(err).To(HaveOccurred())
		})
	})
})
