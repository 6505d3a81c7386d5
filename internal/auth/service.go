package auth

import (
	"log/slog"

	errors "github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/identity"
	"github.com/cpdtrack/cpd-management/internal/user"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the slice of the user layer auth needs.
type UserStore interface {
	GetByEmail(email string) (*user.User, error)
	GetByID(id int64) (*user.User, error)
}

// ServiceAPI is what the handler and middleware consume.
type ServiceAPI interface {
	Authenticate(dto LoginDTO) (AuthTokens, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ResolveActor(accessToken string) (identity.ActorContext, error)
}

// Service performs authentication. Authorization is not its concern: the
// access engine decides what an authenticated actor may do.
type Service struct {
	users  UserStore
	tokens TokenGenerator
	logger *slog.Logger
}

func NewService(users UserStore, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Authenticate validates credentials and returns a token pair. Archived
// accounts cannot log in.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.GetByEmail(dto.Email)
	if err != nil {
		return AuthTokens{}, errors.ErrInvalidCredentials
	}
	if u.Archived {
		s.logger.Warn("archived account login attempt", "user_id", u.ID)
		return AuthTokens{}, errors.ErrUserArchived
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, errors.ErrInvalidCredentials
	}

	return s.issueTokens(u)
}

// RefreshTokens exchanges a valid refresh token for a fresh pair. The user
// is re-read so archival or a role change since issue takes effect.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return AuthTokens{}, errors.ErrInvalidToken
	}
	if u.Archived {
		return AuthTokens{}, errors.ErrUserArchived
	}

	return s.issueTokens(u)
}

// ResolveActor validates an access token and builds the actor the request
// will carry. Archived users resolve to an error even with a live token.
func (s *Service) ResolveActor(accessToken string) (identity.ActorContext, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return identity.ActorContext{}, err
	}

	u, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return identity.ActorContext{}, errors.ErrInvalidToken
	}
	if u.Archived {
		return identity.ActorContext{}, errors.ErrUserArchived
	}

	role, err := identity.ParseRole(string(u.Role))
	if err != nil {
		s.logger.Error("stored role outside closed set", "user_id", u.ID, "role", u.Role)
		return identity.ActorContext{}, errors.ErrInvalidToken
	}

	return identity.ActorContext{
		UserID:         u.ID,
		Role:           role,
		OrganisationID: u.OrganisationID,
	}, nil
}

func (s *Service) issueTokens(u *user.User) (AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, u.OrganisationID, string(u.Role))
	if err != nil {
		return AuthTokens{}, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID, u.OrganisationID, string(u.Role))
	if err != nil {
		return AuthTokens{}, err
	}
	return AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}
