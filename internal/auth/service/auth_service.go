package service

import (
	"context"

	"github.com/seonho/rest-security-jwt/internal/auth/domain"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
)

// CredentialStore is the account surface AuthService needs.
type CredentialStore interface {
	Authenticate(ctx context.Context, username, password string) (domain.Principal, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Register(ctx context.Context, username, email, password string, roles []domain.Role) (domain.User, error)
	FindRoleByName(ctx context.Context, name domain.RoleName) (domain.Role, error)
	PrincipalByUsername(ctx context.Context, username string) (domain.Principal, error)
	FindByID(ctx context.Context, id domain.UserID) (domain.User, error)
}

// AccessTokenSigner signs and verifies the short-lived access tokens.
type AccessTokenSigner interface {
	IssueAccessToken(username string) (string, error)
	VerifyAccessToken(tokenString string) (string, error)
}

// RefreshTokenStore is the refresh-token lifecycle surface AuthService needs.
type RefreshTokenStore interface {
	Rotate(ctx context.Context, userID string) (domain.RefreshToken, error)
	FindByToken(ctx context.Context, rawToken string) (domain.RefreshToken, error)
	VerifyNotExpired(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error)
	Revoke(ctx context.Context, userID string) error
}

type SignInResult struct {
	UserID       string
	Username     string
	Email        string
	Roles        []string
	AccessToken  string
	RefreshToken string
}

type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// AuthService ties credentials, access tokens and refresh tokens into the
// sign-in, sign-up, sign-out and token-refresh flows.
type AuthService struct {
	credentials   CredentialStore
	tokens        AccessTokenSigner
	refreshTokens RefreshTokenStore
	log           *logger.Logger
}

func NewAuthService(
	credentials CredentialStore,
	tokens AccessTokenSigner,
	refreshTokens RefreshTokenStore,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		credentials:   credentials,
		tokens:        tokens,
		refreshTokens: refreshTokens,
		log:           log,
	}
}

// SignIn authenticates the pair, replaces the user's refresh token and issues
// a fresh access token. Any refresh token issued to this user before is dead
// after a successful call.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (SignInResult, error) {
	principal, err := s.credentials.Authenticate(ctx, username, password)
	if err != nil {
		return SignInResult{}, err
	}

	refreshToken, err := s.refreshTokens.Rotate(ctx, string(principal.UserID))
	if err != nil {
		return SignInResult{}, err
	}

	accessToken, err := s.tokens.IssueAccessToken(principal.Username)
	if err != nil {
		return SignInResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": principal.Username,
		"action":   "signin",
	}).Info("user signed in")

	return SignInResult{
		UserID:       string(principal.UserID),
		Username:     principal.Username,
		Email:        principal.Email,
		Roles:        principal.Roles,
		AccessToken:  accessToken,
		RefreshToken: refreshToken.RawToken,
	}, nil
}

// SignUp registers a new account. Role names map onto the catalog: "admin"
// and "mod" select the elevated roles, anything else and an empty set both
// fall back to the plain user role.
func (s *AuthService) SignUp(ctx context.Context, username, email, password string, roleNames []string) error {
	taken, err := s.credentials.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}

	inUse, err := s.credentials.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if inUse {
		return ErrEmailTaken
	}

	roles, err := s.resolveRoles(ctx, roleNames)
	if err != nil {
		return err
	}

	if _, err := s.credentials.Register(ctx, username, email, password, roles); err != nil {
		return err
	}

	return nil
}

func (s *AuthService) resolveRoles(ctx context.Context, roleNames []string) ([]domain.Role, error) {
	if len(roleNames) == 0 {
		role, err := s.credentials.FindRoleByName(ctx, domain.RoleUser)
		if err != nil {
			return nil, err
		}
		return []domain.Role{role}, nil
	}

	seen := make(map[domain.RoleName]bool, len(roleNames))
	roles := make([]domain.Role, 0, len(roleNames))
	for _, name := range roleNames {
		var roleName domain.RoleName
		switch name {
		case "admin":
			roleName = domain.RoleAdmin
		case "mod":
			roleName = domain.RoleModerator
		default:
			roleName = domain.RoleUser
		}

		if seen[roleName] {
			continue
		}
		seen[roleName] = true

		role, err := s.credentials.FindRoleByName(ctx, roleName)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	return roles, nil
}

// SignOut revokes the principal's refresh token. Signing out twice is fine.
func (s *AuthService) SignOut(ctx context.Context, principal domain.Principal) error {
	if err := s.refreshTokens.Revoke(ctx, string(principal.UserID)); err != nil {
		return err
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": principal.Username,
		"action":   "signout",
	}).Info("user signed out")

	return nil
}

// RefreshAccessToken exchanges a live refresh token for a new access token.
// The refresh token itself is returned unchanged: exchange does not rotate it.
func (s *AuthService) RefreshAccessToken(ctx context.Context, rawToken string) (RefreshResult, error) {
	if rawToken == "" {
		return RefreshResult{}, ErrRefreshTokenEmpty
	}

	stored, err := s.refreshTokens.FindByToken(ctx, rawToken)
	if err != nil {
		return RefreshResult{}, err
	}

	stored, err = s.refreshTokens.VerifyNotExpired(ctx, stored)
	if err != nil {
		return RefreshResult{}, err
	}

	user, err := s.credentials.FindByID(ctx, domain.UserID(stored.UserID))
	if err != nil {
		return RefreshResult{}, err
	}

	accessToken, err := s.tokens.IssueAccessToken(user.Username)
	if err != nil {
		return RefreshResult{}, err
	}

	incrementRefreshTokensUsed()

	s.log.WithFields(ctx, logger.Fields{
		"username": user.Username,
		"action":   "access_token_refreshed",
	}).Info("access token refreshed")

	return RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: rawToken,
	}, nil
}

// VerifyAccess resolves a bearer token to its principal, for the
// authentication filter.
func (s *AuthService) VerifyAccess(ctx context.Context, tokenString string) (domain.Principal, error) {
	username, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return domain.Principal{}, err
	}

	principal, err := s.credentials.PrincipalByUsername(ctx, username)
	if err != nil {
		return domain.Principal{}, err
	}

	return principal, nil
}
