package service

import (
	"context"
	"errors"

	"github.com/seonho/rest-security-jwt/internal/auth/domain"
	authrepo "github.com/seonho/rest-security-jwt/internal/auth/repository"
	"github.com/seonho/rest-security-jwt/internal/common/clock"
	"github.com/seonho/rest-security-jwt/internal/common/crypto"
	commonerrors "github.com/seonho/rest-security-jwt/internal/common/errors"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
)

// CredentialService verifies passwords and registers accounts against the
// user store.
type CredentialService struct {
	userRepo    authrepo.UserRepository
	roleRepo    authrepo.RoleRepository
	hasher      crypto.PasswordHasher
	idGenerator crypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
}

func NewCredentialService(
	userRepo authrepo.UserRepository,
	roleRepo authrepo.RoleRepository,
	hasher crypto.PasswordHasher,
	idGenerator crypto.IDGenerator,
	clock clock.Clock,
	log *logger.Logger,
) *CredentialService {
	return &CredentialService{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		hasher:      hasher,
		idGenerator: idGenerator,
		clock:       clock,
		log:         log,
	}
}

// Authenticate checks the username/password pair. A missing user and a wrong
// password produce the same error, so a caller cannot probe which usernames
// exist.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (domain.Principal, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			return domain.Principal{}, ErrBadCredentials
		}
		return domain.Principal{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "authenticate_failed",
		}).Warn("password mismatch")
		return domain.Principal{}, ErrBadCredentials
	}

	return principalOf(user), nil
}

func (s *CredentialService) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.userRepo.ExistsByUsername(ctx, username)
}

func (s *CredentialService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.userRepo.ExistsByEmail(ctx, email)
}

// Register stores a new account with a hashed password and the resolved roles.
func (s *CredentialService) Register(ctx context.Context, username, email, password string, roles []domain.Role) (domain.User, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           domain.UserID(id),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        roles,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, commonerrors.ErrUsernameAlreadyExists):
			return domain.User{}, ErrUsernameTaken
		case errors.Is(err, commonerrors.ErrEmailAlreadyExists):
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "user_registered",
	}).Info("user registered")

	return user, nil
}

// FindRoleByName resolves a role row. A role missing from the catalog is a
// deployment defect, not a client mistake.
func (s *CredentialService) FindRoleByName(ctx context.Context, name domain.RoleName) (domain.Role, error) {
	role, err := s.roleRepo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, authrepo.ErrRoleNotFound) {
			return domain.Role{}, ErrRoleNotFound
		}
		return domain.Role{}, err
	}
	return role, nil
}

func (s *CredentialService) PrincipalByUsername(ctx context.Context, username string) (domain.Principal, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			return domain.Principal{}, ErrBadCredentials
		}
		return domain.Principal{}, err
	}
	return principalOf(user), nil
}

func (s *CredentialService) FindByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func principalOf(user domain.User) domain.Principal {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role.Name))
	}

	return domain.Principal{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Roles:    roles,
	}
}
