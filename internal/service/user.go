package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/repository"
	"github.com/dukerupert/basket/internal/telemetry"
)

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User, now time.Time) (string, error)
}

// PasswordHasher hashes new passwords and checks login attempts.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

type userService struct {
	repo      repository.Querier
	tokens    TokenIssuer
	passwords PasswordHasher
	now       func() time.Time
}

// NewUserService creates a new UserService instance
func NewUserService(repo repository.Querier, tokens TokenIssuer, passwords PasswordHasher) domain.UserService {
	return &userService{
		repo:      repo,
		tokens:    tokens,
		passwords: passwords,
		now:       time.Now,
	}
}

// Register creates a user account.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error) {
	const op = "user.register"

	email := domain.NormalizeEmail(params.Email)
	if params.Name == "" || email == "" || params.Password == "" {
		return nil, domain.Invalid(op, "Name, email and password are required")
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !isNotFound(err) {
		return nil, domain.Internal(err, op, "failed to check email")
	}

	hash, err := s.passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.CreateUser(ctx, repository.CreateUserParams{
		Name:         params.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         string(domain.RoleUser),
		Phone:        textToPgtype(params.Phone),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, domain.Internal(err, op, "failed to create user")
	}

	if telemetry.Business != nil {
		telemetry.Business.Signups.Inc()
	}

	return s.authResult(op, accountFromRow(row))
}

// Login verifies credentials and issues a token.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	const op = "user.login"

	row, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			s.loginFailed(ctx, email)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}

	if err := s.passwords.Verify(password, row.PasswordHash); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.loginFailed(ctx, email)
		}
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.Logins.Inc()
	}

	return s.authResult(op, accountFromRow(row))
}

func (s *userService) loginFailed(ctx context.Context, email string) {
	zerolog.Ctx(ctx).Info().Str("email", email).Msg("login failed")
	if telemetry.Business != nil {
		telemetry.Business.LoginFailed.Inc()
	}
}

// GetProfile returns the caller's account.
func (s *userService) GetProfile(ctx context.Context) (*domain.Account, error) {
	const op = "user.profile"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	account, err := s.getAccount(ctx, op, user.ID)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateProfile applies the non-empty fields of params to the caller's account.
func (s *userService) UpdateProfile(ctx context.Context, params domain.UpdateProfileParams) (*domain.AuthResult, error) {
	const op = "user.update_profile"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	account, err := s.getAccount(ctx, op, user.ID)
	if err != nil {
		return nil, err
	}

	update := repository.UpdateUserParams{
		ID:           account.ID,
		Name:         account.Name,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Phone:        textToPgtype(account.Phone),
	}

	if params.Name != "" {
		update.Name = params.Name
	}
	if params.Phone != "" {
		update.Phone = textToPgtype(params.Phone)
	}
	if email := domain.NormalizeEmail(params.Email); email != "" && email != account.Email {
		if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
			return nil, domain.ErrEmailTaken
		} else if !isNotFound(err) {
			return nil, domain.Internal(err, op, "failed to check email")
		}
		update.Email = email
	}
	if params.Password != "" {
		hash, err := s.passwords.Hash(params.Password)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = hash
	}

	row, err := s.repo.UpdateUser(ctx, update)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, domain.Internal(err, op, "failed to update user")
	}

	return s.authResult(op, accountFromRow(row))
}

// ListUsers returns all accounts. Admin only.
func (s *userService) ListUsers(ctx context.Context) ([]domain.Account, error) {
	const op = "user.list"

	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list users")
	}

	accounts := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, accountFromRow(row))
	}
	return accounts, nil
}

// DeleteUser removes a non-admin account. Admin only.
func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	const op = "user.delete"

	if _, err := requireAdmin(ctx); err != nil {
		return err
	}

	account, err := s.getAccount(ctx, op, userID)
	if err != nil {
		return err
	}
	if account.Role == domain.RoleAdmin {
		return domain.ErrCannotDeleteAdmin
	}

	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return domain.Conflict(op, "User has orders or payments and cannot be deleted")
		}
		return domain.Internal(err, op, "failed to delete user")
	}
	return nil
}

func (s *userService) getAccount(ctx context.Context, op string, userID uuid.UUID) (domain.Account, error) {
	row, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, domain.Internal(err, op, "failed to load user")
	}
	return accountFromRow(row), nil
}

func (s *userService) authResult(op string, account domain.Account) (*domain.AuthResult, error) {
	token, err := s.tokens.Issue(account.Principal(), s.now())
	if err != nil {
		return nil, domain.Internal(err, op, "failed to issue token")
	}
	return &domain.AuthResult{Account: account, Token: token}, nil
}
