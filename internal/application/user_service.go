package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/roombooker/internal/persistence"
)

const minPasswordLength = 8

// UserService orchestrates validation, authorization, and persistence for
// user accounts. Mutations are admin only.
type UserService struct {
	users       persistence.UserRepository
	hash        func(password string) (string, error)
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService constructs a user service with the provided dependencies.
func NewUserService(users persistence.UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a user service with a specified logger.
func NewUserServiceWithLogger(users persistence.UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users: users,
		hash: func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		},
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input, hashes the password, and persists a new account.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateUserInput(params.Input, true)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var passwordHash string
	passwordHash, err = s.hash(params.Input.Password)
	if err != nil {
		return
	}

	now := s.now().UTC()
	record := persistence.User{
		ID:           s.idGenerator(),
		Email:        normalizeEmail(params.Input.Email),
		DisplayName:  strings.TrimSpace(params.Input.DisplayName),
		PasswordHash: passwordHash,
		IsAdmin:      params.Input.IsAdmin,
		CanApprove:   params.Input.CanApprove,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = s.users.CreateUser(ctx, record); err != nil {
		err = mapUserRepoError(err)
		return
	}
	user = userFromRecord(record)
	return
}

// UpdateUser updates an existing account. An empty password leaves the stored
// credential unchanged.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateUserInput(params.Input, params.Input.Password != "")
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var record persistence.User
	record, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	record.Email = normalizeEmail(params.Input.Email)
	record.DisplayName = strings.TrimSpace(params.Input.DisplayName)
	record.IsAdmin = params.Input.IsAdmin
	record.CanApprove = params.Input.CanApprove
	record.UpdatedAt = s.now().UTC()
	if params.Input.Password != "" {
		record.PasswordHash, err = s.hash(params.Input.Password)
		if err != nil {
			return
		}
	}

	if err = s.users.UpdateUser(ctx, record); err != nil {
		err = mapUserRepoError(err)
		return
	}
	user = userFromRecord(record)
	return
}

// GetUser returns a single account by id, without credentials.
func (s *UserService) GetUser(ctx context.Context, id string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}

	record, err := s.users.GetUser(ctx, id)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return userFromRecord(record), nil
}

// ListUsers returns every account, without credentials. Admin only.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	records, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapUserRepoError(err)
	}

	users := make([]User, len(records))
	for i, record := range records {
		users[i] = userFromRecord(record)
	}
	return users, nil
}

// DeleteUser removes an account. Admin only; admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		"principal_id", principal.UserID,
		"user_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if principal.UserID == id {
		vErr := &ValidationError{}
		vErr.add("id", "accounts cannot delete themselves")
		err = vErr
		return
	}

	if err = s.users.DeleteUser(ctx, id); err != nil {
		err = mapUserRepoError(err)
		return
	}
	return
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUserInput(input UserInput, requirePassword bool) *ValidationError {
	vErr := &ValidationError{}

	email := normalizeEmail(input.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is not valid")
	}

	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("displayName", "display name is required")
	}

	if requirePassword {
		if len(input.Password) < minPasswordLength {
			vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		}
	}
	return vErr
}

func mapUserRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	default:
		return err
	}
}
