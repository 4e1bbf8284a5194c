package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/roombooker/internal/persistence"
)

type userRepoStub struct {
	users map[string]persistence.User
}

func newUserRepoStub(users ...persistence.User) *userRepoStub {
	stub := &userRepoStub{users: make(map[string]persistence.User)}
	for _, user := range users {
		stub.users[user.ID] = user
	}
	return stub
}

func (s *userRepoStub) CreateUser(ctx context.Context, user persistence.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return persistence.ErrDuplicate
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) UpdateUser(ctx context.Context, user persistence.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) GetUser(ctx context.Context, id string) (persistence.User, error) {
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *userRepoStub) ListUsers(ctx context.Context) ([]persistence.User, error) {
	var out []persistence.User
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userRepoStub) DeleteUser(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type sessionRepoStub struct {
	sessions map[string]persistence.Session
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: make(map[string]persistence.Session)}
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session persistence.Session) error {
	s.sessions[session.Token] = session
	return nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) error {
	session, ok := s.sessions[token]
	if !ok || session.RevokedAt != nil {
		return persistence.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func stubVerifier(hashedPassword, password string) error {
	if hashedPassword == "hash:"+password {
		return nil
	}
	return ErrInvalidCredentials
}

func newAuthFixture(users ...persistence.User) (*AuthService, *sessionRepoStub) {
	sessions := newSessionRepoStub()
	service := NewAuthService(
		newUserRepoStub(users...),
		sessions,
		stubVerifier,
		sequentialIDs("token"),
		func() time.Time { return fixedNow },
		time.Hour,
	)
	return service, sessions
}

func aliceRecord() persistence.User {
	return persistence.User{
		ID:           "alice",
		Email:        "alice@example.com",
		DisplayName:  "Alice",
		PasswordHash: "hash:s3cretpass",
		CanApprove:   true,
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Run("issues a session for valid credentials", func(t *testing.T) {
		service, sessions := newAuthFixture(aliceRecord())

		result, err := service.Authenticate(context.Background(), AuthenticateParams{
			Email:    "Alice@Example.com",
			Password: "s3cretpass",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.User.ID != "alice" {
			t.Fatalf("unexpected user: %+v", result.User)
		}
		if result.Session.Token == "" {
			t.Fatal("expected a session token")
		}
		if !result.Session.ExpiresAt.Equal(fixedNow.Add(time.Hour)) {
			t.Fatalf("unexpected expiry: %v", result.Session.ExpiresAt)
		}
		if _, ok := sessions.sessions[result.Session.Token]; !ok {
			t.Fatal("session not persisted")
		}
	})

	t.Run("wrong password fails with invalid credentials", func(t *testing.T) {
		service, _ := newAuthFixture(aliceRecord())

		_, err := service.Authenticate(context.Background(), AuthenticateParams{
			Email:    "alice@example.com",
			Password: "wrong",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown account fails with invalid credentials", func(t *testing.T) {
		service, _ := newAuthFixture()

		_, err := service.Authenticate(context.Background(), AuthenticateParams{
			Email:    "ghost@example.com",
			Password: "whatever",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("empty credentials fail without a lookup", func(t *testing.T) {
		service, _ := newAuthFixture(aliceRecord())

		_, err := service.Authenticate(context.Background(), AuthenticateParams{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	login := func(t *testing.T, service *AuthService) string {
		t.Helper()
		result, err := service.Authenticate(context.Background(), AuthenticateParams{
			Email:    "alice@example.com",
			Password: "s3cretpass",
		})
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		return result.Session.Token
	}

	t.Run("returns the principal with capability flags", func(t *testing.T) {
		service, _ := newAuthFixture(aliceRecord())
		token := login(t, service)

		principal, err := service.ValidateSession(context.Background(), token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if principal.UserID != "alice" || !principal.CanApprove || principal.IsAdmin {
			t.Fatalf("unexpected principal: %+v", principal)
		}
	})

	t.Run("unknown token fails with unauthorized", func(t *testing.T) {
		service, _ := newAuthFixture(aliceRecord())

		_, err := service.ValidateSession(context.Background(), "bogus")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("expired session fails", func(t *testing.T) {
		service, sessions := newAuthFixture(aliceRecord())
		token := login(t, service)

		session := sessions.sessions[token]
		session.ExpiresAt = fixedNow.Add(-time.Minute)
		sessions.sessions[token] = session

		_, err := service.ValidateSession(context.Background(), token)
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("revoked session fails", func(t *testing.T) {
		service, _ := newAuthFixture(aliceRecord())
		token := login(t, service)

		if err := service.RevokeSession(context.Background(), token); err != nil {
			t.Fatalf("revoke failed: %v", err)
		}
		_, err := service.ValidateSession(context.Background(), token)
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Run("revoking an unknown token fails with invalid credentials", func(t *testing.T) {
		service, _ := newAuthFixture(aliceRecord())

		err := service.RevokeSession(context.Background(), "bogus")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("an empty token is rejected", func(t *testing.T) {
		service, _ := newAuthFixture(aliceRecord())

		err := service.RevokeSession(context.Background(), "  ")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
