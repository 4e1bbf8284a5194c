package testfixtures

import (
	"context"
	"testing"

	"github.com/example/roombooker/internal/application"
	"github.com/example/roombooker/internal/persistence"
)

type capturingUserRepo struct {
	created persistence.User
}

func (c *capturingUserRepo) CreateUser(ctx context.Context, user persistence.User) error {
	c.created = user
	return nil
}

func (c *capturingUserRepo) UpdateUser(ctx context.Context, user persistence.User) error {
	return nil
}

func (c *capturingUserRepo) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return persistence.User{}, persistence.ErrNotFound
}

func (c *capturingUserRepo) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	return persistence.User{}, persistence.ErrNotFound
}

func (c *capturingUserRepo) ListUsers(ctx context.Context) ([]persistence.User, error) {
	return nil, nil
}

func (c *capturingUserRepo) DeleteUser(ctx context.Context, id string) error {
	return nil
}

func TestServiceFactoryNewUserService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingUserRepo{}

	svc := factory.NewUserService(repo)
	principal := application.Principal{UserID: "admin", IsAdmin: true}
	input := application.UserInput{
		Email:       "user@example.com",
		DisplayName: "User",
		Password:    "longenough",
	}

	user, err := svc.CreateUser(context.Background(), application.CreateUserParams{Principal: principal, Input: input})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	if user.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", user.ID)
	}
	if repo.created.ID != user.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.ID)
	}
	if !user.CreatedAt.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), user.CreatedAt)
	}
}
