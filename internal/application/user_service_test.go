package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newUserServiceFixture(stub *userRepoStub) *UserService {
	service := NewUserService(stub, sequentialIDs("user"), func() time.Time { return fixedNow })
	service.hash = func(password string) (string, error) { return "hash:" + password, nil }
	return service
}

func TestUserService_CreateUser(t *testing.T) {
	admin := Principal{UserID: "root", IsAdmin: true}

	validInput := func() UserInput {
		return UserInput{
			Email:       "Bob@Example.com",
			DisplayName: "Bob",
			Password:    "s3cretpass",
			CanApprove:  true,
		}
	}

	t.Run("persists a new account with a hashed credential", func(t *testing.T) {
		stub := newUserRepoStub()
		service := newUserServiceFixture(stub)

		user, err := service.CreateUser(context.Background(), CreateUserParams{Principal: admin, Input: validInput()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Email != "bob@example.com" {
			t.Fatalf("email not normalized: %s", user.Email)
		}

		record := stub.users[user.ID]
		if record.PasswordHash != "hash:s3cretpass" {
			t.Fatalf("credential not hashed: %s", record.PasswordHash)
		}
		if !record.CanApprove {
			t.Fatal("capability flag lost")
		}
	})

	t.Run("rejects non-admin callers", func(t *testing.T) {
		service := newUserServiceFixture(newUserRepoStub())

		_, err := service.CreateUser(context.Background(), CreateUserParams{
			Principal: Principal{UserID: "alice"},
			Input:     validInput(),
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("duplicate email fails with already exists", func(t *testing.T) {
		stub := newUserRepoStub(aliceRecord())
		service := newUserServiceFixture(stub)

		input := validInput()
		input.Email = "alice@example.com"
		_, err := service.CreateUser(context.Background(), CreateUserParams{Principal: admin, Input: input})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("short passwords fail validation", func(t *testing.T) {
		service := newUserServiceFixture(newUserRepoStub())

		input := validInput()
		input.Password = "short"
		_, err := service.CreateUser(context.Background(), CreateUserParams{Principal: admin, Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if msg := vErr.FieldErrors["password"]; !strings.Contains(msg, "8") {
			t.Fatalf("unexpected password error: %q", msg)
		}
	})
}

func TestUserService_UpdateUser(t *testing.T) {
	admin := Principal{UserID: "root", IsAdmin: true}

	t.Run("an empty password keeps the stored hash", func(t *testing.T) {
		stub := newUserRepoStub(aliceRecord())
		service := newUserServiceFixture(stub)

		_, err := service.UpdateUser(context.Background(), UpdateUserParams{
			Principal: admin,
			UserID:    "alice",
			Input: UserInput{
				Email:       "alice@example.com",
				DisplayName: "Alice B",
				CanApprove:  true,
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stub.users["alice"].PasswordHash != "hash:s3cretpass" {
			t.Fatal("stored hash changed")
		}
		if stub.users["alice"].DisplayName != "Alice B" {
			t.Fatal("display name not updated")
		}
	})

	t.Run("missing account fails with not found", func(t *testing.T) {
		service := newUserServiceFixture(newUserRepoStub())

		_, err := service.UpdateUser(context.Background(), UpdateUserParams{
			Principal: admin,
			UserID:    "ghost",
			Input:     UserInput{Email: "ghost@example.com", DisplayName: "Ghost"},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	admin := Principal{UserID: "root", IsAdmin: true}

	t.Run("removes another account", func(t *testing.T) {
		stub := newUserRepoStub(aliceRecord())
		service := newUserServiceFixture(stub)

		if err := service.DeleteUser(context.Background(), admin, "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := stub.users["alice"]; ok {
			t.Fatal("account still present")
		}
	})

	t.Run("admins cannot delete themselves", func(t *testing.T) {
		stub := newUserRepoStub()
		service := newUserServiceFixture(stub)

		err := service.DeleteUser(context.Background(), admin, "root")
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestUserService_ListUsers(t *testing.T) {
	t.Run("strips credentials from the listing", func(t *testing.T) {
		stub := newUserRepoStub(aliceRecord())
		service := newUserServiceFixture(stub)

		users, err := service.ListUsers(context.Background(), Principal{UserID: "root", IsAdmin: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(users) != 1 || users[0].ID != "alice" {
			t.Fatalf("unexpected listing: %+v", users)
		}
	})

	t.Run("rejects non-admin callers", func(t *testing.T) {
		service := newUserServiceFixture(newUserRepoStub())

		_, err := service.ListUsers(context.Background(), Principal{UserID: "alice"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
