package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nystai-labs/authcore"
)

// openStores returns both implementations behind the shared contract, so
// every test runs against sqlite and the in-memory map. A file-backed
// database is used because sqlite's :memory: mode is per-connection and the
// pool would silently hand each connection its own empty database.
func openStores(t *testing.T) map[string]authcore.CredentialStore {
	t.Helper()

	sqlStore, err := Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	return map[string]authcore.CredentialStore{
		"sql":    sqlStore,
		"memory": NewMemory(),
	}
}

func mustCreate(t *testing.T, s authcore.CredentialStore, email string, createdAt time.Time) authcore.User {
	t.Helper()

	created, err := s.Create(context.Background(), authcore.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$2a$04$fakefakefakefakefakefakefakefakefakefakefakefakefake",
		Role:         authcore.RoleUser,
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return created
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			created := mustCreate(t, s, "alice@example.com", time.Time{})
			if created.ID == "" {
				t.Fatal("expected generated ID")
			}
			if created.CreatedAt.IsZero() {
				t.Fatal("expected CreatedAt populated")
			}
		})
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			mustCreate(t, s, "alice@example.com", time.Time{})

			_, err := s.Create(context.Background(), authcore.User{
				Name:         "Impostor",
				Email:        "alice@example.com",
				PasswordHash: "x",
				Role:         authcore.RoleUser,
			})
			if !errors.Is(err, authcore.ErrDuplicateEmail) {
				t.Fatalf("expected ErrDuplicateEmail, got %v", err)
			}
		})
	}
}

func TestLookups(t *testing.T) {
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			created := mustCreate(t, s, "alice@example.com", time.Time{})

			byEmail, err := s.FindByEmail(ctx, "alice@example.com")
			if err != nil || byEmail.ID != created.ID {
				t.Fatalf("FindByEmail: id=%q err=%v", byEmail.ID, err)
			}
			byID, err := s.FindByID(ctx, created.ID)
			if err != nil || byID.Email != "alice@example.com" {
				t.Fatalf("FindByID: email=%q err=%v", byID.Email, err)
			}

			if _, err := s.FindByEmail(ctx, "ghost@example.com"); !errors.Is(err, authcore.ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound by email, got %v", err)
			}
			if _, err := s.FindByID(ctx, "missing"); !errors.Is(err, authcore.ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound by id, got %v", err)
			}
		})
	}
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			mustCreate(t, s, "carol@example.com", base.Add(2*time.Hour))
			mustCreate(t, s, "bob@example.com", base.Add(time.Hour))
			mustCreate(t, s, "alice@example.com", base)
			// Same timestamp as bob: ties break by email.
			mustCreate(t, s, "aaron@example.com", base.Add(time.Hour))

			users, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}

			want := []string{
				"alice@example.com",
				"aaron@example.com",
				"bob@example.com",
				"carol@example.com",
			}
			if len(users) != len(want) {
				t.Fatalf("expected %d users, got %d", len(want), len(users))
			}
			for i, email := range want {
				if users[i].Email != email {
					t.Fatalf("position %d: expected %q, got %q", i, email, users[i].Email)
				}
			}
		})
	}
}

func TestUpdatePasswordHashAndRole(t *testing.T) {
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			created := mustCreate(t, s, "alice@example.com", time.Time{})

			if err := s.UpdatePasswordHash(ctx, created.ID, "new-hash"); err != nil {
				t.Fatalf("UpdatePasswordHash failed: %v", err)
			}
			if err := s.UpdateRole(ctx, created.ID, authcore.RoleAdmin); err != nil {
				t.Fatalf("UpdateRole failed: %v", err)
			}

			got, err := s.FindByID(ctx, created.ID)
			if err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}
			if got.PasswordHash != "new-hash" || got.Role != authcore.RoleAdmin {
				t.Fatalf("unexpected state: hash=%q role=%q", got.PasswordHash, got.Role)
			}

			if err := s.UpdatePasswordHash(ctx, "missing", "x"); !errors.Is(err, authcore.ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound, got %v", err)
			}
			if err := s.UpdateRole(ctx, "missing", authcore.RoleAdmin); !errors.Is(err, authcore.ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound, got %v", err)
			}
		})
	}
}

func TestOTPLifecycle(t *testing.T) {
	ctx := context.Background()
	expiry := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Second)

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			created := mustCreate(t, s, "alice@example.com", time.Time{})

			if err := s.SetOTP(ctx, created.ID, "digest-1", expiry); err != nil {
				t.Fatalf("SetOTP failed: %v", err)
			}
			if err := s.IncrementOTPAttempts(ctx, created.ID); err != nil {
				t.Fatalf("IncrementOTPAttempts failed: %v", err)
			}

			got, err := s.FindByID(ctx, created.ID)
			if err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}
			if got.OTPDigest != "digest-1" || got.OTPAttempts != 1 {
				t.Fatalf("unexpected OTP state: digest=%q attempts=%d", got.OTPDigest, got.OTPAttempts)
			}
			if !got.OTPExpiry.Equal(expiry) {
				t.Fatalf("expected expiry %v, got %v", expiry, got.OTPExpiry)
			}

			// Setting a new code resets the attempt budget.
			if err := s.SetOTP(ctx, created.ID, "digest-2", expiry); err != nil {
				t.Fatalf("second SetOTP failed: %v", err)
			}
			got, _ = s.FindByID(ctx, created.ID)
			if got.OTPDigest != "digest-2" || got.OTPAttempts != 0 {
				t.Fatalf("expected fresh budget, digest=%q attempts=%d", got.OTPDigest, got.OTPAttempts)
			}

			if err := s.ClearOTP(ctx, created.ID); err != nil {
				t.Fatalf("ClearOTP failed: %v", err)
			}
			got, _ = s.FindByID(ctx, created.ID)
			if got.OTPDigest != "" || got.OTPAttempts != 0 || !got.OTPExpiry.IsZero() {
				t.Fatalf("expected cleared state, digest=%q attempts=%d expiry=%v", got.OTPDigest, got.OTPAttempts, got.OTPExpiry)
			}

			if err := s.SetOTP(ctx, "missing", "d", expiry); !errors.Is(err, authcore.ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound, got %v", err)
			}
		})
	}
}

func TestIncrementOTPAttemptsConcurrent(t *testing.T) {
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			created := mustCreate(t, s, "alice@example.com", time.Time{})
			if err := s.SetOTP(ctx, created.ID, "digest", time.Now().Add(time.Minute)); err != nil {
				t.Fatalf("SetOTP failed: %v", err)
			}

			const workers = 8
			var wg sync.WaitGroup
			wg.Add(workers)
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer wg.Done()
					errs <- s.IncrementOTPAttempts(ctx, created.ID)
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("IncrementOTPAttempts failed: %v", err)
				}
			}

			got, err := s.FindByID(ctx, created.ID)
			if err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}
			if got.OTPAttempts != workers {
				t.Fatalf("expected %d attempts, got %d", workers, got.OTPAttempts)
			}
		})
	}
}
