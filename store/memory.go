package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nystai-labs/authcore"
)

// Memory is a mutex-guarded in-memory [authcore.CredentialStore]. The mutex
// makes IncrementOTPAttempts a true read-modify-write, so the atomicity
// contract holds under concurrent verification failures.
type Memory struct {
	mu      sync.Mutex
	byID    map[string]authcore.User
	byEmail map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]authcore.User),
		byEmail: make(map[string]string),
	}
}

func (m *Memory) FindByEmail(_ context.Context, email string) (authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return authcore.User{}, authcore.ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *Memory) FindByID(_ context.Context, id string) (authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return authcore.User{}, authcore.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) List(_ context.Context) ([]authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]authcore.User, 0, len(m.byID))
	for _, u := range m.byID {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Email < users[j].Email
	})
	return users, nil
}

func (m *Memory) Create(_ context.Context, u authcore.User) (authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[u.Email]; exists {
		return authcore.User{}, authcore.ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	m.byID[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return u, nil
}

func (m *Memory) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return m.update(id, func(u *authcore.User) {
		u.PasswordHash = hash
	})
}

func (m *Memory) UpdateRole(_ context.Context, id string, role authcore.Role) error {
	return m.update(id, func(u *authcore.User) {
		u.Role = role
	})
}

func (m *Memory) SetOTP(_ context.Context, id, digest string, expiry time.Time) error {
	return m.update(id, func(u *authcore.User) {
		u.OTPDigest = digest
		u.OTPExpiry = expiry
		u.OTPAttempts = 0
	})
}

func (m *Memory) IncrementOTPAttempts(_ context.Context, id string) error {
	return m.update(id, func(u *authcore.User) {
		u.OTPAttempts++
	})
}

func (m *Memory) ClearOTP(_ context.Context, id string) error {
	return m.update(id, func(u *authcore.User) {
		u.OTPDigest = ""
		u.OTPExpiry = time.Time{}
		u.OTPAttempts = 0
	})
}

func (m *Memory) update(id string, mutate func(*authcore.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return authcore.ErrUserNotFound
	}
	mutate(&u)
	m.byID[id] = u
	return nil
}
