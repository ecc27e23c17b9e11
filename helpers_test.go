package authcore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nystai-labs/authcore/password"
)

// mockStore is an in-memory CredentialStore with call counters, so tests can
// assert which lookups were served from cache.
type mockStore struct {
	mu      sync.Mutex
	byID    map[string]User
	byEmail map[string]string
	nextID  int

	createErr     error
	updateHashErr error
	clearOTPErr   error

	findByEmailCalls    int
	findByIDCalls       int
	listCalls           int
	createCalls         int
	updatePasswordCalls int
	updateRoleCalls     int
	setOTPCalls         int
	incrementCalls      int
	clearOTPCalls       int
}

func newMockStore() *mockStore {
	return &mockStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (m *mockStore) FindByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByEmailCalls++

	id, ok := m.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *mockStore) FindByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByIDCalls++

	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockStore) List(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	users := make([]User, 0, len(m.byID))
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

func (m *mockStore) Create(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return User{}, m.createErr
	}
	if _, exists := m.byEmail[u.Email]; exists {
		return User{}, ErrDuplicateEmail
	}

	if u.ID == "" {
		m.nextID++
		u.ID = fmt.Sprintf("u%d", m.nextID)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	m.byID[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return u, nil
}

func (m *mockStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++

	if m.updateHashErr != nil {
		return m.updateHashErr
	}
	return m.mutate(id, func(u *User) {
		u.PasswordHash = hash
	})
}

func (m *mockStore) UpdateRole(_ context.Context, id string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateRoleCalls++

	return m.mutate(id, func(u *User) {
		u.Role = role
	})
}

func (m *mockStore) SetOTP(_ context.Context, id, digest string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setOTPCalls++

	return m.mutate(id, func(u *User) {
		u.OTPDigest = digest
		u.OTPExpiry = expiry
		u.OTPAttempts = 0
	})
}

func (m *mockStore) IncrementOTPAttempts(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrementCalls++

	return m.mutate(id, func(u *User) {
		u.OTPAttempts++
	})
}

func (m *mockStore) ClearOTP(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearOTPCalls++

	if m.clearOTPErr != nil {
		return m.clearOTPErr
	}
	return m.mutate(id, func(u *User) {
		u.OTPDigest = ""
		u.OTPExpiry = time.Time{}
		u.OTPAttempts = 0
	})
}

// mutate must be called with m.mu held.
func (m *mockStore) mutate(id string, fn func(*User)) error {
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(&u)
	m.byID[id] = u
	return nil
}

func (m *mockStore) user(t *testing.T, id string) User {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		t.Fatalf("user %q not in store", id)
	}
	return u
}

// recorderNotifier records delivered codes and can be told to fail.
type recorderNotifier struct {
	mu           sync.Mutex
	calls        int
	lastEmail    string
	lastCode     string
	lastValidity time.Duration
	err          error
}

func (n *recorderNotifier) DeliverOTP(_ context.Context, email, code string, validity time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls++
	n.lastEmail = email
	n.lastCode = code
	n.lastValidity = validity
	return n.err
}

func (n *recorderNotifier) code(t *testing.T) string {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lastCode == "" {
		t.Fatal("no code was delivered")
	}
	return n.lastCode
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	// bcrypt.MinCost keeps the suite fast.
	cfg.Password.Cost = 4
	return cfg
}

func newTestEngine(t *testing.T, st CredentialStore, n Notifier, opts ...func(*Builder)) *Engine {
	t.Helper()

	b := New().
		WithConfig(testConfig()).
		WithStore(st).
		WithNotifier(n).
		WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func hashFor(t *testing.T, pass string, cost int) string {
	t.Helper()

	hasher, err := password.NewBcrypt(password.Config{Cost: cost})
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}
	hash, err := hasher.Hash(pass)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return hash
}

func seedUser(t *testing.T, st *mockStore, email, pass string, role Role) User {
	t.Helper()

	created, err := st.Create(context.Background(), User{
		Name:         "Seed User",
		Email:        email,
		PasswordHash: hashFor(t, pass, 4),
		Role:         role,
	})
	if err != nil {
		t.Fatalf("seed Create failed: %v", err)
	}
	return created
}

func makeDifferentOTP(current string) string {
	if current == "" {
		return "000000"
	}

	first := current[0]
	replacement := byte('0')
	if first == '0' {
		replacement = '1'
	}

	return string(replacement) + current[1:]
}
