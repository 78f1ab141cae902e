package authsvc_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/authsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/userrepo"
	"github.com/yusufsyaifudin/pdfmailer/pkg/cache"
	"golang.org/x/crypto/bcrypt"
)

type seqUID struct {
	mu sync.Mutex
	n  uint64
}

func (s *seqUID) NextID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n, nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]userrepo.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]userrepo.User{}}
}

func (m *memUserRepo) Create(_ context.Context, in userrepo.InputCreate) (userrepo.OutCreate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(in.User.Email)
	if _, ok := m.users[key]; ok {
		return userrepo.OutCreate{}, userrepo.ErrDuplicate
	}

	m.users[key] = in.User
	return userrepo.OutCreate{User: in.User}, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, in userrepo.InputGetByEmail) (userrepo.OutGetByEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[strings.ToLower(in.Email)]
	if !ok {
		return userrepo.OutGetByEmail{}, userrepo.ErrNotFound
	}

	return userrepo.OutGetByEmail{User: u}, nil
}

func (m *memUserRepo) GetByID(_ context.Context, in userrepo.InputGetByID) (userrepo.OutGetByID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID == in.ID {
			return userrepo.OutGetByID{User: u}, nil
		}
	}

	return userrepo.OutGetByID{}, userrepo.ErrNotFound
}

func newService(t *testing.T, sessions cache.Cache, now func() time.Time) *authsvc.DefaultService {
	t.Helper()

	svc, err := authsvc.New(authsvc.Config{
		UserRepo:      newMemUserRepo(),
		UIDGen:        &seqUID{},
		Sessions:      sessions,
		SessionExpiry: time.Hour,
		BcryptCost:    bcrypt.MinCost,
		Now:           now,
	})
	require.NoError(t, err)
	return svc
}

func inMemory(t *testing.T) *cache.InMemory {
	t.Helper()

	c, err := cache.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

func TestNew(t *testing.T) {
	svc, err := authsvc.New(authsvc.Config{UIDGen: &seqUID{}})
	assert.Error(t, err)
	assert.Nil(t, svc)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, inMemory(t), nil)

	out, err := svc.Register(ctx, authsvc.InputRegister{Email: " alice@example.com ", Name: "Alice", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.User.ID)
	assert.Equal(t, "alice@example.com", out.User.Email)

	_, err = svc.Register(ctx, authsvc.InputRegister{Email: "alice@example.com", Name: "Alice", Password: "secret123"})
	assert.ErrorIs(t, err, authsvc.ErrEmailTaken)

	_, err = svc.Register(ctx, authsvc.InputRegister{Email: "bob@example.com", Name: " ", Password: "secret123"})
	assert.ErrorIs(t, err, authsvc.ErrValidation)

	_, err = svc.Register(ctx, authsvc.InputRegister{Email: "bob@example.com", Name: "Bob", Password: "123"})
	assert.ErrorIs(t, err, authsvc.ErrValidation)
}

func TestLoginAuthenticateLogout(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, inMemory(t), nil)

	_, err := svc.Register(ctx, authsvc.InputRegister{Email: "alice@example.com", Name: "Alice", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, authsvc.InputLogin{Email: "alice@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)

	_, err = svc.Login(ctx, authsvc.InputLogin{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)

	login, err := svc.Login(ctx, authsvc.InputLogin{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Len(t, login.Token, 64)
	assert.Equal(t, "Alice", login.Session.User.Name)

	auth, err := svc.Authenticate(ctx, authsvc.InputAuthenticate{Token: login.Token})
	require.NoError(t, err)
	assert.Equal(t, login.Session.User, auth.Session.User)

	_, err = svc.Authenticate(ctx, authsvc.InputAuthenticate{Token: "unknown"})
	assert.ErrorIs(t, err, authsvc.ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, authsvc.InputAuthenticate{})
	assert.ErrorIs(t, err, authsvc.ErrUnauthenticated)

	_, err = svc.Logout(ctx, authsvc.InputLogout{Token: login.Token})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, authsvc.InputAuthenticate{Token: login.Token})
	assert.ErrorIs(t, err, authsvc.ErrUnauthenticated)
}

func TestAuthenticate_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, inMemory(t), func() time.Time { return clock })

	_, err := svc.Register(ctx, authsvc.InputRegister{Email: "alice@example.com", Name: "Alice", Password: "secret123"})
	require.NoError(t, err)

	login, err := svc.Login(ctx, authsvc.InputLogin{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	clock = clock.Add(2 * time.Hour)
	_, err = svc.Authenticate(ctx, authsvc.InputAuthenticate{Token: login.Token})
	assert.ErrorIs(t, err, authsvc.ErrUnauthenticated)
}

func TestSessions_Redis(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	sessions, err := cache.NewRedis(cache.RedisConfig{DB: client})
	require.NoError(t, err)

	svc := newService(t, sessions, nil)
	_, err = svc.Register(ctx, authsvc.InputRegister{Email: "alice@example.com", Name: "Alice", Password: "secret123"})
	require.NoError(t, err)

	login, err := svc.Login(ctx, authsvc.InputLogin{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	keys := s.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], authsvc.DefaultSessionPrefix))
	assert.NotContains(t, keys[0], login.Token)
	assert.Equal(t, time.Hour, s.TTL(keys[0]))

	_, err = svc.Authenticate(ctx, authsvc.InputAuthenticate{Token: login.Token})
	require.NoError(t, err)

	// expired by redis
	s.FastForward(time.Hour + time.Second)
	_, err = svc.Authenticate(ctx, authsvc.InputAuthenticate{Token: login.Token})
	assert.ErrorIs(t, err, authsvc.ErrUnauthenticated)
}

func TestInjectExtract(t *testing.T) {
	_, ok := authsvc.Extract(context.Background())
	assert.False(t, ok)

	ctx := authsvc.Inject(context.Background(), authsvc.Session{User: authsvc.User{ID: 9}})
	session, ok := authsvc.Extract(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(9), session.User.ID)
}
