package auth

import (
	"testing"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepo) Create(u *models.User) error {
	for _, ex := range f.users {
		if ex.Email == u.Email || ex.Phone == u.Phone {
			return repositories.ErrDuplicateUser
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.TokenVersion == 0 {
		u.TokenVersion = 1
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) GetByPhone(phone string) (*models.User, error) {
	for _, u := range f.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) Update(u *models.User) error {
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) IncrementTokenVersion(id uuid.UUID) error {
	u, ok := f.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.TokenVersion++
	return nil
}

func registerRequest(email, phone string) RegisterRequest {
	return RegisterRequest{
		Email:     email,
		Phone:     phone,
		Password:  "str0ng!pass",
		FirstName: "Wanjiku",
		LastName:  "Kamau",
		Role:      models.RoleMember,
	}
}

func TestRegister(t *testing.T) {
	t.Run("hashes password and normalizes email", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewService(repo)

		u, err := svc.Register(registerRequest("  Wanjiku@Example.COM ", "+254700000001"))
		require.NoError(t, err)
		assert.Equal(t, "wanjiku@example.com", u.Email)
		assert.NotEqual(t, "str0ng!pass", u.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("str0ng!pass")))
	})

	t.Run("weak passwords rejected", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewService(repo)

		req := registerRequest("a@example.com", "+254700000002")
		req.Password = "short!"
		_, err := svc.Register(req)
		assert.ErrorIs(t, err, ErrWeakPassword)

		req.Password = "longenoughbutplain"
		_, err = svc.Register(req)
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("unknown role defaults to member", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewService(repo)

		req := registerRequest("b@example.com", "+254700000003")
		req.Role = "SUPERUSER"
		u, err := svc.Register(req)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, u.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewService(repo)

		_, err := svc.Register(registerRequest("c@example.com", "+254700000004"))
		require.NoError(t, err)
		_, err = svc.Register(registerRequest("c@example.com", "+254700000005"))
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := newFakeUserRepo()
	svc := NewService(repo)
	_, err := svc.Register(registerRequest("login@example.com", "+254700000006"))
	require.NoError(t, err)

	t.Run("by email", func(t *testing.T) {
		u, access, refresh, err := svc.Login("login@example.com", "", "str0ng!pass")
		require.NoError(t, err)
		assert.Equal(t, "login@example.com", u.Email)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
	})

	t.Run("by phone", func(t *testing.T) {
		_, access, _, err := svc.Login("", "+254700000006", "str0ng!pass")
		require.NoError(t, err)
		assert.NotEmpty(t, access)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.Login("login@example.com", "", "wrong!pass1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, _, err := svc.Login("nobody@example.com", "", "str0ng!pass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefreshTokens(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := newFakeUserRepo()
	svc := NewService(repo)
	u, err := svc.Register(registerRequest("refresh@example.com", "+254700000007"))
	require.NoError(t, err)

	_, _, refresh, err := svc.Login("refresh@example.com", "", "str0ng!pass")
	require.NoError(t, err)

	access, newRefresh, err := svc.RefreshTokens(refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, newRefresh)

	// Logout bumps the token version, stranding outstanding tokens.
	require.NoError(t, svc.Logout(u.ID))
	_, _, err = svc.RefreshTokens(refresh)
	assert.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := newFakeUserRepo()
	svc := NewService(repo)
	u, err := svc.Register(registerRequest("change@example.com", "+254700000008"))
	require.NoError(t, err)

	assert.Error(t, svc.ChangePassword(u.ID, "wrong!pass1", "n3w!password"))
	assert.ErrorIs(t, svc.ChangePassword(u.ID, "str0ng!pass", "weak"), ErrWeakPassword)

	before := repo.users[u.ID].TokenVersion
	require.NoError(t, svc.ChangePassword(u.ID, "str0ng!pass", "n3w!password"))
	assert.Equal(t, before+1, repo.users[u.ID].TokenVersion)

	_, _, _, err = svc.Login("change@example.com", "", "n3w!password")
	assert.NoError(t, err)
}
