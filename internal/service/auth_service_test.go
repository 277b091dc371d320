package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"alihamza/deceptron/internal/domain"
	"alihamza/deceptron/internal/recordstore"
	"alihamza/deceptron/internal/repository"
	"alihamza/deceptron/internal/repository/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (AuthService, repository.AccountRepository) {
	t.Helper()
	store, err := recordstore.Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	accounts := record.NewAccountRepository(store)
	s := NewAuthService(accounts, "test-secret", time.Hour)
	// Drain background writes before the temp dir is torn down.
	t.Cleanup(func() { _ = s.Close() })
	return s, accounts
}

func signupTestAccount(t *testing.T, s AuthService) {
	t.Helper()
	err := s.Signup(context.Background(), &domain.Account{
		Username: "amara",
		Email:    "amara@example.com",
		FullName: "Amara K",
		Title:    "Analyst",
	}, "hunter22")
	require.NoError(t, err)
}

func TestSignupRejectsDuplicates(t *testing.T) {
	s, accounts := newAuthService(t)
	ctx := context.Background()
	signupTestAccount(t, s)

	err := s.Signup(ctx, &domain.Account{Username: "other", Email: "amara@example.com"}, "pw123456")
	require.ErrorIs(t, err, ErrEmailTaken)

	err = s.Signup(ctx, &domain.Account{Username: "amara", Email: "other@example.com"}, "pw123456")
	require.ErrorIs(t, err, ErrUsernameTaken)

	// Still exactly one account under that identity.
	taken, err := accounts.ExistsUsername(ctx, "amara")
	require.NoError(t, err)
	assert.True(t, taken)
	_, err = accounts.GetByIdentity(ctx, "other@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSignupHashesCredential(t *testing.T) {
	s, accounts := newAuthService(t)
	signupTestAccount(t, s)

	stored, err := accounts.GetByUsername(context.Background(), "amara")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", stored.Password)
	assert.NotEmpty(t, stored.Password)
}

func TestLoginByEmailAndUsername(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()
	signupTestAccount(t, s)

	token, account, err := s.Login(ctx, "amara@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "amara", account.Username)
	// Projection never carries the credential.
	assert.Empty(t, account.Password)

	_, account, err = s.Login(ctx, "amara", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "amara@example.com", account.Email)
}

func TestLoginFailures(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()
	signupTestAccount(t, s)

	_, _, err := s.Login(ctx, "amara", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = s.Login(ctx, "nobody", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = s.Login(ctx, "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRecordsLastLogin(t *testing.T) {
	s, accounts := newAuthService(t)
	ctx := context.Background()
	signupTestAccount(t, s)

	_, _, err := s.Login(ctx, "amara", "hunter22")
	require.NoError(t, err)

	// The update is fired asynchronously; the login result never waits
	// for it. Close drains the write, after which it must be visible.
	require.NoError(t, s.Close())
	stored, err := accounts.GetByUsername(ctx, "amara")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.LastLogin)
}

func TestCloseDrainsBackgroundWrites(t *testing.T) {
	s, accounts := newAuthService(t)
	ctx := context.Background()
	signupTestAccount(t, s)

	for i := 0; i < 3; i++ {
		_, _, err := s.Login(ctx, "amara", "hunter22")
		require.NoError(t, err)
	}

	// After Close returns, no goroutine may touch the store again.
	require.NoError(t, s.Close())
	stored, err := accounts.GetByUsername(ctx, "amara")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.LastLogin)
}

func TestUpdateProfileRoundTrip(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()
	signupTestAccount(t, s)

	account, err := s.UpdateProfile(ctx, "amara", map[string]any{"fullname": "A"})
	require.NoError(t, err)
	assert.Equal(t, "A", account.FullName)
	assert.Equal(t, "Analyst", account.Title) // untouched
	assert.Empty(t, account.Password)

	// The credential cannot be smuggled through a profile patch.
	_, err = s.UpdateProfile(ctx, "amara", map[string]any{"password": "owned"})
	require.Error(t, err)
	_, _, err = s.Login(ctx, "amara", "hunter22")
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()
	signupTestAccount(t, s)

	err := s.ChangePassword(ctx, "amara", "wrong", "newpass99")
	require.ErrorIs(t, err, ErrPasswordIncorrect)
	_, _, err = s.Login(ctx, "amara", "hunter22")
	require.NoError(t, err)

	require.NoError(t, s.ChangePassword(ctx, "amara", "hunter22", "newpass99"))
	_, _, err = s.Login(ctx, "amara", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = s.Login(ctx, "amara", "newpass99")
	require.NoError(t, err)
}

func TestPreferencesMergeNonDestructively(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()
	signupTestAccount(t, s)

	_, err := s.SetPreferences(ctx, "amara", map[string]any{"camera": "front", "mic": "usb"})
	require.NoError(t, err)

	account, err := s.SetPreferences(ctx, "amara", map[string]any{"mic": "builtin"})
	require.NoError(t, err)
	assert.Equal(t, "front", account.Preferences["camera"])
	assert.Equal(t, "builtin", account.Preferences["mic"])

	prefs, err := s.GetPreferences(ctx, "amara")
	require.NoError(t, err)
	assert.Len(t, prefs, 2)
}

func TestGetPreferencesEmptyByDefault(t *testing.T) {
	s, _ := newAuthService(t)
	signupTestAccount(t, s)

	prefs, err := s.GetPreferences(context.Background(), "amara")
	require.NoError(t, err)
	assert.NotNil(t, prefs)
	assert.Empty(t, prefs)
}
