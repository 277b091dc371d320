package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"alihamza/deceptron/internal/domain"
	"alihamza/deceptron/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordIncorrect  = errors.New("current password incorrect")
	ErrHashingFailed      = errors.New("failed to hash password")
	ErrTokenGeneration    = errors.New("failed to generate authentication token")
)

// AuthService is the only component that sees or compares credential
// material. Everything it returns to callers is a credential-free
// projection.
type AuthService interface {
	Signup(ctx context.Context, account *domain.Account, password string) error
	Login(ctx context.Context, identity, password string) (token string, account *domain.Account, err error)
	GetAccount(ctx context.Context, username string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, username string, patch map[string]any) (*domain.Account, error)
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error
	SetPreferences(ctx context.Context, username string, patch map[string]any) (*domain.Account, error)
	GetPreferences(ctx context.Context, username string) (map[string]any, error)
	GetJWTSecret() string
	// Close waits for any in-flight background writes (the last_login
	// follow-up) to finish. Call it before closing the record store.
	Close() error
}

// authService implements the AuthService interface.
type authService struct {
	accounts      repository.AccountRepository
	jwtSecret     string
	jwtExpiration time.Duration
	background    sync.WaitGroup
}

// NewAuthService creates a new instance of authService.
func NewAuthService(accounts repository.AccountRepository, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = 12 * time.Hour
	}
	return &authService{
		accounts:      accounts,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Signup registers a new account. Both uniqueness constraints are checked
// before the insert; the check-then-insert pair is not atomic, which is
// an accepted trade-off for a single-user desktop install.
func (s *authService) Signup(ctx context.Context, account *domain.Account, password string) error {
	if account.Username == "" || account.Email == "" || password == "" {
		return errors.New("username, email and password cannot be empty")
	}

	taken, err := s.accounts.ExistsEmail(ctx, account.Email)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}

	taken, err = s.accounts.ExistsUsername(ctx, account.Username)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ErrHashingFailed
	}
	account.Password = string(hashed)

	return s.accounts.Create(ctx, account)
}

// Login authenticates by email or username plus password and returns a
// signed token with a credential-free projection. A successful login
// records last_login as a best-effort follow-up: the update runs
// asynchronously and its failure never fails the login.
func (s *authService) Login(ctx context.Context, identity, password string) (string, *domain.Account, error) {
	if identity == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateJWT(account)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	username := account.Username
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		// Detached from the request context on purpose: the login
		// response must not wait on this write.
		patch := map[string]any{"last_login": time.Now().Format(domain.TimestampLayout)}
		if err := s.accounts.Patch(context.Background(), username, patch); err != nil {
			log.Printf("WARN: could not record last_login for %s: %v", username, err)
		}
	}()

	return token, account.Projection(), nil
}

// GetAccount returns the credential-free projection for a username.
func (s *authService) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return account.Projection(), nil
}

// UpdateProfile merges the patch into the stored account and returns the
// updated projection. The credential and the identity keys never travel
// through this path.
func (s *authService) UpdateProfile(ctx context.Context, username string, patch map[string]any) (*domain.Account, error) {
	fields := make(map[string]any, len(patch))
	for k, v := range patch {
		switch k {
		case "password", "username", "email":
			continue
		}
		fields[k] = v
	}
	if len(fields) == 0 {
		return nil, errors.New("nothing to update")
	}

	if err := s.accounts.Patch(ctx, username, fields); err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, username)
}

// ChangePassword re-reads the stored credential, verifies the current
// password and only then writes the new hash. The verify-then-update pair
// is not atomic across the two store calls.
func (s *authService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	if newPassword == "" {
		return errors.New("new password cannot be empty")
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(currentPassword)); err != nil {
		return ErrPasswordIncorrect
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrHashingFailed
	}
	return s.accounts.Patch(ctx, username, map[string]any{"password": string(hashed)})
}

// SetPreferences merges the patch into the stored preference map without
// disturbing keys the patch does not mention, then returns the updated
// projection.
func (s *authService) SetPreferences(ctx context.Context, username string, patch map[string]any) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]any, len(account.Preferences)+len(patch))
	for k, v := range account.Preferences {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}

	if err := s.accounts.Patch(ctx, username, map[string]any{"preferences": merged}); err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, username)
}

// GetPreferences returns the stored preference map (never nil).
func (s *authService) GetPreferences(ctx context.Context, username string) (map[string]any, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if account.Preferences == nil {
		return map[string]any{}, nil
	}
	return account.Preferences, nil
}

// --- JWT Helper ---

// Claims defines the structure of the JWT payload. The middleware in the
// api package parses the same structure.
type Claims struct {
	Username string `json:"uname"`
	jwt.RegisteredClaims
}

// generateJWT creates a new signed token for the given account.
func (s *authService) generateJWT(account *domain.Account) (string, error) {
	expirationTime := time.Now().Add(s.jwtExpiration)
	claims := &Claims{
		Username: account.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Username,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "deceptron",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// GetJWTSecret returns the JWT secret for middleware authentication.
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}

// Close drains the background last_login writes so no write can race
// the record store's own shutdown.
func (s *authService) Close() error {
	s.background.Wait()
	return nil
}
