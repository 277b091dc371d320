package api

import (
	"errors"
	"fmt"
	"log"

	"alihamza/deceptron/internal/domain"
	"alihamza/deceptron/internal/repository"
	"alihamza/deceptron/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullname"`
	Title    string `json:"title"`
}

type LoginRequest struct {
	// Identity accepts either the email or the username.
	Identity string `json:"identity" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string          `json:"token"`
	User  *domain.Account `json:"user"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Title string `json:"title"`
}

type UpdateAvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// --- Handler Methods ---

// Signup registers a new account. Duplicate-identity failures surface
// their specific message so the UI can point at the offending field.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}

	account := &domain.Account{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Title:    req.Title,
	}
	err := h.authService.Signup(c.Request.Context(), account, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrUsernameTaken):
			fail(c, err.Error())
		default:
			log.Printf("ERROR: signup for %s: %v", req.Username, err)
			fail(c, "Could not complete registration")
		}
		return
	}
	ok(c, nil)
}

// Login authenticates and returns a token plus the account projection.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, account, err := h.authService.Login(c.Request.Context(), req.Identity, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			fail(c, "Invalid credentials")
		} else {
			log.Printf("ERROR: login for %s: %v", req.Identity, err)
			fail(c, "Could not complete login")
		}
		return
	}
	ok(c, LoginResponse{Token: token, User: account})
}

// Logout exists for UI compatibility: the session lives in the token the
// client holds, so the server side has nothing to tear down.
func (h *AuthHandler) Logout(c *gin.Context) {
	ok(c, nil)
}

// Me returns the bound account's projection.
func (h *AuthHandler) Me(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	account, err := h.authService.GetAccount(c.Request.Context(), username)
	if err != nil {
		log.Printf("ERROR: loading account %s: %v", username, err)
		fail(c, "Could not load account")
		return
	}
	ok(c, account)
}

// UpdateProfile updates fullname and title for the bound account.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}

	account, err := h.authService.UpdateProfile(c.Request.Context(), username, map[string]any{
		"fullname": req.Name,
		"title":    req.Title,
	})
	if err != nil {
		log.Printf("ERROR: updating profile for %s: %v", username, err)
		fail(c, "Could not update profile")
		return
	}
	ok(c, account)
}

// UpdateAvatar replaces the bound account's avatar blob.
func (h *AuthHandler) UpdateAvatar(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	var req UpdateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}

	account, err := h.authService.UpdateProfile(c.Request.Context(), username, map[string]any{
		"avatar": req.Avatar,
	})
	if err != nil {
		log.Printf("ERROR: updating avatar for %s: %v", username, err)
		fail(c, "Could not update avatar")
		return
	}
	ok(c, account)
}

// UpdatePassword verifies the current credential before storing the new one.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}

	err = h.authService.ChangePassword(c.Request.Context(), username, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrPasswordIncorrect) {
			fail(c, "Current password incorrect")
		} else {
			log.Printf("ERROR: changing password for %s: %v", username, err)
			fail(c, "Could not change password")
		}
		return
	}
	ok(c, nil)
}

// SavePreferences merges the given keys into the stored preference map.
func (h *AuthHandler) SavePreferences(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if len(patch) == 0 {
		fail(c, "No preferences given")
		return
	}

	account, err := h.authService.SetPreferences(c.Request.Context(), username, patch)
	if err != nil {
		log.Printf("ERROR: saving preferences for %s: %v", username, err)
		fail(c, "Could not save preferences")
		return
	}
	ok(c, account.Preferences)
}

// LoadPreferences returns the stored preference map.
func (h *AuthHandler) LoadPreferences(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	prefs, err := h.authService.GetPreferences(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			fail(c, msgNotLoggedIn)
		} else {
			log.Printf("ERROR: loading preferences for %s: %v", username, err)
			fail(c, "Could not load preferences")
		}
		return
	}
	ok(c, prefs)
}
