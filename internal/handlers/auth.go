package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
)

const oauthStateCookie = "oauth_state"

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error)
	GoogleEnabled() bool
	GoogleLogin(ctx context.Context, idToken string) (*models.AuthResult, error)
	GoogleAuthURL(ctx context.Context) (string, string, error)
	GoogleCallback(ctx context.Context, code, state, expectedState string) (*models.AuthResult, error)
}

type AuthHandler struct {
	*Responder
	authService authService
	frontendURL string
}

func NewAuthHandler(rs *Responder, authService authService, frontendURL string) *AuthHandler {
	return &AuthHandler{Responder: rs, authService: authService, frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Failed to register user")
		return
	}

	h.created(w, result, "User registered successfully")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Failed to login")
		return
	}

	h.ok(w, result, "Login successful")
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err, "Invalid refresh token")
		return
	}

	h.ok(w, tokens, "")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.LogoutRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		h.fail(w, r, err, "Failed to logout")
		return
	}

	h.ok(w, nil, "Logged out successfully")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err, "Failed to get user profile")
		return
	}

	h.ok(w, user, "")
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		h.fail(w, r, err, "Failed to update profile")
		return
	}

	h.ok(w, user, "Profile updated successfully")
}

// GoogleToken signs in with an ID token the browser obtained from Google.
func (h *AuthHandler) GoogleToken(w http.ResponseWriter, r *http.Request) {
	var req models.GoogleLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authService.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		h.fail(w, r, err, "Google sign-in failed")
		return
	}

	h.ok(w, result, "Login successful")
}

// GoogleRedirect starts the consent flow and binds the state to a short-lived cookie.
func (h *AuthHandler) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	if !h.authService.GoogleEnabled() {
		h.errorResp(w, r, http.StatusNotFound, "Google sign-in is not configured")
		return
	}

	authURL, state, err := h.authService.GoogleAuthURL(r.Context())
	if err != nil {
		h.fail(w, r, err, "Google sign-in failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   !h.devMode,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback finishes the consent flow and hands the tokens to the frontend.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	expected := ""
	if c, err := r.Cookie(oauthStateCookie); err == nil {
		expected = c.Value
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/api/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.devMode,
		SameSite: http.SameSiteLaxMode,
	})

	q := r.URL.Query()
	result, err := h.authService.GoogleCallback(r.Context(), q.Get("code"), q.Get("state"), expected)
	if err != nil {
		h.logger.Warn("google callback failed", "request_id", middleware.GetRequestID(r.Context()), "error", err)
		http.Redirect(w, r, h.frontendURL+"/auth/error", http.StatusFound)
		return
	}

	params := url.Values{}
	params.Set("token", result.Token)
	params.Set("refreshToken", result.RefreshToken)
	http.Redirect(w, r, h.frontendURL+"/auth/callback?"+params.Encode(), http.StatusFound)
}
