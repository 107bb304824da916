package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/repository"
)

const oauthStateTTL = 10 * time.Minute

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogle(ctx context.Context, userID uuid.UUID, googleID string, avatarURL *string) error
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, name string, prefs models.UserPreferences) (*models.User, error)
}

type sessionStore interface {
	SaveRefresh(ctx context.Context, jti string, userID uuid.UUID, ttl time.Duration) error
	ConsumeRefresh(ctx context.Context, jti string) (uuid.UUID, error)
	RevokeRefresh(ctx context.Context, jti string) error
	SaveOAuthState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) error
}

// IDTokenValidator is satisfied by *idtoken.Validator.
type IDTokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

type AuthService struct {
	users      userStore
	sessions   sessionStore
	jwt        *middleware.JWTAuth
	idTokens   IDTokenValidator
	oauth      *oauth2.Config
	bcryptCost int
	logger     *slog.Logger
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func NewAuthService(users userStore, sessions sessionStore, jwt *middleware.JWTAuth, idTokens IDTokenValidator, g GoogleConfig, logger *slog.Logger) *AuthService {
	s := &AuthService{
		users:      users,
		sessions:   sessions,
		jwt:        jwt,
		idTokens:   idTokens,
		bcryptCost: 12,
		logger:     logger,
	}
	if g.ClientID != "" {
		s.oauth = &oauth2.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	return s
}

func (s *AuthService) GoogleEnabled() bool {
	return s.oauth != nil && s.idTokens != nil
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Message: "Email, password, and name are required", Fields: map[string]string{"name": "is required"}}
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, &ConflictError{Message: "User with this email already exists"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)

	user := &models.User{
		Email:        email,
		PasswordHash: &hashStr,
		Name:         name,
		Preferences:  models.DefaultPreferences(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: "User with this email already exists"}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Invalid email or password"}
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, &UnauthorizedError{Message: "Account is deactivated"}
	}
	if user.PasswordHash == nil {
		return nil, &UnauthorizedError{Message: "This account uses Google sign-in"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid email or password"}
	}

	s.touchLastLogin(ctx, user.ID)
	return s.issueTokens(ctx, user)
}

// touchLastLogin stamps last_login_at; a failure does not block the sign-in.
func (s *AuthService) touchLastLogin(ctx context.Context, userID uuid.UUID) {
	if err := s.users.UpdateLastLogin(ctx, userID); err != nil {
		s.logger.Warn("failed to update last login", "user_id", userID, "error", err)
	}
}

// Refresh rotates a refresh token: the presented one is consumed and a new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	userID, jti, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, &UnauthorizedError{Message: "Invalid refresh token"}
	}

	storedUserID, err := s.sessions.ConsumeRefresh(ctx, jti)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, &UnauthorizedError{Message: "Invalid refresh token"}
		}
		return nil, err
	}
	if storedUserID != userID {
		return nil, &UnauthorizedError{Message: "Invalid refresh token"}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Invalid refresh token"}
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, &UnauthorizedError{Message: "Account is deactivated"}
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &result.TokenPair, nil
}

// Logout revokes the refresh token if one is given; unknown or malformed tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, jti, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	return s.sessions.RevokeRefresh(ctx, jti)
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, NotFoundOr(err, "User not found")
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := user.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, &ValidationError{Fields: map[string]string{"name": "must not be empty"}}
		}
	}

	prefs := user.Preferences
	if prefs.Theme == "" {
		prefs = models.DefaultPreferences()
	}
	prefs = req.Preferences.Apply(prefs)

	updated, err := s.users.UpdateProfile(ctx, userID, name, prefs)
	if err != nil {
		return nil, NotFoundOr(err, "User not found")
	}
	return updated, nil
}

// GoogleLogin signs in with an ID token obtained by the browser.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*models.AuthResult, error) {
	if !s.GoogleEnabled() {
		return nil, &ValidationError{Message: "Google sign-in is not configured", Fields: map[string]string{"google": "Google sign-in is not configured"}}
	}

	payload, err := s.idTokens.Validate(ctx, idToken, s.oauth.ClientID)
	if err != nil {
		return nil, &UnauthorizedError{Message: "Invalid Google token"}
	}

	return s.loginWithGoogleIdentity(ctx, payload)
}

// GoogleAuthURL starts the redirect flow. The returned state must be echoed back to GoogleCallback.
func (s *AuthService) GoogleAuthURL(ctx context.Context) (string, string, error) {
	if !s.GoogleEnabled() {
		return "", "", &ValidationError{Message: "Google sign-in is not configured"}
	}

	state, err := gonanoid.New(32)
	if err != nil {
		return "", "", fmt.Errorf("generate oauth state: %w", err)
	}
	if err := s.sessions.SaveOAuthState(ctx, state, oauthStateTTL); err != nil {
		return "", "", fmt.Errorf("store oauth state: %w", err)
	}

	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), state, nil
}

// GoogleCallback finishes the redirect flow: it checks the state, exchanges the code and signs the user in.
func (s *AuthService) GoogleCallback(ctx context.Context, code, state, expectedState string) (*models.AuthResult, error) {
	if !s.GoogleEnabled() {
		return nil, &ValidationError{Message: "Google sign-in is not configured"}
	}
	if code == "" || state == "" || state != expectedState {
		return nil, &UnauthorizedError{Message: "Invalid OAuth state"}
	}
	if err := s.sessions.ConsumeOAuthState(ctx, state); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, &UnauthorizedError{Message: "Invalid OAuth state"}
		}
		return nil, err
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &UnauthorizedError{Message: "Failed to exchange authorization code"}
	}
	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, &UnauthorizedError{Message: "Google did not return an ID token"}
	}

	payload, err := s.idTokens.Validate(ctx, rawIDToken, s.oauth.ClientID)
	if err != nil {
		return nil, &UnauthorizedError{Message: "Invalid Google token"}
	}
	return s.loginWithGoogleIdentity(ctx, payload)
}

// loginWithGoogleIdentity finds the user by Google id, else links by email, else creates one.
func (s *AuthService) loginWithGoogleIdentity(ctx context.Context, payload *idtoken.Payload) (*models.AuthResult, error) {
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	if email == "" || payload.Subject == "" {
		return nil, &ValidationError{Fields: map[string]string{"google": "Google account missing email"}}
	}

	var avatarURL *string
	if picture != "" {
		avatarURL = &picture
	}

	user, err := s.users.GetByGoogleID(ctx, payload.Subject)
	if err == nil {
		if !user.IsActive {
			return nil, &UnauthorizedError{Message: "Account is deactivated"}
		}
		s.touchLastLogin(ctx, user.ID)
		return s.issueTokens(ctx, user)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	user, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		if !user.IsActive {
			return nil, &UnauthorizedError{Message: "Account is deactivated"}
		}
		if err := s.users.LinkGoogle(ctx, user.ID, payload.Subject, avatarURL); err != nil {
			return nil, err
		}
		googleID := payload.Subject
		user.GoogleID = &googleID
		if user.AvatarURL == nil {
			user.AvatarURL = avatarURL
		}
		s.touchLastLogin(ctx, user.ID)
		return s.issueTokens(ctx, user)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	googleID := payload.Subject
	newUser := &models.User{
		Email:       email,
		Name:        name,
		AvatarURL:   avatarURL,
		GoogleID:    &googleID,
		Preferences: models.DefaultPreferences(),
	}
	if err := s.users.Create(ctx, newUser); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, newUser)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthResult, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, jti, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if err := s.sessions.SaveRefresh(ctx, jti, user.ID, middleware.RefreshTokenTTL); err != nil {
		return nil, err
	}

	return &models.AuthResult{
		User:      user,
		TokenPair: models.TokenPair{Token: accessToken, RefreshToken: refreshToken},
	}, nil
}
