package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const UserIDKey contextKey = "user_id"

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// JWTAuth signs and verifies HS256 tokens. Access and refresh tokens use separate secrets.
type JWTAuth struct {
	Secret        []byte
	RefreshSecret []byte
}

func NewJWTAuth(secret, refreshSecret string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret), RefreshSecret: []byte(refreshSecret)}
}

// GenerateAccessToken creates a JWT with 15 minute expiry
func (j *JWTAuth) GenerateAccessToken(userID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"email":   email,
		"type":    tokenTypeAccess,
		"exp":     now.Add(AccessTokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// GenerateRefreshToken returns a signed 7 day refresh token and its jti.
func (j *JWTAuth) GenerateRefreshToken(userID uuid.UUID) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"type":    tokenTypeRefresh,
		"jti":     jti,
		"exp":     now.Add(RefreshTokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

func (j *JWTAuth) ParseAccessToken(tokenStr string) (uuid.UUID, error) {
	claims, err := parse(tokenStr, j.Secret, tokenTypeAccess)
	if err != nil {
		return uuid.Nil, err
	}
	return userIDFromClaims(claims)
}

// ParseRefreshToken returns the user id and jti of a valid refresh token.
func (j *JWTAuth) ParseRefreshToken(tokenStr string) (uuid.UUID, string, error) {
	claims, err := parse(tokenStr, j.RefreshSecret, tokenTypeRefresh)
	if err != nil {
		return uuid.Nil, "", err
	}
	userID, err := userIDFromClaims(claims)
	if err != nil {
		return uuid.Nil, "", err
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return uuid.Nil, "", ErrTokenInvalid
	}
	return userID, jti, nil
}

func parse(tokenStr string, secret []byte, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if typ, _ := claims["type"].(string); typ != wantType {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func userIDFromClaims(claims jwt.MapClaims) (uuid.UUID, error) {
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, ErrTokenInvalid
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return userID, nil
}

// Middleware validates the bearer token and attaches user_id to context
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Access token required", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "Invalid authorization format", r)
			return
		}

		userID, err := j.ParseAccessToken(parts[1])
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "Invalid token", r)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts user_id from request context
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}
