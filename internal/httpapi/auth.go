package httpapi

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"articleregistry/backend/internal/domain"
)

const tokenIssuer = "articleregistry"

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid or expired token")
)

// AuthManager issues and checks access tokens for the single sales agent
// account configured at startup.
type AuthManager struct {
	secret       []byte
	tokenTTL     time.Duration
	username     string
	passwordHash string
	now          func() time.Time
}

func NewAuthManager(secret string, tokenTTL time.Duration, username string, password string) (*AuthManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, errors.New("agent credentials are required")
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &AuthManager{
		secret:       []byte(secret),
		tokenTTL:     tokenTTL,
		username:     username,
		passwordHash: hash,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (a *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if !strings.EqualFold(username, a.username) || !verifyPassword(a.passwordHash, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(a.username, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &jwtlib.RegisteredClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub != a.username {
		return domain.Actor{}, errInvalidToken
	}
	return domain.Actor{Username: sub}, nil
}

func (a *AuthManager) sign(username string, expiresAt time.Time) (string, error) {
	claims := jwtlib.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwtlib.NewNumericDate(a.now()),
		ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		Issuer:    tokenIssuer,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
