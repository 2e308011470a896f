package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/invitera/invitera/backend-go/internal/editor"
	"github.com/invitera/invitera/backend-go/internal/store"
	"github.com/invitera/invitera/backend-go/internal/typeid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

type Service struct {
	store     store.Store
	jwtSecret []byte
}

func NewService(st store.Store, jwtSecret string) *Service {
	return &Service{
		store:     st,
		jwtSecret: []byte(jwtSecret),
	}
}

type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// Register creates an account. Role defaults to creator; "consumer" is
// normalized to user, and admin cannot be self-assigned.
func (s *Service) Register(ctx context.Context, email, password, displayName, role string) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role = editor.NormalizeRole(role)
	switch role {
	case "", editor.RoleCreator:
		role = editor.RoleCreator
	case editor.RoleUser:
	default:
		return nil, fmt.Errorf("role %q cannot be self-assigned", role)
	}

	u := &store.User{
		ID:           typeid.NewUserID(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         role,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: publicUser(u)}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: publicUser(u)}, nil
}

func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return "", errors.New("invalid token subject")
	}

	return userID, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	pub := publicUser(u)
	return &pub, nil
}

func (s *Service) issueToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func publicUser(u *store.User) User {
	return User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
}
