package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid role")
)

// Claims is the JWT payload issued at login
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RegisterInput carries a signup request
type RegisterInput struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=8"`
	Role          string `json:"role"`
	Organization  string `json:"organization"`
	WalletAddress string `json:"wallet_address"`
}

type Service struct {
	repo      Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewService(repo Repository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	role := input.Role
	if role == "" {
		role = RoleBuyer
	}
	if role != RoleNGO && role != RoleBuyer && role != RoleAdmin {
		return nil, ErrInvalidRole
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &Profile{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Organization: input.Organization,
	}
	if input.WalletAddress != "" {
		profile.WalletAddress = &input.WalletAddress
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("profile registered",
		zap.String("profile_id", profile.ID.String()),
		zap.String("role", profile.Role))
	return profile, nil
}

// Login verifies credentials and returns a signed token with the profile.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Profile, error) {
	profile, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		Role: profile.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, profile, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GetProfile looks up a profile by id.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateWallet sets the minting recipient address for the profile.
func (s *Service) UpdateWallet(ctx context.Context, id uuid.UUID, address string) (*Profile, error) {
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile.WalletAddress = &address
	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update wallet address: %w", err)
	}
	return profile, nil
}
