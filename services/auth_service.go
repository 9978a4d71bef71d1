package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/repositories"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const jwtClaimAccount = "account"

type AuthService interface {
	// CreateAccount registers address and returns its API key. The key is
	// only ever returned here; the store keeps its bcrypt hash.
	CreateAccount(ctx context.Context, address models.Address) (*models.Account, string, error)
	// RotateKey replaces the API key of an existing account.
	RotateKey(ctx context.Context, address models.Address) (string, error)
	IssueToken(ctx context.Context, address models.Address, apiKey string) (string, time.Time, error)
	ParseToken(token string) (models.Address, error)
}

type authService struct {
	accounts   repositories.AccountRepository
	contests   repositories.ContestRepository
	registries repositories.RegistryRepository
	secret     []byte
	ttl        time.Duration
	now        func() time.Time
}

// NewAuthService refuses accounts for contest and registry handles so that
// no API key can ever act as an escrow.
func NewAuthService(
	accounts repositories.AccountRepository,
	contests repositories.ContestRepository,
	registries repositories.RegistryRepository,
	jwtSecret string,
	ttl time.Duration,
) AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		accounts:   accounts,
		contests:   contests,
		registries: registries,
		secret:     []byte(jwtSecret),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *authService) CreateAccount(ctx context.Context, address models.Address) (*models.Account, string, error) {
	if !address.Valid() {
		return nil, "", fmt.Errorf("%w: account address is required", ErrValidationFailed)
	}
	if err := checkNotReserved(ctx, s.contests, s.registries, address); err != nil {
		return nil, "", err
	}
	key, hash, err := newAPIKey()
	if err != nil {
		return nil, "", err
	}
	account := &models.Account{Address: address, KeyHash: hash}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, "", handleRepositoryError(err)
	}
	account.KeyHash = ""
	return account, key, nil
}

func (s *authService) RotateKey(ctx context.Context, address models.Address) (string, error) {
	key, hash, err := newAPIKey()
	if err != nil {
		return "", err
	}
	if err := s.accounts.UpdateKeyHash(ctx, address, hash); err != nil {
		return "", handleRepositoryError(err)
	}
	return key, nil
}

func (s *authService) IssueToken(ctx context.Context, address models.Address, apiKey string) (string, time.Time, error) {
	account, err := s.accounts.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return "", time.Time{}, ErrInvalidCredentials
		}
		return "", time.Time{}, fmt.Errorf("failed to find account: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(account.KeyHash), []byte(apiKey))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", time.Time{}, ErrInvalidCredentials
		}
		return "", time.Time{}, fmt.Errorf("failed to compare api key hash: %w", err)
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.MapClaims{
		jwtClaimAccount: account.Address.String(),
		"exp":           expires.Unix(),
		"iat":           now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

func (s *authService) ParseToken(tokenString string) (models.Address, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrAuthenticationFailed
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrAuthenticationFailed
	}
	account, ok := claims[jwtClaimAccount].(string)
	if !ok || account == "" {
		return "", ErrAuthenticationFailed
	}
	return models.NormalizeAddress(account), nil
}

func newAPIKey() (key, hash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate api key: %w", err)
	}
	key = hex.EncodeToString(raw)
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return key, string(hashed), nil
}
