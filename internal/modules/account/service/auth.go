package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/internal/modules/account/dto"
	"anoa.com/mathter/internal/modules/account/repository"
	"anoa.com/mathter/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperror.ErrUnauthorized)

type AuthOptions struct {
	Secret   string
	TokenTTL time.Duration
}

type AuthService interface {
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	// Authenticate resolves a bearer token to a live account.
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}

type authService struct {
	repo     repository.AccountRepository
	secret   string
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(repo repository.AccountRepository, opts AuthOptions) AuthService {
	if opts.Secret == "" {
		opts.Secret = "change-me"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}

	return &authService{
		repo:     repo,
		secret:   opts.Secret,
		tokenTTL: opts.TokenTTL,
		now:      time.Now,
	}
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	login := strings.TrimSpace(input.Login)
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}

	account, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	// anonymized accounts are inactive and carry no hash
	if !account.IsActive || account.PasswordHash == nil {
		return nil, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, account.ID, now); err != nil {
		log.Printf("Failed to update last login for account %d: %v", account.ID, err)
	} else {
		account.LastLogin = &now
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
		Account:     *toAccountResponse(account),
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*entity.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", apperror.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token claims", apperror.ErrUnauthorized)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", apperror.ErrUnauthorized)
	}

	account, err := s.repo.FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: account not found", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if !account.IsActive {
		return nil, fmt.Errorf("%w: account is inactive", apperror.ErrUnauthorized)
	}

	return account, nil
}

func (s *authService) generateToken(account *entity.User) (string, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(account.ID), 10),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}
