package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"lendledger/internal/domain"
	"lendledger/internal/logger"
	"lendledger/internal/security"
)

type authService struct {
	tokens            security.TokenManager
	adminPrincipal    string
	adminPasswordHash string
}

func NewAuthService(tokens security.TokenManager, adminPrincipal, adminPasswordHash string) AuthService {
	return &authService{
		tokens:            tokens,
		adminPrincipal:    adminPrincipal,
		adminPasswordHash: adminPasswordHash,
	}
}

func (s *authService) Login(ctx context.Context, principal, password string) (string, error) {
	logger.EnterMethod("authService.Login", "principal", principal)

	if principal != s.adminPrincipal || s.adminPrincipal == "" {
		return "", domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password)); err != nil {
		logger.ExitMethodWithError("authService.Login", domain.ErrUnauthorized, "principal", principal)
		return "", domain.ErrUnauthorized
	}

	token, err := s.tokens.GenerateAccessToken(principal, true)
	if err != nil {
		return "", err
	}

	logger.ExitMethod("authService.Login", "principal", principal)
	return token, nil
}

func (s *authService) IssueAccountToken(ctx context.Context, caller, account string) (string, error) {
	logger.EnterMethod("authService.IssueAccountToken", "caller", caller, "account", account)

	if caller != s.adminPrincipal || s.adminPrincipal == "" {
		return "", domain.ErrUnauthorized
	}
	if account == "" {
		return "", domain.ErrInvalidAddress
	}

	token, err := s.tokens.GenerateAccessToken(account, false)
	if err != nil {
		return "", err
	}

	logger.ExitMethod("authService.IssueAccountToken", "account", account)
	return token, nil
}
