package directory

import (
	"fmt"
	"time"

	"campus-relay/auth"
	"campus-relay/errors"
)

type IAccountService interface {
	Register(req auth.RegisterRequest) (Token, error)
	Login(email, password string) (Token, error)
}

type Token string

// AccountService implements registration and login on top of the account
// repository. Tokens carry identity claims only; affiliations are
// resolved fresh at connect time.
type AccountService struct {
	accounts      IAccountRepository
	tokenDuration time.Duration
}

func NewAccountService(accounts IAccountRepository, tokenDuration time.Duration) IAccountService {
	return &AccountService{accounts: accounts, tokenDuration: tokenDuration}
}

func (s *AccountService) Register(req auth.RegisterRequest) (Token, error) {
	// Business rules first, before any expensive cryptographic work.
	if err := auth.ValidateRegister(req); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer; the repository never sees a
	// plain password.
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	accountID, err := s.accounts.Create(req.Email, hashedPassword, req.Name, req.Role, req.Courses)
	if err != nil {
		return "", err // Propagates ErrUserAlreadyExists if the email is taken
	}

	token, err := auth.GenerateToken(accountID, req.Name, req.Role, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}

	return Token(token), nil
}

func (s *AccountService) Login(email, password string) (Token, error) {
	account, err := s.accounts.GetByEmail(email)
	if err != nil {
		// Generic error to prevent account enumeration.
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, account.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(account.ID, account.Name, account.Role, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}

	return Token(token), nil
}
