//go:generate go run go.uber.org/mock/mockgen -source=accounts.go -destination=../mocks/mock_account_repository.go -package=mocks
// Package directory is the account store behind authentication and
// identity resolution. Accounts live in BadgerDB; the relay resolves a
// connecting token into a full identity through it.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campus-relay/contract"
	"campus-relay/domain"
	"campus-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IAccountRepository interface {
	Create(email, hashedPassword, name, role string, courses []string) (string, error)
	GetByEmail(email string) (Account, error)
	GetByID(accountID string) (Account, error)
	Resolve(ctx context.Context, accountID string) (domain.Identity, error)
}

// Account is the stored form, JSON-encoded under "acct:{id}". A secondary
// "email:{email}" key maps the login email to the account id and doubles
// as the uniqueness guard.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Courses      []string  `json:"courses"`
	CreatedAt    time.Time `json:"created_at"`
}

type AccountRepository struct {
	db *badger.DB
}

func NewAccountRepository(db *badger.DB) IAccountRepository {
	return &AccountRepository{db: db}
}

var _ contract.AccountDirectory = (*AccountRepository)(nil)

// Create persists a new account and its email index in one transaction.
// The email key is checked first so a duplicate registration fails before
// anything is written.
func (r AccountRepository) Create(email, hashedPassword, name, role string, courses []string) (string, error) {
	newID := uuid.New().String()
	account := Account{
		ID:           newID,
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Role:         role,
		Courses:      courses,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(account)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte("email:" + email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey, []byte(newID)); err != nil {
			return err
		}
		return txn.Set([]byte("acct:"+newID), data)
	})

	return newID, err
}

func (r AccountRepository) GetByEmail(email string) (Account, error) {
	var accountID string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("email:" + email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			accountID = string(val)
			return nil
		})
	})
	if err != nil {
		return Account{}, err
	}
	return r.GetByID(accountID)
}

func (r AccountRepository) GetByID(accountID string) (Account, error) {
	var account Account
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("acct:" + accountID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &account)
		})
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// Resolve turns an authenticated account id into the identity a session
// binds to. The context is honored before the read so the authenticator's
// fail-closed timeout applies even though Badger itself is synchronous.
func (r AccountRepository) Resolve(ctx context.Context, accountID string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}

	account, err := r.GetByID(accountID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %s", errors.ErrAccountNotFound, accountID)
	}

	role, err := domain.ParseRole(account.Role)
	if err != nil {
		return domain.Identity{}, err
	}

	return domain.Identity{
		AccountID: account.ID,
		Name:      account.Name,
		Role:      role,
		Affiliations: lo.Map(account.Courses, func(course string, _ int) domain.CourseID {
			return domain.CourseID(course)
		}),
	}, nil
}
