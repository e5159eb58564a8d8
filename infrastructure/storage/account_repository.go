package storage

import (
	"chat-inbox/auth"
	"chat-inbox/errors"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const sessionKey = "session:current"

type diskAccount struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AccountRepository is an embedded auth backend. Passwords are hashed with
// Argon2id and the current session is a signed token persisted next to the
// accounts, so a restarted process finds the user still signed in.
type AccountRepository struct {
	db     *badger.DB
	log    *slog.Logger
	tokens auth.TokenIssuer
}

func NewAccountRepository(db *badger.DB, log *slog.Logger, tokens auth.TokenIssuer) *AccountRepository {
	return &AccountRepository{db: db, log: log, tokens: tokens}
}

func accountKey(email string) string { return "account:" + email }

// CreateAccount persists a new account and signs it in.
func (a *AccountRepository) CreateAccount(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}
	account := diskAccount{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := encode(account)
	if err != nil {
		return "", err
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		key := []byte(accountKey(email))
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return "", err
	}
	if err = a.startSession(account.ID); err != nil {
		return "", err
	}
	return account.ID, nil
}

func (a *AccountRepository) SignIn(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var account diskAccount
	err := a.db.View(func(txn *badger.Txn) error {
		return load(txn, accountKey(email), &account)
	})
	if err != nil {
		// Same answer for unknown email and wrong password
		return "", errors.ErrInvalidCredentials
	}
	match, err := auth.ComparePassword(password, account.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}
	if err = a.startSession(account.ID); err != nil {
		return "", err
	}
	return account.ID, nil
}

// CurrentUserID returns the uid of a valid persisted session.
func (a *AccountRepository) CurrentUserID() (string, bool) {
	var token []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKey))
		if err != nil {
			return err
		}
		token, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", false
	}
	claims, err := a.tokens.ValidateToken(string(token))
	if err != nil {
		a.log.Debug("Discarding invalid session", "error", err)
		return "", false
	}
	return claims.UserID, true
}

func (a *AccountRepository) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKey))
	})
}

// UserIDByEmail looks an account up without signing in.
func (a *AccountRepository) UserIDByEmail(email string) (string, error) {
	var account diskAccount
	err := a.db.View(func(txn *badger.Txn) error {
		return load(txn, accountKey(email), &account)
	})
	if err == badger.ErrKeyNotFound {
		return "", fmt.Errorf("no account for %s: %w", email, errors.ErrInvalidCredentials)
	}
	return account.ID, err
}

func (a *AccountRepository) startSession(uid string) error {
	token, err := a.tokens.GenerateToken(uid)
	if err != nil {
		return fmt.Errorf("token generation failed: %w", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKey), []byte(token))
	})
}
