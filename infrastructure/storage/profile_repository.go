package storage

import (
	"chat-inbox/domain"
	"chat-inbox/errors"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type diskProfile struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// ProfileRepository stores one profile per uid under "users:{uid}".
type ProfileRepository struct {
	db *badger.DB
}

func NewProfileRepository(db *badger.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func profileKey(uid string) string { return "users:" + uid }

// Write replaces the profile of userID. Writing the same fields twice is harmless.
func (p *ProfileRepository) Write(ctx context.Context, userID string, fields domain.ProfileFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(diskProfile(fields))
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKey(userID)), data)
	})
}

func (p *ProfileRepository) Read(ctx context.Context, userID string) (domain.ProfileFields, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProfileFields{}, err
	}
	var profile diskProfile
	err := p.db.View(func(txn *badger.Txn) error {
		return load(txn, profileKey(userID), &profile)
	})
	if err == badger.ErrKeyNotFound {
		return domain.ProfileFields{}, fmt.Errorf("%w: %s", errors.ErrProfileNotFound, userID)
	}
	if err != nil {
		return domain.ProfileFields{}, err
	}
	return domain.ProfileFields(profile), nil
}
