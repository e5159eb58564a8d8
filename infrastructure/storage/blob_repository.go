package storage

import (
	"chat-inbox/errors"
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BlobRepository keeps binary objects in Badger. Content lives under
// "blob:{key}" and its content type under "blob-type:{key}".
type BlobRepository struct {
	db      *badger.DB
	baseURL string
}

func NewBlobRepository(db *badger.DB, baseURL string) *BlobRepository {
	return &BlobRepository{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

func (b *BlobRepository) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("empty blob key")
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte("blob:"+key), data); err != nil {
			return err
		}
		return txn.Set([]byte("blob-type:"+key), []byte(contentType))
	})
}

// DownloadURL returns the public address of an uploaded blob.
func (b *BlobRepository) DownloadURL(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("blob:" + key))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return "", fmt.Errorf("%w: %s", errors.ErrBlobNotFound, key)
	}
	if err != nil {
		return "", err
	}
	return b.baseURL + "/blobs/" + key, nil
}

// Get returns the content and content type of a blob.
func (b *BlobRepository) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	var data, contentType []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("blob:" + key))
		if err != nil {
			return err
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return err
		}
		item, err = txn.Get([]byte("blob-type:" + key))
		if err != nil {
			return err
		}
		contentType, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, "", fmt.Errorf("%w: %s", errors.ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, "", err
	}
	return data, string(contentType), nil
}
