// Package internal hosts the HTTP side of the embedded backend: uploaded
// blobs are served back at the URLs handed out by the blob store, and a small
// inspection endpoint lists raw badger keys.
package internal

import (
	"chat-inbox/contract"
	"chat-inbox/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gabriel-vasile/mimetype"
)

const (
	defaultInspectPrefix = "users:"
	maxInspectRows       = 500
	shutdownTimeout      = 5 * time.Second
)

type BlobReader interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
}

type InspectRow struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

type PageData struct {
	Prefix string       `json:"prefix"`
	Items  []InspectRow `json:"items"`
}

// BlobServer is a supervised worker listening until its context is done.
type BlobServer struct {
	log   *slog.Logger
	db    *badger.DB
	blobs BlobReader
	addr  string
}

func NewBlobServer(log *slog.Logger, db *badger.DB, blobs BlobReader, port int) *BlobServer {
	return &BlobServer{log: log, db: db, blobs: blobs, addr: fmt.Sprintf("0.0.0.0:%d", port)}
}

func (s *BlobServer) GetName() contract.WorkerName {
	return "blob_server"
}

func (s *BlobServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /blobs/{key...}", s.serveBlob)
	if s.db != nil {
		mux.HandleFunc("GET /inspect", s.inspect)
	}
	return mux
}

func (s *BlobServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting blob server", "address", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("blob server: %w", err)
	}
}

func (s *BlobServer) serveBlob(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data, contentType, err := s.blobs.Get(r.Context(), key)
	switch {
	case errors.Is(err, errors.ErrBlobNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		s.log.Error("unable to read blob", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *BlobServer) inspect(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = defaultInspectPrefix
	}
	data := PageData{Prefix: prefix, Items: []InspectRow{}}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && len(data.Items) < maxInspectRows; it.Next() {
			item := it.Item()
			data.Items = append(data.Items, InspectRow{
				Key:  string(item.KeyCopy(nil)),
				Size: int(item.ValueSize()),
			})
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
