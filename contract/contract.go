//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-inbox/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(interface{ GetName() WorkerName }); ok && named.GetName() != "" {
		return string(named.GetName())
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// AuthBackend owns identities and the current session.
type AuthBackend interface {
	CreateAccount(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	CurrentUserID() (string, bool)
	SignOut(ctx context.Context) error
}

// BlobStore keeps binary objects addressed by key.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, key string) (string, error)
}

// ProfileStore holds one profile record per uid.
type ProfileStore interface {
	Write(ctx context.Context, userID string, fields domain.ProfileFields) error
	Read(ctx context.Context, userID string) (domain.ProfileFields, error)
}

// Subscription is a long-lived feed registration.
type Subscription interface {
	Cancel()
}

// MessageFeed pushes child-added notifications.
// Subscriptions first replay what already exists, then deliver new entries,
// until cancelled or ctx is done. FetchMessage is a one-shot lookup.
type MessageFeed interface {
	OnPartnerAdded(ctx context.Context, userID string, fn func(partnerID string)) (Subscription, error)
	OnMessageAdded(ctx context.Context, userID, partnerID string, fn func(messageID string)) (Subscription, error)
	FetchMessage(ctx context.Context, messageID string) (domain.Message, bool, error)
}

// ViewSink receives every materialized inbox.
type ViewSink interface {
	Publish(ctx context.Context, inbox domain.Inbox)
}

// RegistrationListener is the screen driving a registration attempt.
type RegistrationListener interface {
	OnRegistered(displayName string)
	OnClosed()
	OnFailed(err error)
}
