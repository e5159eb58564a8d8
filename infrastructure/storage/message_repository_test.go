package storage

import (
	"chat-inbox/domain"
	"chat-inbox/errors"
	"chat-inbox/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type collector chan string

func (c collector) push(v string) { c <- v }

func (c collector) next(t *testing.T) string {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
		return ""
	}
}

func (c collector) none(t *testing.T) {
	t.Helper()
	select {
	case v := <-c:
		t.Fatalf("unexpected delivery %q", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func newRunningFeed(t *testing.T, observers ...MessageObserver) *MessageRepository {
	t.Helper()
	repo := NewMessageRepository(openTestDB(t), logs.GetLoggerFromLevel(slog.LevelDebug), observers...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = repo.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return repo
}

func TestMessageRepository_PartnerAdded(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRunningFeed(t)

	_, err := repo.Send(ctx, "me", "alice", "hi alice", nil)
	req.NoError(err)
	_, err = repo.Send(ctx, "alice", "me", "hi back", nil)
	req.NoError(err)
	_, err = repo.Send(ctx, "bob", "me", "hey", nil)
	req.NoError(err)

	partners := make(collector, 16)
	sub, err := repo.OnPartnerAdded(ctx, "me", partners.push)
	req.NoError(err)

	// Existing partners are replayed once each
	req.ElementsMatch([]string{"alice", "bob"}, []string{partners.next(t), partners.next(t)})
	partners.none(t)

	// Known partner, no new notification
	_, err = repo.Send(ctx, "me", "bob", "again", nil)
	req.NoError(err)
	partners.none(t)

	_, err = repo.Send(ctx, "clara", "me", "new here", nil)
	req.NoError(err)
	req.Equal("clara", partners.next(t))

	sub.Cancel()
	_, err = repo.Send(ctx, "dave", "me", "too late", nil)
	req.NoError(err)
	partners.none(t)
}

func TestMessageRepository_MessageAdded(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRunningFeed(t)

	first, err := repo.Send(ctx, "me", "alice", "one", nil)
	req.NoError(err)
	second, err := repo.Send(ctx, "alice", "me", "two", nil)
	req.NoError(err)
	_, err = repo.Send(ctx, "bob", "me", "other conversation", nil)
	req.NoError(err)

	ids := make(collector, 16)
	subCtx, cancel := context.WithCancel(ctx)
	_, err = repo.OnMessageAdded(subCtx, "me", "alice", ids.push)
	req.NoError(err)

	req.Equal(first.ID, ids.next(t))
	req.Equal(second.ID, ids.next(t))
	ids.none(t)

	third, err := repo.Send(ctx, "alice", "me", "three", nil)
	req.NoError(err)
	req.Equal(third.ID, ids.next(t))

	// Cancelling the subscription context ends deliveries
	cancel()
	time.Sleep(20 * time.Millisecond)
	_, err = repo.Send(ctx, "alice", "me", "four", nil)
	req.NoError(err)
	ids.none(t)
}

func TestMessageRepository_CallbacksMaySubscribe(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRunningFeed(t)

	sent, err := repo.Send(ctx, "alice", "me", "hello", nil)
	req.NoError(err)

	ids := make(collector, 16)
	_, err = repo.OnPartnerAdded(ctx, "me", func(partnerID string) {
		_, _ = repo.OnMessageAdded(ctx, "me", partnerID, ids.push)
	})
	req.NoError(err)

	req.Equal(sent.ID, ids.next(t))
}

func TestMessageRepository_FetchMessage(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	image := "http://img"

	sent, err := repo.Send(ctx, "me", "alice", "look", &image)
	req.NoError(err)

	fetched, found, err := repo.FetchMessage(ctx, sent.ID)
	req.NoError(err)
	req.True(found)
	req.Equal(sent, fetched)
	req.Equal("http://img", *fetched.ImageURL)

	_, found, err = repo.FetchMessage(ctx, "missing")
	req.NoError(err)
	req.False(found)

	_, err = repo.Send(ctx, "", "alice", "no sender", nil)
	req.Error(err)
}

func TestMessageRepository_TimestampsAlwaysIncrease(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	clock := time.UnixMilli(10_000)
	repo.now = func() time.Time { return clock }

	first, err := repo.Send(ctx, "me", "alice", "one", nil)
	req.NoError(err)
	clock = time.UnixMilli(5_000)
	second, err := repo.Send(ctx, "me", "alice", "two", nil)
	req.NoError(err)

	req.Equal(int64(10_000), *first.Timestamp)
	req.Equal(int64(10_001), *second.Timestamp)
}

func TestMessageRepository_NotifiesObservers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	observer := mocks.NewMockMessageObserver(ctrl)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), observer)

	var observed domain.Message
	observer.EXPECT().
		MessageSent(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, msg domain.Message) { observed = msg }).
		Times(1)

	sent, err := repo.Send(context.Background(), "me", "alice", "hi", nil)
	req.NoError(err)
	req.Equal(sent, observed)
}

func TestMessageRepository_RejectsIDsBreakingKeyLayout(t *testing.T) {
	ctx := context.Background()

	t.Run("should refuse to store a message whose party id contains a separator", func(t *testing.T) {
		req := require.New(t)
		repo := newRunningFeed(t)

		_, err := repo.Send(ctx, "a:x", "z", "hi", nil)
		req.ErrorIs(err, errors.ErrInvalidUserID)
		_, err = repo.Send(ctx, "z", "a:x", "hi", nil)
		req.ErrorIs(err, errors.ErrInvalidUserID)
		_, err = repo.Send(ctx, "", "z", "hi", nil)
		req.ErrorIs(err, errors.ErrInvalidUserID)
	})

	t.Run("should refuse subscriptions on ids containing a separator", func(t *testing.T) {
		req := require.New(t)
		repo := newRunningFeed(t)

		_, err := repo.OnPartnerAdded(ctx, "a:x", func(string) {})
		req.ErrorIs(err, errors.ErrInvalidUserID)
		_, err = repo.OnMessageAdded(ctx, "a", "x:y", func(string) {})
		req.ErrorIs(err, errors.ErrInvalidUserID)
	})

	t.Run("should not tell a user about conversations of a user sharing its prefix", func(t *testing.T) {
		req := require.New(t)
		repo := newRunningFeed(t)
		partners := make(collector, 8)

		_, err := repo.Send(ctx, "ab", "z", "hi", nil)
		req.NoError(err)
		sub, err := repo.OnPartnerAdded(ctx, "a", partners.push)
		req.NoError(err)
		defer sub.Cancel()

		partners.none(t)
	})
}
