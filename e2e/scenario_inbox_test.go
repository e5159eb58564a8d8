package e2e

import (
	"chat-inbox/domain"
	"chat-inbox/infrastructure/natsfeed"
	"chat-inbox/infrastructure/storage"
	"chat-inbox/projection"
	"chat-inbox/runtime"
	"chat-inbox/services"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type silentListener struct{}

func (silentListener) OnRegistered(string) {}
func (silentListener) OnClosed()           {}
func (silentListener) OnFailed(error)      {}

type inboxScenarioSuite struct {
	BaseSuite
}

func TestInboxScenarioSuite(t *testing.T) {
	suite.Run(t, &inboxScenarioSuite{})
}

func (s *inboxScenarioSuite) TestRegisterChatAndWatchInbox() {
	registration := services.NewRegistrationService(s.log, s.accounts, s.blobs, s.profiles, services.DefaultImageQuality)
	users := map[string]domain.User{}

	s.Step("Step 0: Register three users", func(ctx context.Context) {
		for _, name := range []string{"Alice", "Bob", "Carol"} {
			user, err := registration.Register(ctx, domain.RegistrationDraft{
				Email:        name + "@example.com",
				Password:     "secret-" + name,
				DisplayName:  name,
				ProfileImage: profilePicture(),
			}, silentListener{})
			s.Require().NoError(err)
			s.Require().NotEmpty(user.ProfileImageURL)
			users[name] = user
		}
	})

	messages := storage.NewMessageRepository(s.db, s.log)
	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	go func() { _ = messages.Run(feedCtx) }()

	alice, bob, carol := users["Alice"], users["Bob"], users["Carol"]

	s.Step("Step 1: Exchange messages", func(ctx context.Context) {
		_, err := messages.Send(ctx, bob.ID, alice.ID, "hi alice", nil)
		s.Require().NoError(err)
		_, err = messages.Send(ctx, alice.ID, bob.ID, "hi bob", nil)
		s.Require().NoError(err)
		_, err = messages.Send(ctx, carol.ID, alice.ID, "yo", nil)
		s.Require().NoError(err)
	})

	s.Step("Step 2: Sign in as Alice and watch the inbox", func(ctx context.Context) {
		sessions := services.NewSessionService(s.log, s.accounts, s.profiles)
		_, err := sessions.SignIn(ctx, "Alice@example.com", "secret-Alice")
		s.Require().NoError(err)

		sink := make(channelSink, 32)
		inbox := projection.NewInbox(s.log, s.accounts, s.profiles, messages, sink, runtime.SystemClock(), s.Config.DebounceWindow)
		owner, err := inbox.Start(ctx)
		s.Require().NoError(err)
		defer inbox.Close()
		s.Equal("Alice", owner.Name)

		view := s.awaitView(ctx, sink, func(v domain.Inbox) bool { return len(v) == 2 })
		s.Equal("yo", view[0].Text)
		s.Equal("hi bob", view[1].Text)

		partner, err := inbox.OpenConversation(ctx, view[1])
		s.Require().NoError(err)
		s.Equal(bob.ID, partner.ID)
		s.Equal("Bob", partner.Name)

		_, err = messages.Send(ctx, bob.ID, alice.ID, "again", nil)
		s.Require().NoError(err)
		view = s.awaitView(ctx, sink, func(v domain.Inbox) bool { return len(v) == 2 && v[0].Text == "again" })
		s.Equal("yo", view[1].Text)
	})
}

func (s *inboxScenarioSuite) TestRelayPublishesNotifications() {
	if s.Config.NatsURL == "" {
		s.T().Skip("NATS_URL not set")
	}

	relay, err := natsfeed.Connect(s.Config.NatsURL, "chat-inbox-e2e", s.log)
	s.Require().NoError(err)
	defer func() { _ = relay.Close() }()

	alice, bob := uuid.NewString(), uuid.NewString()
	received := make(chan natsfeed.Notification, 4)
	sub, err := relay.Subscribe(alice, func(n natsfeed.Notification) { received <- n })
	s.Require().NoError(err)
	defer func() { _ = sub.Unsubscribe() }()

	messages := storage.NewMessageRepository(s.db, s.log, relay)

	s.Step("Step 0: Bob writes to Alice", func(ctx context.Context) {
		msg, err := messages.Send(ctx, bob, alice, "over nats", nil)
		s.Require().NoError(err)

		select {
		case n := <-received:
			s.Equal(alice, n.OwnerID)
			s.Equal(bob, n.PartnerID)
			s.Equal(msg.ID, n.MessageID)
		case <-ctx.Done():
			s.Fail("no notification received")
		}
	})
}

func (s *inboxScenarioSuite) awaitView(ctx context.Context, sink channelSink, done func(domain.Inbox) bool) domain.Inbox {
	for {
		select {
		case view := <-sink:
			if done(view) {
				return view
			}
		case <-ctx.Done():
			s.FailNow("inbox never reached the expected state")
			return nil
		case <-time.After(s.Config.StepTimeout):
			s.FailNow("inbox never reached the expected state")
			return nil
		}
	}
}
