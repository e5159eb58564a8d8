package projection

import (
	"chat-inbox/contract"
	"chat-inbox/domain"
	"chat-inbox/errors"
	"chat-inbox/runtime"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Inbox keeps the conversation list of the signed-in user up to date.
//
// Partner and message subscriptions feed a MessageStore; the store arms a
// Debouncer and each quiet period ends with one Reduce whose result is
// published to the ViewSink. Feed failures are logged and the view simply
// stays as it was.
type Inbox struct {
	log      *slog.Logger
	auth     contract.AuthBackend
	profiles contract.ProfileStore
	feed     contract.MessageFeed
	sink     contract.ViewSink
	clock    runtime.Clock
	window   time.Duration

	mu      sync.Mutex
	session *inboxSession
	view    domain.Inbox
}

// inboxSession is everything tied to one Start. Callbacks hold the session
// they were created for and do nothing once its context is done.
type inboxSession struct {
	ctx       context.Context
	cancel    context.CancelFunc
	owner     domain.User
	store     *MessageStore
	debouncer *runtime.Debouncer

	// held across a rebuild, including the sink call
	publishMu sync.Mutex

	mu   sync.Mutex
	subs []contract.Subscription
}

func NewInbox(
	log *slog.Logger,
	auth contract.AuthBackend,
	profiles contract.ProfileStore,
	feed contract.MessageFeed,
	sink contract.ViewSink,
	clock runtime.Clock,
	window time.Duration,
) *Inbox {
	return &Inbox{
		log:      log,
		auth:     auth,
		profiles: profiles,
		feed:     feed,
		sink:     sink,
		clock:    clock,
		window:   window,
	}
}

// Start loads the signed-in user's profile, resets the list and starts
// observing their conversations. A previous session is closed first.
// The returned user carries the name to display as title.
func (i *Inbox) Start(ctx context.Context) (domain.User, error) {
	uid, ok := i.auth.CurrentUserID()
	if !ok {
		return domain.User{}, errors.ErrNotSignedIn
	}
	fields, err := i.profiles.Read(ctx, uid)
	if err != nil {
		return domain.User{}, fmt.Errorf("reading profile of %s: %w", uid, err)
	}
	owner := fields.ToUser(uid)

	i.Close()

	sessionCtx, cancel := context.WithCancel(ctx)
	s := &inboxSession{ctx: sessionCtx, cancel: cancel, owner: owner}
	s.debouncer = runtime.NewDebouncer(i.log, i.clock, i.window, func() { i.rebuild(s) })
	s.store = NewMessageStore(i.log, uid, s.debouncer)

	i.mu.Lock()
	i.session = s
	i.view = nil
	i.mu.Unlock()

	sub, err := i.feed.OnPartnerAdded(sessionCtx, uid, func(partnerID string) {
		i.observePartner(s, partnerID)
	})
	if err != nil {
		i.Close()
		return domain.User{}, fmt.Errorf("%w: partners of %s: %w", errors.ErrFeed, uid, err)
	}
	s.track(sub)

	i.log.Info("Inbox started", "user_id", uid, "name", owner.Name)
	return owner, nil
}

func (i *Inbox) observePartner(s *inboxSession, partnerID string) {
	if s.ctx.Err() != nil {
		return
	}
	sub, err := i.feed.OnMessageAdded(s.ctx, s.owner.ID, partnerID, func(messageID string) {
		i.fetch(s, messageID)
	})
	if err != nil {
		i.log.Warn("Cannot observe conversation", "partner_id", partnerID, "error", fmt.Errorf("%w: %w", errors.ErrFeed, err))
		return
	}
	s.track(sub)
}

func (i *Inbox) fetch(s *inboxSession, messageID string) {
	if s.ctx.Err() != nil {
		return
	}
	msg, found, err := i.feed.FetchMessage(s.ctx, messageID)
	if err != nil {
		i.log.Warn("Cannot fetch message", "message_id", messageID, "error", fmt.Errorf("%w: %w", errors.ErrFeed, err))
		return
	}
	if !found {
		i.log.Debug("Message vanished before fetch", "message_id", messageID)
		return
	}
	if s.ctx.Err() != nil {
		return
	}
	s.store.RecordArrival(msg)
}

func (i *Inbox) rebuild(s *inboxSession) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	view := domain.Reduce(s.store.Snapshot())

	i.mu.Lock()
	if i.session != s {
		i.mu.Unlock()
		return
	}
	i.view = view
	i.mu.Unlock()

	i.sink.Publish(s.ctx, view)
	i.log.Debug("Inbox rebuilt", "conversations", len(view))
}

// View returns the last published list.
func (i *Inbox) View() domain.Inbox {
	i.mu.Lock()
	defer i.mu.Unlock()
	view := make(domain.Inbox, len(i.view))
	copy(view, i.view)
	return view
}

// OpenConversation resolves the partner of a listed message to a user.
func (i *Inbox) OpenConversation(ctx context.Context, msg domain.Message) (domain.User, error) {
	owner, ok := i.owner()
	if !ok {
		return domain.User{}, errors.ErrNotSignedIn
	}
	partner, ok := msg.ChatPartnerID(owner)
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %s does not involve %s", errors.ErrInvalidMessage, msg.ID, owner)
	}
	fields, err := i.profiles.Read(ctx, string(partner))
	if err != nil {
		return domain.User{}, fmt.Errorf("reading profile of %s: %w", partner, err)
	}
	return fields.ToUser(string(partner)), nil
}

func (i *Inbox) owner() (string, bool) {
	i.mu.Lock()
	s := i.session
	i.mu.Unlock()
	if s != nil {
		return s.owner.ID, true
	}
	return i.auth.CurrentUserID()
}

// Close cancels the pending rebuild and every subscription. Callbacks still
// in flight become no-ops, and a publish already running is waited for, so
// the sink sees nothing once Close has returned. The sink must not call
// Close or Start from Publish.
func (i *Inbox) Close() {
	i.mu.Lock()
	s := i.session
	i.session = nil
	i.mu.Unlock()
	if s == nil {
		return
	}
	s.cancel()
	s.debouncer.Stop()
	s.cancelSubscriptions()
	// wait for a running publish
	s.publishMu.Lock()
	s.publishMu.Unlock()
	i.log.Debug("Inbox closed", "user_id", s.owner.ID)
}

func (s *inboxSession) track(sub contract.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		sub.Cancel()
		return
	}
	s.subs = append(s.subs, sub)
}

func (s *inboxSession) cancelSubscriptions() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}
