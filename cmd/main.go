package main

import (
	"chat-inbox/auth"
	"chat-inbox/domain"
	"chat-inbox/infrastructure/natsfeed"
	"chat-inbox/infrastructure/storage"
	"chat-inbox/internal"
	"chat-inbox/projection"
	"chat-inbox/runtime"
	"chat-inbox/runtime/workers"
	"chat-inbox/services"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

type command struct {
	register bool
	signIn   bool
	signOut  bool
	watch    bool
	email    string
	password string
	name     string
	image    string
	sendTo   string
	text     string
	colours  bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() command {
	var cmd command
	flag.BoolVar(&cmd.register, "register", false, "Create an account (-email, -password, -name, -image)")
	flag.BoolVar(&cmd.signIn, "signin", false, "Sign in (-email, -password)")
	flag.BoolVar(&cmd.signOut, "signout", false, "Sign the current user out")
	flag.BoolVar(&cmd.watch, "watch", false, "Print the inbox every time it changes, until interrupted")
	flag.StringVar(&cmd.email, "email", "", "Account email")
	flag.StringVar(&cmd.password, "password", "", "Account password")
	flag.StringVar(&cmd.name, "name", "", "Display name")
	flag.StringVar(&cmd.image, "image", "", "Path to a profile image (png, jpeg or gif)")
	flag.StringVar(&cmd.sendTo, "send-to", "", "Email of the recipient (-text)")
	flag.StringVar(&cmd.text, "text", "", "Message text")
	flag.BoolVar(&cmd.colours, "colours", true, "Colorized output")
	flag.Parse()
	return cmd
}

func run() error {
	cmd := parseFlags()

	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Embedded backends
	accounts := storage.NewAccountRepository(db, log, auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration))
	profiles := storage.NewProfileRepository(db)
	blobs := storage.NewBlobRepository(db, config.BlobBaseURL)

	var observers []storage.MessageObserver
	if config.NatsURL != "" {
		relay, err := natsfeed.Connect(config.NatsURL, "chat-inbox", log)
		if err != nil {
			return err
		}
		defer func() { _ = relay.Close() }()
		observers = append(observers, relay)
	}
	messages := storage.NewMessageRepository(db, log, observers...)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		messages,
		internal.NewBlobServer(log, db, blobs, config.HTTPPort),
		workers.NewHealthMonitoringWorker(log, messages, config.MetricInterval),
	)
	supervised := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervised)
	}()
	defer func() {
		sup.Stop()
		<-supervised
	}()

	sessions := services.NewSessionService(log, accounts, profiles)
	registration := services.NewRegistrationService(log, accounts, blobs, profiles, config.ImageQuality)

	// 6. One-shot commands
	switch {
	case cmd.register:
		if err = register(ctx, log, registration, cmd); err != nil {
			return err
		}
	case cmd.signIn:
		user, err := sessions.SignIn(ctx, cmd.email, cmd.password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s\n", user.Name)
	case cmd.signOut:
		if err = sessions.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out")
	}

	if cmd.sendTo != "" {
		if err = send(ctx, sessions, accounts, messages, cmd); err != nil {
			return err
		}
	}

	if !cmd.watch {
		return nil
	}

	// 7. Inbox until Stop
	sink := newTableSink(os.Stdout, accounts, profiles, cmd.colours)
	inbox := projection.NewInbox(log, accounts, profiles, messages, sink, runtime.SystemClock(), config.DebounceWindow)
	owner, err := inbox.Start(ctx)
	if err != nil {
		return err
	}
	defer inbox.Close()
	log.Info("Watching inbox", "user", owner.Name)

	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	return nil
}

func register(ctx context.Context, log *slog.Logger, registration services.IRegistrationService, cmd command) error {
	draft := domain.RegistrationDraft{Email: cmd.email, Password: cmd.password, DisplayName: cmd.name}
	if cmd.image != "" {
		data, err := os.ReadFile(cmd.image)
		if err != nil {
			return fmt.Errorf("unable to read profile image: %w", err)
		}
		draft.ProfileImage = data
	}
	_, err := registration.Register(ctx, draft, consoleListener{log: log, out: os.Stdout})
	return err
}

func send(ctx context.Context, sessions services.ISessionService, accounts *storage.AccountRepository, messages *storage.MessageRepository, cmd command) error {
	me, err := sessions.CurrentUser(ctx)
	if err != nil {
		return err
	}
	to, err := accounts.UserIDByEmail(cmd.sendTo)
	if err != nil {
		return err
	}
	msg, err := messages.Send(ctx, me.ID, to, cmd.text, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Sent %s\n", msg.ID)
	return nil
}
