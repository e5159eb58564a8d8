package e2e

import (
	"bytes"
	"chat-inbox/auth"
	"chat-inbox/domain"
	"chat-inbox/infrastructure/storage"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	gcolor "github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

// BaseSuite wires the embedded backends on a throwaway badger directory.
type BaseSuite struct {
	suite.Suite
	Config Config

	log      *slog.Logger
	db       *badger.DB
	accounts *storage.AccountRepository
	profiles *storage.ProfileRepository
	blobs    *storage.BlobRepository
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	s.log = logs.GetLoggerFromLevel(slog.LevelDebug)
}

func (s *BaseSuite) SetupTest() {
	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	s.Require().NoError(err)
	s.db = db
	s.accounts = storage.NewAccountRepository(db, s.log, auth.NewTokenIssuer("e2e-secret", time.Hour))
	s.profiles = storage.NewProfileRepository(db)
	s.blobs = storage.NewBlobRepository(db, "http://localhost:8080")
}

func (s *BaseSuite) TearDownTest() {
	if s.db != nil {
		s.Require().NoError(s.db.Close())
	}
}

// Step prints a header for the step and runs fn with a bounded context.
func (s *BaseSuite) Step(name string, fn func(ctx context.Context)) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = gcolor.New(gcolor.BgBlack, gcolor.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), s.Config.StepTimeout)
	defer cancel()
	fn(ctx)
}

// channelSink hands every published view to the test.
type channelSink chan domain.Inbox

func (c channelSink) Publish(_ context.Context, inbox domain.Inbox) {
	c <- inbox
}

func profilePicture() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
