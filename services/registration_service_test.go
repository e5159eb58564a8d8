package services

import (
	"bytes"
	"chat-inbox/domain"
	"chat-inbox/errors"
	"chat-inbox/mocks"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type registrationFixture struct {
	svc      *RegistrationService
	auth     *mocks.MockAuthBackend
	blobs    *mocks.MockBlobStore
	profiles *mocks.MockProfileStore
	listener *mocks.MockRegistrationListener
}

func newRegistrationFixture(t *testing.T) registrationFixture {
	ctrl := gomock.NewController(t)
	f := registrationFixture{
		auth:     mocks.NewMockAuthBackend(ctrl),
		blobs:    mocks.NewMockBlobStore(ctrl),
		profiles: mocks.NewMockProfileStore(ctrl),
		listener: mocks.NewMockRegistrationListener(ctrl),
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	f.svc = NewRegistrationService(log, f.auth, f.blobs, f.profiles, DefaultImageQuality)
	f.svc.newBlobName = func() string { return "fixed-name" }
	return f
}

func draft(t *testing.T) domain.RegistrationDraft {
	return domain.RegistrationDraft{
		Email:        "jin@example.com",
		Password:     "secret-password",
		DisplayName:  "Jin",
		ProfileImage: pngBytes(t),
	}
}

func TestRegistrationService_Register(t *testing.T) {
	t.Run("should run every stage in order and close the screen", func(t *testing.T) {
		req := require.New(t)
		f := newRegistrationFixture(t)
		d := draft(t)
		key := "profile_images/fixed-name"
		fields := domain.ProfileFields{Name: "Jin", Email: d.Email, ProfileImageURL: "http://localhost/blobs/" + key}

		gomock.InOrder(
			f.auth.EXPECT().CreateAccount(gomock.Any(), d.Email, d.Password).Return("uid-1", nil),
			f.blobs.EXPECT().Upload(gomock.Any(), key, gomock.Any(), "image/jpeg").Return(nil),
			f.blobs.EXPECT().DownloadURL(gomock.Any(), key).Return(fields.ProfileImageURL, nil),
			f.profiles.EXPECT().Write(gomock.Any(), "uid-1", fields).Return(nil),
			f.listener.EXPECT().OnRegistered("Jin"),
			f.listener.EXPECT().OnClosed(),
		)

		user, err := f.svc.Register(context.Background(), d, f.listener)

		req.NoError(err)
		req.Equal(fields.ToUser("uid-1"), user)
	})

	t.Run("should abort at validation without any backend call", func(t *testing.T) {
		req := require.New(t)
		f := newRegistrationFixture(t)
		d := draft(t)
		d.Password = ""

		f.auth.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.blobs.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.profiles.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.listener.EXPECT().OnFailed(gomock.Any()).Do(func(err error) {
			req.ErrorIs(err, errors.ErrValidation)
		})

		_, err := f.svc.Register(context.Background(), d, f.listener)

		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should stop when the account cannot be created", func(t *testing.T) {
		req := require.New(t)
		f := newRegistrationFixture(t)
		d := draft(t)

		f.auth.EXPECT().CreateAccount(gomock.Any(), d.Email, d.Password).Return("", errors.ErrUserAlreadyExists)
		f.blobs.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.listener.EXPECT().OnFailed(gomock.Any())

		_, err := f.svc.Register(context.Background(), d, f.listener)

		req.ErrorIs(err, errors.ErrAuth)
		req.ErrorIs(err, errors.ErrUserAlreadyExists)
		var partial *PartialRegistrationError
		req.NotErrorAs(err, &partial)
	})

	t.Run("should leave an orphaned identity when the upload fails", func(t *testing.T) {
		req := require.New(t)
		f := newRegistrationFixture(t)
		d := draft(t)

		f.auth.EXPECT().CreateAccount(gomock.Any(), d.Email, d.Password).Return("uid-1", nil)
		f.blobs.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("quota exceeded"))
		f.blobs.EXPECT().DownloadURL(gomock.Any(), gomock.Any()).Times(0)
		f.profiles.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.listener.EXPECT().OnFailed(gomock.Any()).Do(func(err error) {
			req.ErrorIs(err, errors.ErrUpload)
		})
		f.listener.EXPECT().OnClosed().Times(0)

		_, err := f.svc.Register(context.Background(), d, f.listener)

		req.ErrorIs(err, errors.ErrUpload)
		var partial *PartialRegistrationError
		req.ErrorAs(err, &partial)
		req.Equal("uid-1", partial.UserID)
		req.Equal(domain.StageUpload, partial.Stage)
	})

	t.Run("should report url resolution failures", func(t *testing.T) {
		req := require.New(t)
		f := newRegistrationFixture(t)
		d := draft(t)

		f.auth.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return("uid-1", nil)
		f.blobs.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		f.blobs.EXPECT().DownloadURL(gomock.Any(), gomock.Any()).Return("", fmt.Errorf("object not found"))
		f.profiles.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.listener.EXPECT().OnFailed(gomock.Any())

		_, err := f.svc.Register(context.Background(), d, f.listener)

		req.ErrorIs(err, errors.ErrURLResolution)
		var partial *PartialRegistrationError
		req.ErrorAs(err, &partial)
		req.Equal(domain.StageResolveURL, partial.Stage)
	})

	t.Run("should keep the screen open when the profile write fails", func(t *testing.T) {
		req := require.New(t)
		f := newRegistrationFixture(t)
		d := draft(t)

		f.auth.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return("uid-1", nil)
		f.blobs.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		f.blobs.EXPECT().DownloadURL(gomock.Any(), gomock.Any()).Return("http://img", nil)
		f.profiles.EXPECT().Write(gomock.Any(), "uid-1", gomock.Any()).Return(fmt.Errorf("permission denied"))
		f.listener.EXPECT().OnFailed(gomock.Any())
		f.listener.EXPECT().OnRegistered(gomock.Any()).Times(0)
		f.listener.EXPECT().OnClosed().Times(0)

		_, err := f.svc.Register(context.Background(), d, f.listener)

		req.ErrorIs(err, errors.ErrProfileWrite)
	})

	t.Run("should reject a draft without a usable image after creating the account", func(t *testing.T) {
		req := require.New(t)
		f := newRegistrationFixture(t)
		d := draft(t)
		d.ProfileImage = []byte("definitely not a picture")

		f.auth.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return("uid-1", nil)
		f.blobs.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.listener.EXPECT().OnFailed(gomock.Any())

		_, err := f.svc.Register(context.Background(), d, f.listener)

		req.ErrorIs(err, errors.ErrUpload)
		req.ErrorIs(err, errors.ErrUnsupportedImage)
	})

	t.Run("should stop silently once the screen is gone", func(t *testing.T) {
		req := require.New(t)
		f := newRegistrationFixture(t)
		d := draft(t)
		ctx, cancel := context.WithCancel(context.Background())

		f.auth.EXPECT().
			CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, string, string) (string, error) {
				cancel()
				return "uid-1", nil
			})
		f.blobs.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.listener.EXPECT().OnFailed(gomock.Any()).Times(0)

		_, err := f.svc.Register(ctx, d, f.listener)

		req.ErrorIs(err, context.Canceled)
	})

	t.Run("should accept a nil listener", func(t *testing.T) {
		req := require.New(t)
		f := newRegistrationFixture(t)
		d := draft(t)
		d.Email = ""

		_, err := f.svc.Register(context.Background(), d, nil)

		req.ErrorIs(err, errors.ErrValidation)
	})
}

func TestRegistrationService_Resume(t *testing.T) {
	req := require.New(t)
	f := newRegistrationFixture(t)
	d := draft(t)

	f.auth.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.blobs.EXPECT().Upload(gomock.Any(), "profile_images/fixed-name", gomock.Any(), "image/jpeg").Return(nil)
	f.blobs.EXPECT().DownloadURL(gomock.Any(), "profile_images/fixed-name").Return("http://img", nil)
	f.profiles.EXPECT().
		Write(gomock.Any(), "orphan-uid", domain.ProfileFields{Name: "Jin", Email: d.Email, ProfileImageURL: "http://img"}).
		Return(nil)
	f.listener.EXPECT().OnRegistered("Jin")
	f.listener.EXPECT().OnClosed()

	user, err := f.svc.Resume(context.Background(), "orphan-uid", d, f.listener)

	req.NoError(err)
	req.Equal("orphan-uid", user.ID)
}
