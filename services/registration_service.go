package services

import (
	"chat-inbox/auth"
	"chat-inbox/contract"
	"chat-inbox/domain"
	"chat-inbox/errors"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const profileImagesFolder = "profile_images"

type IRegistrationService interface {
	Register(ctx context.Context, draft domain.RegistrationDraft, listener contract.RegistrationListener) (domain.User, error)
	Resume(ctx context.Context, userID string, draft domain.RegistrationDraft, listener contract.RegistrationListener) (domain.User, error)
}

// PartialRegistrationError reports a failure after the identity was created.
// UserID names the orphaned account, which Resume can complete.
type PartialRegistrationError struct {
	UserID string
	Stage  domain.Stage
	Err    error
}

func (e *PartialRegistrationError) Error() string {
	return fmt.Sprintf("registration of %s stopped at %s: %v", e.UserID, e.Stage, e.Err)
}

func (e *PartialRegistrationError) Unwrap() error { return e.Err }

type RegistrationService struct {
	log          *slog.Logger
	auth         contract.AuthBackend
	blobs        contract.BlobStore
	profiles     contract.ProfileStore
	imageQuality int
	newBlobName  func() string
}

func NewRegistrationService(
	log *slog.Logger,
	auth contract.AuthBackend,
	blobs contract.BlobStore,
	profiles contract.ProfileStore,
	imageQuality int,
) *RegistrationService {
	return &RegistrationService{
		log:          log,
		auth:         auth,
		blobs:        blobs,
		profiles:     profiles,
		imageQuality: imageQuality,
		newBlobName:  func() string { return uuid.NewString() },
	}
}

// Register runs validate, create identity, upload, resolve url and persist
// profile in order, stopping at the first failure. Nothing is retried and
// nothing is rolled back: a failure after the account exists comes back as
// a *PartialRegistrationError.
//
// The listener hears about success and failure unless ctx was cancelled,
// in which case the screen is considered gone.
func (s *RegistrationService) Register(ctx context.Context, draft domain.RegistrationDraft, listener contract.RegistrationListener) (domain.User, error) {
	if err := auth.ValidateRegistration(draft); err != nil {
		s.log.Debug("Registration form rejected", "error", err)
		return domain.User{}, s.fail(ctx, listener, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	uid, err := s.auth.CreateAccount(ctx, draft.Email, draft.Password)
	if err != nil {
		err = fmt.Errorf("%w: %w", errors.ErrAuth, err)
		s.log.Warn("Account creation failed", "email", draft.Email, "error", err)
		return domain.User{}, s.fail(ctx, listener, err)
	}
	s.log.Info("Account created", "user_id", uid)

	return s.complete(ctx, uid, draft, listener)
}

// Resume finishes a registration whose account already exists, running the
// upload, url and profile stages again for userID.
func (s *RegistrationService) Resume(ctx context.Context, userID string, draft domain.RegistrationDraft, listener contract.RegistrationListener) (domain.User, error) {
	if err := auth.ValidateRegistration(draft); err != nil {
		return domain.User{}, s.fail(ctx, listener, err)
	}
	s.log.Info("Resuming registration", "user_id", userID)
	return s.complete(ctx, userID, draft, listener)
}

func (s *RegistrationService) complete(ctx context.Context, uid string, draft domain.RegistrationDraft, listener contract.RegistrationListener) (domain.User, error) {
	partial := func(stage domain.Stage, err error) (domain.User, error) {
		s.log.Warn("Registration left incomplete", "user_id", uid, "stage", stage.String(), "error", err)
		return domain.User{}, s.fail(ctx, listener, &PartialRegistrationError{UserID: uid, Stage: stage, Err: err})
	}

	if err := ctx.Err(); err != nil {
		return partial(domain.StageUpload, err)
	}
	compressed, contentType, err := CompressImage(draft.ProfileImage, s.imageQuality)
	if err != nil {
		return partial(domain.StageUpload, fmt.Errorf("%w: %w", errors.ErrUpload, err))
	}
	key := profileImagesFolder + "/" + s.newBlobName()
	if err = s.blobs.Upload(ctx, key, compressed, contentType); err != nil {
		return partial(domain.StageUpload, fmt.Errorf("%w: %w", errors.ErrUpload, err))
	}

	if err = ctx.Err(); err != nil {
		return partial(domain.StageResolveURL, err)
	}
	url, err := s.blobs.DownloadURL(ctx, key)
	if err != nil {
		return partial(domain.StageResolveURL, fmt.Errorf("%w: %w", errors.ErrURLResolution, err))
	}

	if err = ctx.Err(); err != nil {
		return partial(domain.StagePersistProfile, err)
	}
	fields := domain.ProfileFields{
		Name:            draft.DisplayName,
		Email:           draft.Email,
		ProfileImageURL: url,
	}
	if err = s.profiles.Write(ctx, uid, fields); err != nil {
		return partial(domain.StagePersistProfile, fmt.Errorf("%w: %w", errors.ErrProfileWrite, err))
	}

	s.log.Info("Registration completed", "user_id", uid, "name", fields.Name)
	if listener != nil && ctx.Err() == nil {
		listener.OnRegistered(fields.Name)
		listener.OnClosed()
	}
	return fields.ToUser(uid), nil
}

func (s *RegistrationService) fail(ctx context.Context, listener contract.RegistrationListener, err error) error {
	if listener != nil && ctx.Err() == nil {
		listener.OnFailed(err)
	}
	return err
}
