package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Registration pipeline stages
	ErrValidation    = fmt.Errorf("registration form is not valid")
	ErrAuth          = fmt.Errorf("auth backend failure")
	ErrUpload        = fmt.Errorf("profile image upload failed")
	ErrURLResolution = fmt.Errorf("download url resolution failed")
	ErrProfileWrite  = fmt.Errorf("profile write failed")

	ErrFeed               = fmt.Errorf("message feed failure")
	ErrNotSignedIn        = fmt.Errorf("no user is signed in")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidMessage     = fmt.Errorf("invalid message")
	ErrInvalidUserID      = fmt.Errorf("invalid user id")
	ErrBlobNotFound       = fmt.Errorf("blob not found")
	ErrProfileNotFound    = fmt.Errorf("profile not found")
	ErrUnsupportedImage   = fmt.Errorf("unsupported image")
)

// Is and As forward to the standard library so callers importing this package
// do not need a second errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
