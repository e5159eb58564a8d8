package auth

import (
	"chat-inbox/domain"
	"chat-inbox/errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRegistration checks that every required form field was filled in.
// It never touches a backend.
func ValidateRegistration(draft domain.RegistrationDraft) error {
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	missing := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		missing = append(missing, fe.Field())
	}
	return fmt.Errorf("%w: missing %s", errors.ErrValidation, strings.Join(missing, ", "))
}
