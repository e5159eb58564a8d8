package domain

// RegistrationDraft lives for a single registration attempt.
type RegistrationDraft struct {
	Email        string `validate:"required"`
	Password     string `validate:"required"`
	DisplayName  string `validate:"required"`
	ProfileImage []byte
}

// Stage names a step of the registration pipeline.
type Stage int

const (
	StageValidate Stage = iota
	StageCreateIdentity
	StageUpload
	StageResolveURL
	StagePersistProfile
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate"
	case StageCreateIdentity:
		return "create_identity"
	case StageUpload:
		return "upload_asset"
	case StageResolveURL:
		return "resolve_asset_url"
	case StagePersistProfile:
		return "persist_profile"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}
