package domain

// User is a read-only copy of a profile owned by the backend.
type User struct {
	ID              string
	Name            string
	Email           string
	ProfileImageURL string
}

// ProfileFields is what the profile store holds for a uid.
type ProfileFields struct {
	Name            string
	Email           string
	ProfileImageURL string
}

func (p ProfileFields) ToUser(id string) User {
	return User{
		ID:              id,
		Name:            p.Name,
		Email:           p.Email,
		ProfileImageURL: p.ProfileImageURL,
	}
}
