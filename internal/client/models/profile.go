package models

import "time"

// Profile is the application-level record for a user, stored in the
// collaborator's profile table keyed by the auth user id.
type Profile struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfile is the upsert payload used to provision a profile for a fresh
// identity.
type NewProfile struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// ProfileFor seeds a NewProfile from identity metadata.
func ProfileFor(u *User) NewProfile {
	return NewProfile{
		Id:        u.Id,
		Name:      u.DisplayName(),
		Email:     u.Email,
		AvatarURL: u.AvatarURL(),
	}
}
