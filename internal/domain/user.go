package domain

import "time"

// User represents a registered account. There are no credential fields;
// authentication is out of scope for the platform.
type User struct {
	ID                int       `json:"id"`
	Username          string    `json:"username"`
	ExternalAccountID *string   `json:"externalAccountId"`
	AvatarURL         *string   `json:"avatarUrl"`
	Bio               *string   `json:"bio"`
	CreatedAt         time.Time `json:"createdAt"`
}

// InsertUser is the create payload for a user
type InsertUser struct {
	Username          string  `json:"username"`
	ExternalAccountID *string `json:"externalAccountId"`
	AvatarURL         *string `json:"avatarUrl"`
	Bio               *string `json:"bio"`
}

// Validate checks required fields
func (in *InsertUser) Validate() error {
	var ve ValidationError
	if in.Username == "" {
		ve.Add("username", "username is required")
	}
	return ve.Err()
}

// UpdateUser is a partial update: nil fields keep their prior value
type UpdateUser struct {
	Username          *string `json:"username"`
	ExternalAccountID *string `json:"externalAccountId"`
	AvatarURL         *string `json:"avatarUrl"`
	Bio               *string `json:"bio"`
}

// ApplyTo merges non-nil fields over an existing user
func (in *UpdateUser) ApplyTo(u *User) {
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.ExternalAccountID != nil {
		u.ExternalAccountID = in.ExternalAccountID
	}
	if in.AvatarURL != nil {
		u.AvatarURL = in.AvatarURL
	}
	if in.Bio != nil {
		u.Bio = in.Bio
	}
}
