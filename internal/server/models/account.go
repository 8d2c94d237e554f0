// Package models holds server-side persistence models.
package models

import "time"

// Account is a registered user account as stored by the accounts repository.
// PasswordHash and CurrentRefreshToken are credential material and must never
// reach a client; hand out PublicView instead.
type Account struct {
	ID                  string
	Username            string
	Email               string
	Fullname            string
	PasswordHash        string
	CurrentRefreshToken string
	AvatarURL           string
	CoverImageURL       string
	CreatedAt           time.Time
	LastLoginAt         time.Time
}

// PublicAccount is the client-safe subset of an account.
type PublicAccount struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Fullname      string    `json:"fullname"`
	AvatarURL     string    `json:"avatar,omitempty"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PublicView strips credential material from the account. This is the only
// account form returned to clients, on success and error paths alike.
func (a *Account) PublicView() *PublicAccount {
	return &PublicAccount{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		Fullname:      a.Fullname,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt,
	}
}
