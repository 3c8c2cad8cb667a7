package models

import "time"

// OAuthConfig holds the client settings for one OAuth provider (kakao, google).
// Stored in the database and managed via the configure CLI.
type OAuthConfig struct {
	Provider     string    `json:"provider"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"-"`
	RedirectURI  string    `json:"redirect_uri"`
	AuthURL      string    `json:"auth_url"`
	TokenURL     string    `json:"token_url"`
	ProfileURL   string    `json:"profile_url"`
	Scopes       string    `json:"scopes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
