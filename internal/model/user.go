package model

import "time"

type User struct {
	ID                 int
	Email              string
	PasswordHash       string
	GoogleAccessToken  string
	GoogleRefreshToken string
	CreatedAt          time.Time
}

// HasGoogleCredentials reports whether the user has connected a Google
// account usable by the mail fetcher.
func (u *User) HasGoogleCredentials() bool {
	return u.GoogleAccessToken != "" || u.GoogleRefreshToken != ""
}
