package models

import "time"

// Identity is the signed-in user of a session, taken from a verified id_token.
type Identity struct {
	Subject   string    `json:"sub"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name,omitempty"`
}

type MembersView struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}
