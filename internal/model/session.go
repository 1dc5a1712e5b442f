package model

import "time"

// SessionData is the server-side state for one logged-in session. The
// CouchDB credentials are minted at login, scoped to the one account
// database, and never re-derived mid-session.
type SessionData struct {
	Account       string    `json:"account"`
	CouchUser     string    `json:"couchUser"`
	CouchPassword string    `json:"couchPassword"`
	CreatedAt     time.Time `json:"createdAt"`
}
