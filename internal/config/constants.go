package config

import "time"

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// CouchDB ping timeout at startup
const CouchPingTimeout = 5 * time.Second

// Background job intervals
const CredentialSweepInterval = 5 * time.Minute

// Login rate limiting
const (
	LoginMaxAttemptsPerMin = 10
)

// Fitbit refresh policy
const (
	FitbitTokenRenewAfter  = 4 * time.Hour
	FitbitUpdateAfter      = 10 * time.Minute
	FitbitQueryWindowDays  = 60
	FitbitQueryOverlapDays = 2
)
