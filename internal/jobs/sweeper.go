package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CredentialRegistry lists and revokes minted database session users.
type CredentialRegistry interface {
	ListSessionUsers(ctx context.Context, account string) ([]string, error)
	DeleteSessionUser(ctx context.Context, user string) error
}

// SessionLiveness reports whether a minted user still backs a live
// session.
type SessionLiveness interface {
	CouchUserLive(ctx context.Context, couchUser string) (bool, error)
}

// CredentialSweeper deletes minted CouchDB session users whose session
// is gone. Logout revokes eagerly; this covers sessions that expired in
// redis without a logout.
type CredentialSweeper struct {
	registry CredentialRegistry
	sessions SessionLiveness
	interval time.Duration
	done     chan struct{}
}

func NewCredentialSweeper(registry CredentialRegistry, sessions SessionLiveness, interval time.Duration) *CredentialSweeper {
	return &CredentialSweeper{
		registry: registry,
		sessions: sessions,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CredentialSweeper) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("credential sweeper started")
}

func (j *CredentialSweeper) Stop() {
	close(j.done)
	log.Info().Msg("credential sweeper stopped")
}

func (j *CredentialSweeper) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *CredentialSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users, err := j.registry.ListSessionUsers(ctx, "")
	if err != nil {
		log.Error().Err(err).Msg("credential sweep: list session users failed")
		return
	}

	swept := 0
	for _, user := range users {
		live, err := j.sessions.CouchUserLive(ctx, user)
		if err != nil {
			log.Error().Err(err).Str("couchUser", user).Msg("credential sweep: liveness check failed")
			continue
		}
		if live {
			continue
		}
		if err := j.registry.DeleteSessionUser(ctx, user); err != nil {
			log.Error().Err(err).Str("couchUser", user).Msg("credential sweep: revoke failed")
			continue
		}
		swept++
	}

	if swept > 0 {
		log.Info().Int("count", swept).Msg("swept orphaned session credentials")
	}
}
