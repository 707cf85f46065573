package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursedeck/authgate/sessions"
	"github.com/coursedeck/authgate/token"
)

// Poller re-validates the current session on a fixed interval so long-lived
// clients stay authenticated without user action. It is advisory keep-alive
// logic: every failure path degrades to "treat as logged out" and nothing
// here ever blocks the caller.
type Poller struct {
	store    sessions.Store
	coord    *Coordinator
	tokens   *token.Codec
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	role     string
	loggedIn bool
}

func NewPoller(store sessions.Store, coord *Coordinator, tokens *token.Codec, interval time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		store:    store,
		coord:    coord,
		tokens:   tokens,
		interval: interval,
		log:      log,
	}
}

// Run polls until ctx is cancelled. An in-flight refresh that loses its
// caller is not cancelled; its write still lands, which is tolerable because
// every write carries authoritative content from the backend.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one re-validation pass.
func (p *Poller) Poll(ctx context.Context) {
	rec := p.store.Get()
	if rec == nil {
		p.setState("", false)
		return
	}

	if p.tokens.IsExpired(rec.AccessToken) {
		if _, err := p.coord.Refresh(ctx); err != nil {
			p.log.Info().Err(err).Msg("session expired and refresh failed; logging out")
			p.store.Clear()
			p.setState("", false)
			return
		}
	} else if p.coord.ShouldRefresh(rec.AccessToken) {
		// Opportunistic: the token is still valid, so a failure here is
		// non-fatal and the next tick will try again.
		if _, err := p.coord.Refresh(ctx); err != nil {
			p.log.Debug().Err(err).Msg("proactive refresh failed")
		}
	}

	if current := p.store.Get(); current != nil {
		p.setState(current.Role, true)
	} else {
		p.setState("", false)
	}
}

// Snapshot returns the in-memory view of the current role and whether the
// caller is logged in, for UI-side rendering decisions.
func (p *Poller) Snapshot() (role string, loggedIn bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.role, p.loggedIn
}

func (p *Poller) setState(role string, loggedIn bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.role = role
	p.loggedIn = loggedIn
}
