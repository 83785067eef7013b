package session

import (
	"log/slog"

	"github.com/Warner231936/Requiem-AIweb/internal/api"
	"github.com/Warner231936/Requiem-AIweb/internal/credstore"
	"github.com/Warner231936/Requiem-AIweb/pkg/models"
)

// State is the controller's position in the auth lifecycle
type State int

const (
	StateAnonymous State = iota
	StateBootstrapping
	StateActive
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateBootstrapping:
		return "bootstrapping"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Controller owns the session token, the user profile, and the
// anonymous/bootstrapping/active state machine. All mutations happen on the
// program loop; async fetches only carry a generation number back, and any
// result stamped with a stale generation is discarded before it can touch
// state belonging to a newer or absent session.
type Controller struct {
	store  *credstore.Store
	client *api.Client

	state      State
	generation uint64
	token      string
	profile    models.UserProfile
	hasProfile bool
}

// NewController wires the controller to its credential store and gateway.
func NewController(store *credstore.Store, client *api.Client) *Controller {
	return &Controller{store: store, client: client, state: StateAnonymous}
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Generation returns the identity of the current session. It increases on
// every establish and teardown, invalidating in-flight work.
func (c *Controller) Generation() uint64 {
	return c.generation
}

// Token returns the active bearer token, empty when anonymous.
func (c *Controller) Token() string {
	return c.token
}

// Profile returns the current user profile when one has been applied.
func (c *Controller) Profile() (models.UserProfile, bool) {
	return c.profile, c.hasProfile
}

// Hydrate restores a persisted token from the credential store. When one is
// present the controller moves to bootstrapping and reports true: the
// caller should start a bootstrap for the returned generation.
func (c *Controller) Hydrate() bool {
	token, ok := c.store.Get()
	if !ok {
		return false
	}
	c.token = token
	c.client.SetToken(token)
	c.generation++
	c.state = StateBootstrapping
	slog.Info("session hydrated from stored credential", "generation", c.generation)
	return true
}

// Establish installs a freshly issued token (login or signup), persists it,
// and moves to bootstrapping. Returns the new session generation.
func (c *Controller) Establish(token string) uint64 {
	c.token = token
	c.client.SetToken(token)
	if err := c.store.Set(token); err != nil {
		slog.Warn("failed to persist credential", "error", err)
	}
	c.generation++
	c.state = StateBootstrapping
	c.profile = models.UserProfile{}
	c.hasProfile = false
	slog.Info("session established", "generation", c.generation)
	return c.generation
}

// Accept reports whether a result stamped with gen may still be applied.
func (c *Controller) Accept(gen uint64) bool {
	return gen == c.generation && c.state != StateAnonymous
}

// ApplyBootstrap moves the session to active with the fetched profile,
// unless the session identity changed while the bootstrap was in flight.
func (c *Controller) ApplyBootstrap(gen uint64, profile models.UserProfile) bool {
	if !c.Accept(gen) {
		slog.Info("discarding stale bootstrap", "generation", gen, "current", c.generation)
		return false
	}
	c.profile = profile
	c.hasProfile = true
	c.state = StateActive
	return true
}

// FailBootstrap records that the bootstrap for gen failed for a reason
// other than session expiry. The session is retained: the state moves to
// active so the UI stops waiting and the user can retry or keep working
// with whatever the server will still serve.
func (c *Controller) FailBootstrap(gen uint64) bool {
	if !c.Accept(gen) {
		slog.Info("discarding stale bootstrap failure", "generation", gen, "current", c.generation)
		return false
	}
	c.state = StateActive
	slog.Warn("bootstrap failed, session retained", "generation", gen)
	return true
}

// RetryBootstrap re-enters bootstrapping for the current session so a
// failed bootstrap can be reissued. The generation is unchanged: this is
// the same session, and any result from the failed attempt has already
// settled.
func (c *Controller) RetryBootstrap() uint64 {
	c.state = StateBootstrapping
	slog.Info("bootstrap retry", "generation", c.generation)
	return c.generation
}

// Teardown destroys the session: the stored credential is cleared, the
// gateway loses its token, and the generation advances so any in-flight
// results resolve as stale.
func (c *Controller) Teardown() {
	c.store.Clear()
	c.client.ClearToken()
	c.token = ""
	c.profile = models.UserProfile{}
	c.hasProfile = false
	c.generation++
	c.state = StateAnonymous
	slog.Info("session torn down", "generation", c.generation)
}
