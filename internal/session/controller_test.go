package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Warner231936/Requiem-AIweb/internal/api"
	"github.com/Warner231936/Requiem-AIweb/internal/credstore"
)

// backendHandler fakes the protected endpoints and records which paths were
// hit, so tests can assert the bootstrap fan-out
type backendHandler struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]int // path -> status code to force
}

func newBackendHandler() *backendHandler {
	return &backendHandler{calls: map[string]int{}, fail: map[string]int{}}
}

func (h *backendHandler) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[path]
}

func (h *backendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.calls[r.URL.Path]++
	status := h.fail[r.URL.Path]
	h.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"detail": "forced failure"}`)
		return
	}

	switch r.URL.Path {
	case "/auth/login":
		fmt.Fprint(w, `{"access_token": "tok123", "token_type": "bearer"}`)
	case "/auth/me":
		fmt.Fprint(w, `{"id": 1, "username": "nova", "email": "nova@example.com"}`)
	case "/progress/":
		fmt.Fprint(w, `{"tasks": [{"id": 1, "name": "ingest", "progress": 40}], "events": [], "overall_progress": 40}`)
	case "/chat/history":
		fmt.Fprint(w, `[{"id": 1, "role": "ai", "content": "welcome back", "created_at": "2026-03-01T12:00:00Z"}]`)
	default:
		http.NotFound(w, r)
	}
}

func newTestController(t *testing.T, handler http.Handler) (*Controller, *credstore.Store, *api.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	store := credstore.NewAt(filepath.Join(t.TempDir(), "token"))
	client := api.NewClient(server.URL)
	return NewController(store, client), store, client
}

// TestLoginEstablishBootstrap tests the whole happy path: credential
// exchange, session establishment, concurrent bootstrap, activation
func TestLoginEstablishBootstrap(t *testing.T) {
	handler := newBackendHandler()
	controller, store, client := newTestController(t, handler)

	if controller.State() != StateAnonymous {
		t.Fatalf("fresh controller should be anonymous, got %v", controller.State())
	}

	token, err := client.Login(context.Background(), "nova", "secretpw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	gen := controller.Establish(token)

	if controller.State() != StateBootstrapping {
		t.Errorf("expected bootstrapping, got %v", controller.State())
	}
	if stored, ok := store.Get(); !ok || stored != "tok123" {
		t.Errorf("expected persisted token tok123, got %q (present=%v)", stored, ok)
	}

	result := controller.Bootstrap(context.Background(), gen, 50)
	if result.Err != nil {
		t.Fatalf("bootstrap failed: %v", result.Err)
	}
	if !controller.ApplyBootstrap(result.Generation, result.Profile) {
		t.Fatal("bootstrap result for the current generation should be applied")
	}

	if controller.State() != StateActive {
		t.Errorf("expected active, got %v", controller.State())
	}
	profile, ok := controller.Profile()
	if !ok || profile.Username != "nova" {
		t.Errorf("unexpected profile: %+v (present=%v)", profile, ok)
	}

	// One call to each of the three bootstrap endpoints, no more
	for _, path := range []string{"/auth/me", "/progress/", "/chat/history"} {
		if n := handler.count(path); n != 1 {
			t.Errorf("expected exactly 1 call to %s, got %d", path, n)
		}
	}
	if len(result.History) != 1 || result.History[0].Content != "welcome back" {
		t.Errorf("unexpected history: %+v", result.History)
	}
	if result.Report.OverallProgress != 40 {
		t.Errorf("unexpected progress report: %+v", result.Report)
	}
}

// TestStaleBootstrapDiscarded tests that a result from a superseded session
// generation never touches state
func TestStaleBootstrapDiscarded(t *testing.T) {
	handler := newBackendHandler()
	controller, _, _ := newTestController(t, handler)

	oldGen := controller.Establish("tok-old")
	staleResult := controller.Bootstrap(context.Background(), oldGen, 50)

	// A second login supersedes the first before its bootstrap lands
	newGen := controller.Establish("tok-new")
	if newGen == oldGen {
		t.Fatal("establish must advance the generation")
	}

	if controller.ApplyBootstrap(staleResult.Generation, staleResult.Profile) {
		t.Error("stale bootstrap result must be discarded")
	}
	if controller.State() != StateBootstrapping {
		t.Errorf("stale result must not change state, got %v", controller.State())
	}
	if _, ok := controller.Profile(); ok {
		t.Error("stale result must not install a profile")
	}

	fresh := controller.Bootstrap(context.Background(), newGen, 50)
	if !controller.ApplyBootstrap(fresh.Generation, fresh.Profile) {
		t.Error("the current generation's result should be applied")
	}
}

// TestAcceptAfterTeardown tests that teardown invalidates in-flight work
func TestAcceptAfterTeardown(t *testing.T) {
	handler := newBackendHandler()
	controller, store, client := newTestController(t, handler)

	gen := controller.Establish("tok123")
	controller.Teardown()

	if controller.Accept(gen) {
		t.Error("results issued before teardown must be rejected")
	}
	if controller.State() != StateAnonymous {
		t.Errorf("expected anonymous after teardown, got %v", controller.State())
	}
	if controller.Token() != "" {
		t.Error("teardown should clear the token")
	}
	if _, ok := store.Get(); ok {
		t.Error("teardown should clear the stored credential")
	}

	// The gateway must no longer send the old bearer value
	if _, err := client.FetchProfile(context.Background()); err != nil {
		// The fake backend accepts anything; only transport errors matter here
		t.Fatalf("fetch failed: %v", err)
	}
}

// TestHydrateRestoresStoredToken tests startup restoration from disk
func TestHydrateRestoresStoredToken(t *testing.T) {
	handler := newBackendHandler()
	controller, store, _ := newTestController(t, handler)

	if controller.Hydrate() {
		t.Error("hydrate with an empty store should report false")
	}
	if controller.State() != StateAnonymous {
		t.Errorf("failed hydrate must leave the controller anonymous, got %v", controller.State())
	}

	if err := store.Set("tok123"); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	if !controller.Hydrate() {
		t.Fatal("hydrate with a stored token should report true")
	}
	if controller.State() != StateBootstrapping {
		t.Errorf("expected bootstrapping after hydrate, got %v", controller.State())
	}
	if controller.Token() != "tok123" {
		t.Errorf("expected restored token tok123, got %q", controller.Token())
	}
}

// TestFailBootstrapRetainsSession tests the non-auth failure transition:
// the session survives and a retry can be issued
func TestFailBootstrapRetainsSession(t *testing.T) {
	handler := newBackendHandler()
	controller, store, _ := newTestController(t, handler)

	gen := controller.Establish("tok123")
	if !controller.FailBootstrap(gen) {
		t.Fatal("failure for the current generation should be recorded")
	}

	if controller.State() != StateActive {
		t.Errorf("failed bootstrap should leave the busy state, got %v", controller.State())
	}
	if controller.Token() != "tok123" {
		t.Error("failed bootstrap must retain the token")
	}
	if stored, ok := store.Get(); !ok || stored != "tok123" {
		t.Error("failed bootstrap must retain the stored credential")
	}
	if _, ok := controller.Profile(); ok {
		t.Error("failed bootstrap must not install a profile")
	}

	retryGen := controller.RetryBootstrap()
	if retryGen != gen {
		t.Errorf("retry is the same session, expected generation %d, got %d", gen, retryGen)
	}
	if controller.State() != StateBootstrapping {
		t.Errorf("retry should re-enter bootstrapping, got %v", controller.State())
	}

	result := controller.Bootstrap(context.Background(), retryGen, 50)
	if result.Err != nil {
		t.Fatalf("retry bootstrap failed: %v", result.Err)
	}
	if !controller.ApplyBootstrap(result.Generation, result.Profile) {
		t.Error("retry result should be applied")
	}
	if controller.State() != StateActive {
		t.Errorf("expected active after retry, got %v", controller.State())
	}
}

// TestStaleFailBootstrapIgnored tests that a superseded failure cannot
// disturb a newer session
func TestStaleFailBootstrapIgnored(t *testing.T) {
	handler := newBackendHandler()
	controller, _, _ := newTestController(t, handler)

	oldGen := controller.Establish("tok-old")
	controller.Establish("tok-new")

	if controller.FailBootstrap(oldGen) {
		t.Error("a stale failure must be discarded")
	}
	if controller.State() != StateBootstrapping {
		t.Errorf("stale failure must not change state, got %v", controller.State())
	}
}

// TestBootstrapFailFast tests that one failing fetch fails the whole
// bootstrap with a classifiable error
func TestBootstrapFailFast(t *testing.T) {
	handler := newBackendHandler()
	handler.fail["/progress/"] = http.StatusUnauthorized
	controller, _, _ := newTestController(t, handler)

	gen := controller.Establish("tok123")
	result := controller.Bootstrap(context.Background(), gen, 50)

	if result.Err == nil {
		t.Fatal("bootstrap with a failing fetch must report an error")
	}
	if !errors.Is(result.Err, api.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", result.Err)
	}
	if controller.State() != StateBootstrapping {
		t.Errorf("bootstrap itself must not change state, got %v", controller.State())
	}
}
