package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestLoginSuccess tests the form-encoded credential exchange
func TestLoginSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("username") != "nova" || r.PostForm.Get("password") != "secretpw" {
			t.Errorf("unexpected credentials: %v", r.PostForm)
		}
		fmt.Fprint(w, `{"access_token": "tok123", "token_type": "bearer"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	token, err := client.Login(context.Background(), "nova", "secretpw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token != "tok123" {
		t.Errorf("expected token tok123, got %q", token)
	}
}

// TestLoginRejectedUsesServerDetail tests that the server's detail message
// surfaces in the error
func TestLoginRejectedUsesServerDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail": "Incorrect username or password"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Login(context.Background(), "nova", "wrong")
	if !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("expected ErrAuthRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect username or password") {
		t.Errorf("server detail missing from error: %v", err)
	}
}

// TestLoginRejectedFallbackMessage tests the generic message when the error
// body is not parseable
func TestLoginRejectedFallbackMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>bad gateway</html>")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Login(context.Background(), "nova", "secretpw")
	if !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("expected ErrAuthRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), loginFallback) {
		t.Errorf("expected fallback message in error: %v", err)
	}
}

// TestSignupPerformsImplicitLogin tests the multipart signup followed by the
// internal credential exchange
func TestSignupPerformsImplicitLogin(t *testing.T) {
	var sawSignup, sawLogin bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/signup":
			sawSignup = true
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				t.Errorf("signup content type should be multipart, got %q", r.Header.Get("Content-Type"))
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("failed to parse multipart form: %v", err)
			}
			if r.FormValue("username") != "nova" || r.FormValue("email") != "nova@example.com" {
				t.Errorf("unexpected signup fields: %v", r.MultipartForm.Value)
			}
			fmt.Fprint(w, `{"id": 1, "username": "nova", "email": "nova@example.com"}`)
		case "/auth/login":
			sawLogin = true
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse login form: %v", err)
			}
			if r.PostForm.Get("username") != "nova" || r.PostForm.Get("password") != "secretpw" {
				t.Errorf("implicit login should reuse signup credentials: %v", r.PostForm)
			}
			fmt.Fprint(w, `{"access_token": "tok123", "token_type": "bearer"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	token, err := client.Signup(context.Background(), "nova", "nova@example.com", "secretpw", "", nil)
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if token != "tok123" {
		t.Errorf("expected token tok123, got %q", token)
	}
	if !sawSignup || !sawLogin {
		t.Errorf("expected signup then login, got signup=%v login=%v", sawSignup, sawLogin)
	}
}

// TestSignupWithPicture tests that the optional profile picture is attached
func TestSignupWithPicture(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			fmt.Fprint(w, `{"access_token": "tok123", "token_type": "bearer"}`)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		file, header, err := r.FormFile("profile_picture")
		if err != nil {
			t.Fatalf("profile picture missing: %v", err)
		}
		defer file.Close()
		if header.Filename != "avatar.png" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		fmt.Fprint(w, `{"id": 1, "username": "nova", "email": "nova@example.com"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	picture := strings.NewReader("not-really-a-png")
	if _, err := client.Signup(context.Background(), "nova", "nova@example.com", "secretpw", "avatar.png", picture); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
}

// TestAuthorizedRequestsCarryBearerToken tests the Authorization header on
// every protected endpoint
func TestAuthorizedRequestsCarryBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("%s: expected bearer header, got %q", r.URL.Path, got)
		}
		switch r.URL.Path {
		case "/auth/me":
			fmt.Fprint(w, `{"id": 1, "username": "nova", "email": "nova@example.com"}`)
		case "/progress/":
			fmt.Fprint(w, `{"tasks": [], "events": [], "overall_progress": 0}`)
		case "/chat/history":
			if r.URL.Query().Get("limit") != "50" {
				t.Errorf("expected limit=50, got %q", r.URL.Query().Get("limit"))
			}
			fmt.Fprint(w, `[]`)
		case "/chat/message":
			fmt.Fprint(w, `[{"id": 1, "role": "user", "content": "hi", "created_at": "2026-03-01T12:00:00Z"}]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("tok123")
	ctx := context.Background()

	if _, err := client.FetchProfile(ctx); err != nil {
		t.Errorf("fetch profile failed: %v", err)
	}
	if _, err := client.FetchProgress(ctx); err != nil {
		t.Errorf("fetch progress failed: %v", err)
	}
	if _, err := client.FetchChatHistory(ctx, 50); err != nil {
		t.Errorf("fetch history failed: %v", err)
	}
	if _, err := client.PostMessage(ctx, "hi"); err != nil {
		t.Errorf("post message failed: %v", err)
	}
}

// TestUnauthorizedClassifiedAsSessionExpired tests 401 classification
func TestUnauthorizedClassifiedAsSessionExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail": "Could not validate credentials"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("stale")
	_, err := client.FetchProgress(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

// TestServerErrorClassifiedAsRequestFailed tests non-401 failure classification
func TestServerErrorClassifiedAsRequestFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"detail": "task store unavailable"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("tok123")
	_, err := client.FetchProgress(context.Background())
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Error("a 500 must not be classified as session expiry")
	}
	if !strings.Contains(err.Error(), "task store unavailable") {
		t.Errorf("server detail missing from error: %v", err)
	}
}

// TestFetchProgressDecodesReport tests the progress payload shape
func TestFetchProgressDecodesReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"tasks": [{"id": 1, "name": "ingest", "progress": 40}],
			"events": [{"id": 7, "task_id": 1, "task_name": "ingest", "progress": 40, "source": "worker", "created_at": "2026-03-01T12:00:00Z"}],
			"overall_progress": 40.0
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("tok123")
	report, err := client.FetchProgress(context.Background())
	if err != nil {
		t.Fatalf("fetch progress failed: %v", err)
	}
	if len(report.Tasks) != 1 || report.Tasks[0].Name != "ingest" {
		t.Errorf("unexpected tasks: %+v", report.Tasks)
	}
	if len(report.Events) != 1 || report.Events[0].Source != "worker" {
		t.Errorf("unexpected events: %+v", report.Events)
	}
	if report.OverallProgress != 40.0 {
		t.Errorf("expected overall 40.0, got %v", report.OverallProgress)
	}
}

// TestClearTokenDropsAuthorization tests that teardown removes the bearer value
func TestClearTokenDropsAuthorization(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"tasks": [], "events": [], "overall_progress": 0}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("tok123")
	client.ClearToken()
	if _, err := client.FetchProgress(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got != "Bearer " {
		t.Errorf("expected empty bearer value after clear, got %q", got)
	}
}
