package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Warner231936/Requiem-AIweb/pkg/models"
)

// Common errors. Callers classify failures with errors.Is.
var (
	// ErrAuthRejected means the credentials were refused; no session exists.
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrSessionExpired means an authorized call got a 401; the session
	// must be torn down.
	ErrSessionExpired = errors.New("session expired, please log in again")
	// ErrRequestFailed covers any other non-success response.
	ErrRequestFailed = errors.New("request failed")
)

// Fallback messages used when the server's error body cannot be parsed.
const (
	loginFallback   = "Login failed. Check your credentials."
	signupFallback  = "Unable to create your account."
	requestFallback = "Request failed."
)

const requestTimeout = 15 * time.Second

// Client is the typed gateway to the Requiem backend. The bearer token is
// attached to every authorized call; SetToken/ClearToken are guarded so an
// in-flight fetch never observes a torn write.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a gateway for the given base URL. The explicit timeout
// guarantees a hung network call cannot wedge the session state machine.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: requestTimeout},
	}
}

// BaseURL returns the resolved backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken installs the bearer token used by authorized calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken removes the bearer token.
func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) buildURL(path string) string {
	return c.baseURL + path
}

// errorDetail extracts the server-supplied {"detail": ...} message,
// substituting fallback when the body cannot be parsed. This is the single
// place a failure may be "swallowed": a broken error body becomes the
// generic message rather than an error of its own.
func errorDetail(body []byte, fallback string) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Detail == "" {
		return fallback
	}
	return payload.Detail
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges form-encoded credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("/auth/login"), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s", ErrAuthRejected, errorDetail(body, loginFallback))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("failed to parse login response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: %s", ErrAuthRejected, loginFallback)
	}
	return token.AccessToken, nil
}

// Signup registers a new account with a multipart payload and, on success,
// performs an internal login with the same credentials: signup itself does
// not return a session. The profile picture is optional; pass a nil reader
// to omit it.
func (c *Client) Signup(ctx context.Context, username, email, password, pictureName string, picture io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("failed to build signup payload: %w", err)
		}
	}
	if picture != nil {
		if pictureName == "" {
			pictureName = "profile.jpg"
		}
		part, err := writer.CreateFormFile("profile_picture", pictureName)
		if err != nil {
			return "", fmt.Errorf("failed to build signup payload: %w", err)
		}
		if _, err := io.Copy(part, picture); err != nil {
			return "", fmt.Errorf("failed to build signup payload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build signup payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("/auth/signup"), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create signup request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("signup request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read signup response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s", ErrAuthRejected, errorDetail(body, signupFallback))
	}

	return c.Login(ctx, username, password)
}

// authorizedRequest performs a bearer-authenticated call and decodes the
// JSON response into out. A 401 is classified as ErrSessionExpired; every
// other non-success status as ErrRequestFailed with the server detail.
func (c *Client) authorizedRequest(ctx context.Context, method, path string, payload io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.currentToken())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrRequestFailed, errorDetail(body, requestFallback))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

// FetchProfile retrieves the current user's profile.
func (c *Client) FetchProfile(ctx context.Context) (models.UserProfile, error) {
	var profile models.UserProfile
	err := c.authorizedRequest(ctx, http.MethodGet, "/auth/me", nil, "", &profile)
	return profile, err
}

// FetchProgress retrieves the task list, telemetry events, and the
// server-computed overall percentage.
func (c *Client) FetchProgress(ctx context.Context) (models.ProgressReport, error) {
	var report models.ProgressReport
	err := c.authorizedRequest(ctx, http.MethodGet, "/progress/", nil, "", &report)
	return report, err
}

// FetchChatHistory retrieves the most recent messages in chronological order.
func (c *Client) FetchChatHistory(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	path := "/chat/history?limit=" + strconv.Itoa(limit)
	err := c.authorizedRequest(ctx, http.MethodGet, path, nil, "", &messages)
	return messages, err
}

// PostMessage sends a chat message and returns the new messages the server
// created for it: the user echo plus one or more assistant replies.
func (c *Client) PostMessage(ctx context.Context, content string) ([]models.ChatMessage, error) {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	var messages []models.ChatMessage
	err = c.authorizedRequest(ctx, http.MethodPost, "/chat/message", bytes.NewReader(payload), "application/json", &messages)
	return messages, err
}
