// Package identity talks to the Supabase GoTrue REST API.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type User struct {
	ID         string            `json:"id"`
	Email      string            `json:"email"`
	Identities []json.RawMessage `json:"identities"`
}

// IsNew reports whether sign-up produced a real account. GoTrue hides
// duplicate registrations behind a user with no identities.
func (u User) IsNew() bool {
	return len(u.Identities) > 0
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// SignUpResult holds a user and, when the project auto-confirms email, a session.
type SignUpResult struct {
	User    *User
	Session *Session
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, apiKey, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL, apiKey string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:  apiKey,
		http:    hc,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) (SignUpResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "/signup", "", credentials{Email: email, Password: password}, &raw); err != nil {
		return SignUpResult{}, fmt.Errorf("sign up: %w", err)
	}

	var probe struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return SignUpResult{}, fmt.Errorf("decode sign up: %w", err)
	}
	if probe.AccessToken != "" {
		var session Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return SignUpResult{}, fmt.Errorf("decode sign up session: %w", err)
		}
		user := session.User
		return SignUpResult{User: &user, Session: &session}, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return SignUpResult{}, fmt.Errorf("decode sign up user: %w", err)
	}
	if user.ID == "" {
		return SignUpResult{}, nil
	}
	return SignUpResult{User: &user}, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	var session Session
	if err := c.do(ctx, "/token?grant_type=password", "", credentials{Email: email, Password: password}, &session); err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	return session, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var session Session
	if err := c.do(ctx, "/token?grant_type=refresh_token", "", body, &session); err != nil {
		return Session{}, fmt.Errorf("refresh session: %w", err)
	}
	return session, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, "/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseProviderError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
