// Package client is a GraphQL client for the account API. It keeps the
// session cookie between calls and reports failures by error code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/isdelr/goodcontent-auth/internal/apperr"
	"github.com/isdelr/goodcontent-auth/internal/auth"
)

// User is the public view of an account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignupInput carries the signup form fields.
type SignupInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	InviteCode string
}

// Error is a failure reported by the API.
type Error struct {
	Code    apperr.Code
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Friendly returns the text to show a person filling in the form.
func (e *Error) Friendly() string {
	return apperr.FriendlyMessage(e.Code, e.Field)
}

// Client talks to the GraphQL endpoint of one server.
type Client struct {
	endpoint string
	http     *http.Client
	adminKey string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A client without a
// cookie jar cannot hold a session.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAdminKey sends key with every request.
func WithAdminKey(key string) Option {
	return func(c *Client) { c.adminKey = key }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/graphql",
		http:     &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

const userFields = "id email first_name last_name created_at updated_at"

// Signup creates an account and keeps its session.
func (c *Client) Signup(ctx context.Context, in SignupInput) (*User, error) {
	var out struct {
		Signup *User `json:"signup"`
	}
	err := c.do(ctx, `mutation Signup($email: String!, $password: String!, $first_name: String!, $last_name: String!, $inviteCode: String!) {
	signup(email: $email, password: $password, first_name: $first_name, last_name: $last_name, inviteCode: $inviteCode) { `+userFields+` }
}`, map[string]interface{}{
		"email":      in.Email,
		"password":   in.Password,
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"inviteCode": in.InviteCode,
	}, &out)
	return out.Signup, err
}

// Login opens a session for the given credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var out struct {
		Login *User `json:"login"`
	}
	err := c.do(ctx, `mutation Login($email: String!, $password: String!) {
	login(email: $email, password: $password) { `+userFields+` }
}`, map[string]interface{}{"email": email, "password": password}, &out)
	return out.Login, err
}

// Me returns the user of the current session, or nil when that user no
// longer exists.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	err := c.do(ctx, `query Me { user { `+userFields+` } }`, nil, &out)
	return out.User, err
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, `mutation Logout { logout }`, nil, nil)
}

// AllUsers lists every account.
func (c *Client) AllUsers(ctx context.Context) ([]User, error) {
	var out struct {
		AllUsers []User `json:"allUsers"`
	}
	err := c.do(ctx, `query AllUsers { allUsers { `+userFields+` } }`, nil, &out)
	return out.AllUsers, err
}

// BigRedButton deletes every account and returns the server's summary.
func (c *Client) BigRedButton(ctx context.Context) (string, error) {
	var out struct {
		BigRedButton string `json:"bigRedButton"`
	}
	err := c.do(ctx, `mutation BigRedButton { bigRedButton }`, nil, &out)
	return out.BigRedButton, err
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code  apperr.Code `json:"code"`
			Field string      `json:"field"`
		} `json:"extensions"`
	} `json:"errors"`
}

func (c *Client) do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.adminKey != "" {
		req.Header.Set(auth.AdminKeyHeader, c.adminKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("graphql request: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var res response
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(res.Errors) > 0 {
		first := res.Errors[0]
		return &Error{Code: first.Extensions.Code, Field: first.Extensions.Field, Message: first.Message}
	}
	if out == nil || len(res.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
