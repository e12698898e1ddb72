// Package campuslink provides the official Go SDK for the CampusLink social
// platform API.
//
// The package covers the REST surface (auth, users, messaging, feed, campus
// directory, moderation), the realtime push channel, and the conversation
// synchronization engine used by messaging clients.
//
// Example:
//
//	client := campuslink.NewClient("")
//	sess, _ := client.Auth.Login(ctx, &campuslink.LoginOptions{Email: ..., Password: ...})
//	client.SetSession(sess.Token, sess.UserID)
//
//	// REST
//	convs, _ := client.Messages.Conversations(ctx)
//
//	// Sync engine + push channel
//	m := campuslink.NewMessenger(client.Messages, client.Users, sess.UserID)
//	push := campuslink.NewPushClient(client.BaseURL(), &campuslink.PushConfig{Token: sess.Token, UserID: sess.UserID})
//	off := push.OnMessage(func(msg campuslink.Message) { m.HandleMessage(ctx, msg) })
//	defer off()
package campuslink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.campuslink.app"
	DefaultTimeout = 30 * time.Second
)

// ============================================================================
// Client
// ============================================================================

// Client is the CampusLink API client. Sub-clients group the REST surface by
// feature; all of them share the client's credential and HTTP transport.
type Client struct {
	token      string
	userID     string
	baseURL    string
	httpClient *http.Client

	Auth      *AuthClient
	Users     *UsersClient
	Messages  *MessagesClient
	Posts     *PostsClient
	Directory *DirectoryClient
	Admin     *AdminClient
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// NewClient creates a new CampusLink client. token may be "" for the
// unauthenticated endpoints (login, register, branches, skills).
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Auth = &AuthClient{c: c}
	c.Users = &UsersClient{c: c}
	c.Messages = &MessagesClient{c: c}
	c.Posts = &PostsClient{c: c}
	c.Directory = &DirectoryClient{c: c}
	c.Admin = &AdminClient{c: c}
	return c
}

// SetSession installs the credential pair returned by Login or Register.
func (c *Client) SetSession(token, userID string) {
	c.token = token
	c.userID = userID
}

// UserID returns the current-user identifier, or "" when unauthenticated.
func (c *Client) UserID() string { return c.userID }

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ============================================================================
// Internal request helpers
// ============================================================================

// apiMessage is the error body shape returned by the platform on failure.
type apiMessage struct {
	Message string `json:"message"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, query map[string]string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newTransientError("request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransientError("failed to read response", err)
	}

	if resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var am apiMessage
		if json.Unmarshal(data, &am) == nil && am.Message != "" {
			msg = am.Message
		}
		return nil, &APIError{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg}
	}

	return data, nil
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

func decodeList[T any](data []byte) ([]T, error) {
	var result []T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result, nil
}

// ============================================================================
// Auth
// ============================================================================

// AuthClient handles credential acquisition. Session storage is the caller's
// concern.
type AuthClient struct{ c *Client }

func (a *AuthClient) Login(ctx context.Context, opts *LoginOptions) (*Session, error) {
	data, err := a.c.doRequest(ctx, "POST", "/api/users/login", opts, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Session](data)
}

func (a *AuthClient) Register(ctx context.Context, opts *RegisterOptions) (*Session, error) {
	data, err := a.c.doRequest(ctx, "POST", "/api/users/register", opts, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Session](data)
}

// Me returns the authenticated user's full profile.
func (a *AuthClient) Me(ctx context.Context) (*User, error) {
	data, err := a.c.doRequest(ctx, "GET", "/api/users/profile", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[User](data)
}

// ============================================================================
// Users
// ============================================================================

// UsersClient handles profiles and the friendship workflow. Its Profile
// method is the fallback collaborator the sync engine uses to materialize a
// conversation that has no messages yet.
type UsersClient struct{ c *Client }

func (u *UsersClient) Profile(ctx context.Context, userID string) (*ProfileSummary, error) {
	data, err := u.c.doRequest(ctx, "GET", "/api/users/"+userID, nil, nil)
	if err != nil {
		return nil, err
	}
	user, err := decodeJSON[User](data)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

func (u *UsersClient) UpdateProfile(ctx context.Context, user *User) (*User, error) {
	data, err := u.c.doRequest(ctx, "PUT", "/api/users/profile", user, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[User](data)
}

func (u *UsersClient) Acquaintances(ctx context.Context) ([]ProfileSummary, error) {
	data, err := u.c.doRequest(ctx, "GET", "/api/users/acquaintances", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[ProfileSummary](data)
}

func (u *UsersClient) RemoveAcquaintance(ctx context.Context, userID string) error {
	_, err := u.c.doRequest(ctx, "DELETE", "/api/users/acquaintances/"+userID, nil, nil)
	return err
}

func (u *UsersClient) SentFriendRequests(ctx context.Context) ([]FriendRequest, error) {
	data, err := u.c.doRequest(ctx, "GET", "/api/users/requests/sent", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[FriendRequest](data)
}

func (u *UsersClient) SendFriendRequest(ctx context.Context, userID string) (*FriendRequest, error) {
	data, err := u.c.doRequest(ctx, "POST", "/api/users/requests/"+userID, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[FriendRequest](data)
}

// RespondFriendRequest accepts or rejects a pending request.
func (u *UsersClient) RespondFriendRequest(ctx context.Context, requestID string, accept bool) error {
	action := "reject"
	if accept {
		action = "accept"
	}
	_, err := u.c.doRequest(ctx, "PUT", "/api/users/requests/"+requestID+"/"+action, nil, nil)
	return err
}

// ============================================================================
// Messages
// ============================================================================

// MessagesClient handles direct messaging. It satisfies the sync engine's
// ConversationService contract.
type MessagesClient struct{ c *Client }

// Conversations fetches the conversation list. Ordering is not trusted; the
// sync engine re-sorts client-side.
func (m *MessagesClient) Conversations(ctx context.Context) ([]Conversation, error) {
	data, err := m.c.doRequest(ctx, "GET", "/api/messages/conversations", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Conversation](data)
}

// History fetches the full message history with one acquaintance, any order.
func (m *MessagesClient) History(ctx context.Context, acquaintanceID string) ([]Message, error) {
	data, err := m.c.doRequest(ctx, "GET", "/api/messages/history/"+acquaintanceID, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Message](data)
}

// Send posts a message and returns the created Message with its
// server-assigned id and timestamp.
func (m *MessagesClient) Send(ctx context.Context, receiverID, content string) (*Message, error) {
	payload := map[string]string{"receiverId": receiverID, "content": content}
	data, err := m.c.doRequest(ctx, "POST", "/api/messages", payload, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Message](data)
}

// ============================================================================
// Posts
// ============================================================================

// PostsClient handles the post feed and its reactions.
type PostsClient struct{ c *Client }

func (p *PostsClient) Feed(ctx context.Context) ([]Post, error) {
	data, err := p.c.doRequest(ctx, "GET", "/api/posts", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Post](data)
}

func (p *PostsClient) Get(ctx context.Context, postID string) (*Post, error) {
	data, err := p.c.doRequest(ctx, "GET", "/api/posts/"+postID, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Post](data)
}

// ByUser lists a user's posts; pass "me" for the authenticated user.
func (p *PostsClient) ByUser(ctx context.Context, userID string) ([]Post, error) {
	data, err := p.c.doRequest(ctx, "GET", "/api/posts/user/"+userID, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Post](data)
}

func (p *PostsClient) Create(ctx context.Context, opts *CreatePostOptions) (*Post, error) {
	data, err := p.c.doRequest(ctx, "POST", "/api/posts", opts, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Post](data)
}

func (p *PostsClient) Delete(ctx context.Context, postID string) error {
	_, err := p.c.doRequest(ctx, "DELETE", "/api/posts/"+postID, nil, nil)
	return err
}

func (p *PostsClient) Like(ctx context.Context, postID string) (*Post, error) {
	data, err := p.c.doRequest(ctx, "POST", "/api/posts/"+postID+"/like", struct{}{}, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Post](data)
}

func (p *PostsClient) Dislike(ctx context.Context, postID string) (*Post, error) {
	data, err := p.c.doRequest(ctx, "POST", "/api/posts/"+postID+"/dislike", struct{}{}, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Post](data)
}

func (p *PostsClient) Comment(ctx context.Context, postID, text string) (*Post, error) {
	data, err := p.c.doRequest(ctx, "POST", "/api/posts/"+postID+"/comment", map[string]string{"text": text}, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Post](data)
}

// ============================================================================
// Campus directory
// ============================================================================

// DirectoryClient serves the static campus reference data used on
// registration and profile forms.
type DirectoryClient struct{ c *Client }

func (d *DirectoryClient) Branches(ctx context.Context) ([]Branch, error) {
	data, err := d.c.doRequest(ctx, "GET", "/api/branches", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Branch](data)
}

func (d *DirectoryClient) Skills(ctx context.Context) ([]Skill, error) {
	data, err := d.c.doRequest(ctx, "GET", "/api/skills", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Skill](data)
}

// ============================================================================
// Admin / moderation
// ============================================================================

// AdminClient handles user administration and the ban-request workflow.
// All operations require a moderator credential.
type AdminClient struct{ c *Client }

func (a *AdminClient) Users(ctx context.Context) ([]User, error) {
	data, err := a.c.doRequest(ctx, "GET", "/api/users", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[User](data)
}

func (a *AdminClient) BanUser(ctx context.Context, userID string) error {
	_, err := a.c.doRequest(ctx, "PUT", "/api/users/"+userID+"/ban", struct{}{}, nil)
	return err
}

func (a *AdminClient) UnbanUser(ctx context.Context, userID string) error {
	_, err := a.c.doRequest(ctx, "PUT", "/api/users/"+userID+"/unban", struct{}{}, nil)
	return err
}

func (a *AdminClient) BanRequests(ctx context.Context) ([]BanRequest, error) {
	data, err := a.c.doRequest(ctx, "GET", "/api/ban-requests", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[BanRequest](data)
}

func (a *AdminClient) CreateBanRequest(ctx context.Context, userID, reason string) (*BanRequest, error) {
	payload := map[string]string{"userId": userID, "reason": reason}
	data, err := a.c.doRequest(ctx, "POST", "/api/ban", payload, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[BanRequest](data)
}

func (a *AdminClient) ApproveBanRequest(ctx context.Context, requestID string) error {
	_, err := a.c.doRequest(ctx, "PUT", "/api/ban-requests/"+requestID+"/approve", struct{}{}, nil)
	return err
}

func (a *AdminClient) RejectBanRequest(ctx context.Context, requestID string) error {
	_, err := a.c.doRequest(ctx, "PUT", "/api/ban-requests/"+requestID+"/reject", struct{}{}, nil)
	return err
}
