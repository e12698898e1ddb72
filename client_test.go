package campuslink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ============================================================================
// Test Helpers
// ============================================================================

const testToken = "test-bearer-token"

// newTestClient wraps an httptest handler in an authenticated Client.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(testToken, WithBaseURL(srv.URL))
	client.SetSession(testToken, "self")
	return client, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

// ============================================================================
// Request plumbing
// ============================================================================

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, []Conversation{})
	})

	if _, err := client.Messages.Conversations(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer "+testToken {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}

func TestClientOmitsAuthorizationWhenAnonymous(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, []Branch{})
	}))
	defer srv.Close()

	client := NewClient("", WithBaseURL(srv.URL))
	if _, err := client.Directory.Branches(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "" {
		t.Fatalf("anonymous client must not send Authorization, got %q", gotAuth)
	}
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, KindUnauthenticated},
		{"forbidden", http.StatusForbidden, KindUnauthenticated},
		{"not found", http.StatusNotFound, KindNotFound},
		{"bad request", http.StatusBadRequest, KindValidationFailed},
		{"unprocessable", http.StatusUnprocessableEntity, KindValidationFailed},
		{"server error", http.StatusInternalServerError, KindTransient},
		{"bad gateway", http.StatusBadGateway, KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, tt.status, apiMessage{Message: "server says no"})
			})

			_, err := client.Messages.Conversations(context.Background())
			if !ErrorIsKind(err, tt.kind) {
				t.Fatalf("status %d: expected kind %s, got %v", tt.status, tt.kind, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError in chain, got %T", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.Status)
			}
			if apiErr.Message != "server says no" {
				t.Errorf("expected server message to be surfaced, got %q", apiErr.Message)
			}
		})
	}
}

func TestClientErrorWithoutBodyFallsBackToStatusText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Users.Profile(context.Background(), "ghost")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != http.StatusText(http.StatusNotFound) {
		t.Fatalf("expected status-text fallback, got %q", apiErr.Message)
	}
}

// ============================================================================
// Auth
// ============================================================================

func TestAuthLogin(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/users/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var opts LoginOptions
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		if opts.Email != "ada@campus.edu" {
			t.Errorf("unexpected email: %q", opts.Email)
		}
		writeJSON(t, w, http.StatusOK, Session{Token: "tok-1", UserID: "u-1"})
	})

	sess, err := client.Auth.Login(context.Background(), &LoginOptions{Email: "ada@campus.edu", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	if sess.Token != "tok-1" || sess.UserID != "u-1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

// ============================================================================
// Messages
// ============================================================================

func TestMessagesConversationsDecodesNullLatestMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages/conversations" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"acquaintance": {"id": "u1", "username": "ada"}, "latestMessage": {"id": "m1", "senderId": "u1", "receiverId": "self", "content": "hey", "createdAt": "2026-08-30T10:00:00Z"}},
			{"acquaintance": {"id": "u2", "username": "grace"}, "latestMessage": null}
		]`))
	})

	convs, err := client.Messages.Conversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].LatestMessage == nil || convs[0].LatestMessage.ID != "m1" {
		t.Errorf("unexpected first conversation: %+v", convs[0])
	}
	if convs[1].LatestMessage != nil {
		t.Errorf("expected nil latestMessage for message-less conversation, got %+v", convs[1].LatestMessage)
	}
}

func TestMessagesSend(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode send body: %v", err)
		}
		if payload["receiverId"] != "u1" || payload["content"] != "hello" {
			t.Errorf("unexpected payload: %v", payload)
		}
		writeJSON(t, w, http.StatusCreated, Message{ID: "m9", SenderID: "self", ReceiverID: "u1", Content: "hello"})
	})

	msg, err := client.Messages.Send(context.Background(), "u1", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "m9" {
		t.Fatalf("expected server-assigned id, got %+v", msg)
	}
}

func TestMessagesHistoryPath(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages/history/u1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, []Message{{ID: "m1"}, {ID: "m2"}})
	})

	msgs, err := client.Messages.History(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}

// ============================================================================
// Users
// ============================================================================

func TestUsersProfileProjectsSummary(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/u1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, User{
			ID:       "u1",
			Username: "ada",
			Email:    "ada@campus.edu",
			Avatar:   "https://cdn.campuslink.app/a.png",
			Branch:   "CS",
		})
	})

	summary, err := client.Users.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	want := ProfileSummary{ID: "u1", Username: "ada", Avatar: "https://cdn.campuslink.app/a.png", Branch: "CS"}
	if *summary != want {
		t.Fatalf("unexpected summary projection: %+v", summary)
	}
}

// ============================================================================
// Posts
// ============================================================================

func TestPostsReactions(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		writeJSON(t, w, http.StatusOK, Post{ID: "p1"})
	})
	ctx := context.Background()

	if _, err := client.Posts.Like(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "POST /api/posts/p1/like" {
		t.Errorf("unexpected like request: %s", gotPath)
	}

	if _, err := client.Posts.Comment(ctx, "p1", "nice"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "POST /api/posts/p1/comment" {
		t.Errorf("unexpected comment request: %s", gotPath)
	}
}
