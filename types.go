package campuslink

import "time"

// ============================================================================
// Identity & Profiles
// ============================================================================

// ProfileSummary is the display profile of a platform user, as embedded in
// conversation listings and push events. Opaque to the sync engine.
type ProfileSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Branch   string `json:"branch,omitempty"`
}

// User is the full profile returned by the users endpoints.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Avatar   string   `json:"avatar,omitempty"`
	Branch   string   `json:"branch,omitempty"`
	Skills   []string `json:"skills,omitempty"`
	Bio      string   `json:"bio,omitempty"`
	Role     string   `json:"role,omitempty"`
	Banned   bool     `json:"banned,omitempty"`
}

// Summary projects a User down to its display profile.
func (u *User) Summary() ProfileSummary {
	return ProfileSummary{ID: u.ID, Username: u.Username, Avatar: u.Avatar, Branch: u.Branch}
}

// Session is the credential pair issued on login and required by every
// authenticated operation.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type LoginOptions struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterOptions struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Branch   string   `json:"branch,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

// ============================================================================
// Messaging
// ============================================================================

// Message is a direct message between two users. ID is server-assigned and is
// the sole deduplication key; messages are never mutated after creation.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Conversation is one sidebar entry: the acquaintance plus a snapshot of the
// most recent message. LatestMessage is nil for a conversation that was opened
// but has no messages yet.
type Conversation struct {
	Acquaintance  ProfileSummary `json:"acquaintance"`
	LatestMessage *Message       `json:"latestMessage"`
}

// Notification is a server-initiated event delivered on the push channel.
type Notification struct {
	Type      string    `json:"type"`
	From      string    `json:"from,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	PostID    string    `json:"postId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Notification types emitted by the platform.
const (
	NotificationNewMessage    = "new_message"
	NotificationFriendRequest = "friend_request"
	NotificationPostLike      = "post_like"
	NotificationPostComment   = "post_comment"
)

// ============================================================================
// Feed
// ============================================================================

type Post struct {
	ID        string         `json:"id"`
	Author    ProfileSummary `json:"author"`
	Content   string         `json:"content"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	Likes     []string       `json:"likes,omitempty"`
	Dislikes  []string       `json:"dislikes,omitempty"`
	Comments  []Comment      `json:"comments,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type Comment struct {
	ID        string         `json:"id"`
	Author    ProfileSummary `json:"author"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"createdAt"`
}

type CreatePostOptions struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ============================================================================
// Social graph & moderation
// ============================================================================

type FriendRequest struct {
	ID        string         `json:"id"`
	From      ProfileSummary `json:"from"`
	To        ProfileSummary `json:"to"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

type BanRequest struct {
	ID          string         `json:"id"`
	Target      ProfileSummary `json:"target"`
	RequestedBy ProfileSummary `json:"requestedBy"`
	Reason      string         `json:"reason,omitempty"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type Branch struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
