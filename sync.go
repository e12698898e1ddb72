package campuslink

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// ConversationService is the REST collaborator contract the Messenger
// consumes for messaging data. *MessagesClient implements it.
type ConversationService interface {
	Conversations(ctx context.Context) ([]Conversation, error)
	History(ctx context.Context, acquaintanceID string) ([]Message, error)
	Send(ctx context.Context, receiverID, content string) (*Message, error)
}

// ProfileService is the user-directory collaborator used to materialize a
// conversation that has no messages yet. *UsersClient implements it.
type ProfileService interface {
	Profile(ctx context.Context, userID string) (*ProfileSummary, error)
}

// SelectionState tracks the conversation-selection lifecycle.
type SelectionState string

const (
	StateIdle    SelectionState = "idle"    // no selection
	StateLoading SelectionState = "loading" // selection set, history fetch in flight
	StateActive  SelectionState = "active"  // history loaded, live updates applied
)

// highlightPatience bounds how many render cycles a deep-link highlight waits
// for its target message after the history loads. Past that the intent is
// dropped instead of leaving the view permanently waiting (the target may sit
// beyond what the history fetch returned).
const highlightPatience = 30

// Messenger reconciles REST-fetched state and push events into a consistent,
// recency-ordered messaging view. It exclusively owns the conversation
// Directory, the HistoryCache for the selected conversation, and the
// selection state; views read snapshots and issue intents.
//
// Every delivery path (list fetch, history fetch, send response, push
// message, push notification) is treated as an independent idempotent
// contribution: dedup is by message id, directory summaries only move forward
// in time, and a history fetch that resolves after the user switched away is
// discarded. All mutations run to completion under one lock, so no event ever
// observes a partial write.
type Messenger struct {
	svc      ConversationService
	profiles ProfileService
	self     string // local user id

	mu        sync.Mutex
	dir       *Directory
	hist      *HistoryCache
	state     SelectionState
	selected  string // acquaintance id, "" when idle
	fetchGen  uint64 // bumped on every selection change; stale fetches compare against it
	highlight string // pending deep-link target message id
	patience  int    // render cycles left before the highlight is dropped
}

// NewMessenger creates a Messenger for the local user identified by selfID.
func NewMessenger(svc ConversationService, profiles ProfileService, selfID string) *Messenger {
	return &Messenger{
		svc:      svc,
		profiles: profiles,
		self:     selfID,
		dir:      NewDirectory(),
		hist:     NewHistoryCache(),
		state:    StateIdle,
	}
}

func (m *Messenger) requireCredential() error {
	if m.self == "" {
		return ErrNoCredentials
	}
	return nil
}

// ============================================================================
// Snapshots
// ============================================================================

// Conversations returns the directory in display order.
func (m *Messenger) Conversations() []Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir.List()
}

// History returns the selected conversation's messages in chat-reading order.
func (m *Messenger) History() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hist.List()
}

// Selected returns the acquaintance of the current selection, if any.
func (m *Messenger) Selected() (ProfileSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == "" {
		return ProfileSummary{}, false
	}
	if conv, ok := m.dir.Get(m.selected); ok {
		return conv.Acquaintance, true
	}
	return ProfileSummary{ID: m.selected}, true
}

// State returns the selection lifecycle state.
func (m *Messenger) State() SelectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ============================================================================
// Operations
// ============================================================================

// LoadDirectory fetches the conversation list and replaces the directory
// contents. Server ordering is not trusted; List re-sorts on read. Idempotent
// and cheap, it is safe to call after any event that might change ordering.
func (m *Messenger) LoadDirectory(ctx context.Context) error {
	if err := m.requireCredential(); err != nil {
		return err
	}

	convs, err := m.svc.Conversations(ctx)
	if err != nil {
		// Last-known-good directory contents are retained.
		return fmt.Errorf("load conversations: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A conversation opened by deep link may not be on the server list yet
	// (no message exchanged); keep the selected entry visible across refresh.
	var keep *ProfileSummary
	if m.selected != "" {
		if conv, ok := m.dir.Get(m.selected); ok {
			s := conv.Acquaintance
			keep = &s
		}
	}

	m.dir.Replace(convs)
	if keep != nil {
		if _, ok := m.dir.Get(m.selected); !ok {
			m.dir.EnsurePresent(*keep)
		}
	}
	glog.V(2).Infof("messenger: directory replaced, %d conversations", m.dir.Len())
	return nil
}

// SelectConversation makes acquaintanceID the active selection and loads its
// history. A switch while a previous history fetch is in flight supersedes
// it: the stale result is detected at completion time and discarded. On fetch
// failure the selection is retained with an empty history so the view does
// not flip back unexpectedly.
func (m *Messenger) SelectConversation(ctx context.Context, acquaintanceID string) error {
	if err := m.requireCredential(); err != nil {
		return err
	}
	if acquaintanceID == "" {
		return newValidationError("no acquaintance selected")
	}

	m.mu.Lock()
	m.selected = acquaintanceID
	m.state = StateLoading
	m.hist.Clear()
	m.fetchGen++
	gen := m.fetchGen
	m.mu.Unlock()

	messages, err := m.svc.History(ctx, acquaintanceID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchGen != gen || m.selected != acquaintanceID {
		// Superseded by a later selection; the resolved history belongs to a
		// conversation that is no longer on screen.
		glog.V(2).Infof("messenger: dropping superseded history fetch for %s", acquaintanceID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load history for %s: %w", acquaintanceID, err)
	}

	// Server-authoritative full history wins over any push append that raced
	// the fetch; a message missing from it shows up again on the next event.
	m.hist.Replace(messages)
	m.state = StateActive
	if m.highlight != "" {
		m.patience = highlightPatience
	}
	glog.V(2).Infof("messenger: history loaded for %s, %d messages", acquaintanceID, m.hist.Len())
	return nil
}

// Deselect clears the selection and empties the history cache.
func (m *Messenger) Deselect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = ""
	m.state = StateIdle
	m.hist.Clear()
	m.fetchGen++
	m.highlight = ""
	m.patience = 0
}

// OpenConversation handles a deep link into a conversation, optionally
// targeting a specific message to highlight. When no directory entry exists
// for the acquaintance yet, the profile is fetched and a message-less entry
// is materialized first. An error return means the deep link could not be
// honored and the caller should fall back to its default view.
func (m *Messenger) OpenConversation(ctx context.Context, acquaintanceID, targetMessageID string) error {
	if err := m.requireCredential(); err != nil {
		return err
	}
	if acquaintanceID == "" {
		return newValidationError("no acquaintance selected")
	}

	m.mu.Lock()
	_, known := m.dir.Get(acquaintanceID)
	m.mu.Unlock()

	if !known {
		summary, err := m.profiles.Profile(ctx, acquaintanceID)
		if err != nil {
			return fmt.Errorf("resolve acquaintance %s: %w", acquaintanceID, err)
		}
		m.mu.Lock()
		m.dir.EnsurePresent(*summary)
		m.mu.Unlock()
	}

	if targetMessageID != "" {
		m.mu.Lock()
		m.highlight = targetMessageID
		m.patience = 0 // armed once the history loads
		m.mu.Unlock()
	}

	return m.SelectConversation(ctx, acquaintanceID)
}

// SendMessage posts content to the selected conversation. Blank content and a
// missing selection are rejected before any network call. On success the
// returned message is appended (id dedup makes this safe against a racing
// push echo) and the directory is refreshed for ordering and summaries.
func (m *Messenger) SendMessage(ctx context.Context, content string) (*Message, error) {
	if err := m.requireCredential(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	receiver := m.selected
	m.mu.Unlock()

	if receiver == "" {
		return nil, newValidationError("no conversation selected")
	}
	if strings.TrimSpace(content) == "" {
		return nil, newValidationError("message content is empty")
	}

	msg, err := m.svc.Send(ctx, receiver, content)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	m.mu.Lock()
	if m.selected == receiver {
		m.hist.Append(*msg)
	}
	m.mu.Unlock()

	if err := m.LoadDirectory(ctx); err != nil {
		// The message is sent; a failed refresh only leaves the sidebar
		// momentarily stale.
		glog.V(1).Infof("messenger: directory refresh after send failed: %v", err)
	}
	return msg, nil
}

// HandleMessage is invoked by the push-channel adapter for every
// receiveMessage event. The message is appended to the history cache only
// when it involves the selected conversation in either direction; the
// directory is refreshed unconditionally so summaries and ordering reflect
// the new message even for non-selected conversations.
func (m *Messenger) HandleMessage(ctx context.Context, msg Message) error {
	if err := m.requireCredential(); err != nil {
		return err
	}

	m.mu.Lock()
	sel := m.selected
	if sel != "" {
		outbound := msg.SenderID == m.self && msg.ReceiverID == sel
		inbound := msg.SenderID == sel && msg.ReceiverID == m.self
		if outbound || inbound {
			if m.hist.Append(msg) {
				glog.V(2).Infof("messenger: push message %s appended", msg.ID)
			}
		}
	}
	m.mu.Unlock()

	return m.LoadDirectory(ctx)
}

// HandleNotification is invoked by the push-channel adapter for every
// newNotification event. A new-message notification only refreshes the
// directory; the dedicated receiveMessage event is the sole source of truth
// for history mutation, which keeps the same delivery from being processed
// through two channels.
func (m *Messenger) HandleNotification(ctx context.Context, n Notification) error {
	if err := m.requireCredential(); err != nil {
		return err
	}
	if n.Type != NotificationNewMessage {
		glog.V(3).Infof("messenger: ignoring notification type %q", n.Type)
		return nil
	}
	return m.LoadDirectory(ctx)
}

// TakeHighlight is polled by the view once per render cycle. When the pending
// deep-link target is present in the loaded history it is returned exactly
// once, as the scroll-and-highlight signal. After the history is active, the
// intent survives a bounded number of misses and is then dropped.
func (m *Messenger) TakeHighlight() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.highlight == "" {
		return "", false
	}
	if m.hist.Contains(m.highlight) {
		id := m.highlight
		m.highlight = ""
		m.patience = 0
		return id, true
	}
	if m.state == StateActive {
		m.patience--
		if m.patience <= 0 {
			glog.V(2).Infof("messenger: dropping stale highlight target %s", m.highlight)
			m.highlight = ""
		}
	}
	return "", false
}
