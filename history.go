package campuslink

import "sort"

// HistoryCache holds the message list for the currently selected
// conversation. Message id is the sole deduplication key: the send-response
// echo and the push-delivered copy of the same message collapse to one entry,
// while two distinct messages with identical text and timestamp remain
// distinct.
//
// HistoryCache is not goroutine-safe; the Messenger serializes access to it.
type HistoryCache struct {
	messages []Message // insertion order
	seen     map[string]struct{}
}

func NewHistoryCache() *HistoryCache {
	return &HistoryCache{seen: make(map[string]struct{})}
}

// Replace swaps in a freshly fetched history, dropping whatever was cached.
func (h *HistoryCache) Replace(messages []Message) {
	h.messages = h.messages[:0]
	h.seen = make(map[string]struct{}, len(messages))
	for _, m := range messages {
		h.Append(m)
	}
}

// Append adds a message unless one with the same id is already present.
// It reports whether the message was inserted.
func (h *HistoryCache) Append(m Message) bool {
	if _, dup := h.seen[m.ID]; dup {
		return false
	}
	h.seen[m.ID] = struct{}{}
	h.messages = append(h.messages, m)
	return true
}

// Contains reports whether a message with the given id is cached.
func (h *HistoryCache) Contains(id string) bool {
	_, ok := h.seen[id]
	return ok
}

// Clear empties the cache. Called on conversation deselect or switch.
func (h *HistoryCache) Clear() {
	h.messages = h.messages[:0]
	h.seen = make(map[string]struct{})
}

// Len returns the number of cached messages.
func (h *HistoryCache) Len() int { return len(h.messages) }

// List returns the cached messages in chat-reading order: createdAt
// ascending, ties broken by insertion order. Pure projection; the cache
// itself keeps insertion order so a late-arriving older message still lands
// in its proper place on the next read.
func (h *HistoryCache) List() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
