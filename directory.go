package campuslink

import "sort"

// Directory holds the ordered set of conversations shown in the sidebar, one
// per acquaintance. It never fails: unknown lookups return ok=false and are
// handled by the Messenger.
//
// Directory is not goroutine-safe; the Messenger serializes access to it.
type Directory struct {
	entries []Conversation
	index   map[string]int // acquaintance id -> position in entries
}

func NewDirectory() *Directory {
	return &Directory{index: make(map[string]int)}
}

// List returns the conversations sorted for display: latestMessage.createdAt
// descending, conversations without a latest message after all that have one.
// The sort is stable, so equal-timestamp and message-less entries keep their
// insertion order and the sidebar does not reshuffle on refresh.
func (d *Directory) List() []Conversation {
	out := make([]Conversation, len(d.entries))
	copy(out, d.entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LatestMessage, out[j].LatestMessage
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

// Len returns the number of conversations held.
func (d *Directory) Len() int { return len(d.entries) }

// Get returns the conversation for an acquaintance, if present.
func (d *Directory) Get(acquaintanceID string) (Conversation, bool) {
	i, ok := d.index[acquaintanceID]
	if !ok {
		return Conversation{}, false
	}
	return d.entries[i], true
}

// Upsert inserts a conversation or updates an existing one. The latest-message
// snapshot only moves forward in time: a late-arriving stale update is
// ignored so the summary never regresses.
func (d *Directory) Upsert(acquaintance ProfileSummary, latest *Message) {
	i, ok := d.index[acquaintance.ID]
	if !ok {
		d.index[acquaintance.ID] = len(d.entries)
		d.entries = append(d.entries, Conversation{Acquaintance: acquaintance, LatestMessage: latest})
		return
	}
	d.entries[i].Acquaintance = acquaintance
	if latest == nil {
		return
	}
	cur := d.entries[i].LatestMessage
	if cur == nil || latest.CreatedAt.After(cur.CreatedAt) {
		d.entries[i].LatestMessage = latest
	}
}

// EnsurePresent guarantees an entry exists for the acquaintance, inserting one
// with no latest message if needed. Used when a conversation is opened via
// deep link before any message has been exchanged.
func (d *Directory) EnsurePresent(acquaintance ProfileSummary) {
	if _, ok := d.index[acquaintance.ID]; ok {
		return
	}
	d.index[acquaintance.ID] = len(d.entries)
	d.entries = append(d.entries, Conversation{Acquaintance: acquaintance})
}

// Replace swaps in a freshly fetched conversation list, keeping insertion
// order as given. Duplicate acquaintance ids collapse to the newest snapshot.
func (d *Directory) Replace(convs []Conversation) {
	d.entries = d.entries[:0]
	d.index = make(map[string]int, len(convs))
	for _, c := range convs {
		d.Upsert(c.Acquaintance, c.LatestMessage)
	}
}
