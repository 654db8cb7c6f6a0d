package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultID is used when a request carries no conversation identifier.
const DefaultID = "default"

// Roles for conversation entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one turn of a conversation.
type Entry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PendingClarification remembers a failed request so the next message in the
// conversation can resolve it.
type PendingClarification struct {
	OriginalRequest string    `json:"original_request"`
	ErrorDetail     string    `json:"error_detail"`
	Suggestions     []string  `json:"suggestions"`
	Timestamp       time.Time `json:"timestamp"`
}

type conversation struct {
	createdAt time.Time
	entries   []Entry
	pending   *PendingClarification
}

// Store keeps per-conversation rolling history in memory. All methods are
// safe for concurrent use. Conversations are created lazily and each keeps at
// most maxEntries turns, dropping the oldest first.
type Store struct {
	mu             sync.Mutex
	conversations  map[string]*conversation
	maxEntries     int
	contextEntries int
}

func NewStore(maxEntries, contextEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 50
	}
	if contextEntries <= 0 {
		contextEntries = 6
	}
	return &Store{
		conversations:  make(map[string]*conversation),
		maxEntries:     maxEntries,
		contextEntries: contextEntries,
	}
}

func normalizeID(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultID
	}
	return id
}

func (s *Store) getOrCreate(id string) *conversation {
	conv, ok := s.conversations[id]
	if !ok {
		conv = &conversation{createdAt: time.Now().UTC()}
		s.conversations[id] = conv
	}
	return conv
}

// Append records a turn, evicting the oldest entries past the per-conversation
// cap.
func (s *Store) Append(id, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.getOrCreate(normalizeID(id))
	conv.entries = append(conv.entries, Entry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	if overflow := len(conv.entries) - s.maxEntries; overflow > 0 {
		conv.entries = append([]Entry(nil), conv.entries[overflow:]...)
	}
}

// Stats summarizes how much history the store currently holds.
type Stats struct {
	Conversations int `json:"conversations"`
	Entries       int `json:"entries"`
}

// Stats reports store-wide conversation and entry counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := Stats{Conversations: len(s.conversations)}
	for _, conv := range s.conversations {
		stats.Entries += len(conv.entries)
	}
	return stats
}

// Entries returns a copy of the conversation's history.
func (s *Store) Entries(id string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[normalizeID(id)]
	if !ok {
		return nil
	}
	return append([]Entry(nil), conv.entries...)
}

// ContextPrefix renders the most recent turns as free text for prompt
// injection. Returns "" for a new conversation.
func (s *Store) ContextPrefix(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[normalizeID(id)]
	if !ok || len(conv.entries) == 0 {
		return ""
	}
	entries := conv.entries
	if len(entries) > s.contextEntries {
		entries = entries[len(entries)-s.contextEntries:]
	}
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s: %s\n", entry.Role, entry.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// SetPendingClarification records a failed request awaiting user input.
func (s *Store) SetPendingClarification(id string, pending PendingClarification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending.Timestamp = time.Now().UTC()
	conv := s.getOrCreate(normalizeID(id))
	conv.pending = &pending
}

// PendingClarification returns the outstanding clarification, if any.
func (s *Store) PendingClarification(id string) (PendingClarification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[normalizeID(id)]
	if !ok || conv.pending == nil {
		return PendingClarification{}, false
	}
	return *conv.pending, true
}

// ClearPendingClarification drops the outstanding clarification.
func (s *Store) ClearPendingClarification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[normalizeID(id)]; ok {
		conv.pending = nil
	}
}
