package domain

import "time"

// ConversationTurn records one query/answer exchange. It is immutable once
// created.
type ConversationTurn struct {
	// Index is the position of the turn within the session, starting at 0.
	Index int

	// Query is the user's question.
	Query string

	// ChunkIDs are the retrieved chunks the answer was grounded on, in
	// retrieval order.
	ChunkIDs []string

	// Answer is the generated answer text.
	Answer string

	// CreatedAt is when the turn completed.
	CreatedAt time.Time
}

// MemoryWindow holds the most recent conversation turns up to a fixed size.
// When disabled it ignores appends and always yields an empty context.
//
// MemoryWindow is not safe for concurrent use; the conversation loop that
// owns the session serialises access.
type MemoryWindow struct {
	turns   []ConversationTurn
	size    int
	enabled bool
	next    int // index assigned to the next appended turn
}

// NewMemoryWindow creates a memory window holding at most size turns.
func NewMemoryWindow(size int, enabled bool) *MemoryWindow {
	if size < 1 {
		size = 1
	}
	return &MemoryWindow{size: size, enabled: enabled}
}

// Append records a turn, evicting the oldest when the window is full.
// The turn's Index is assigned here. No-op when memory is disabled.
func (m *MemoryWindow) Append(turn ConversationTurn) {
	if !m.enabled {
		return
	}
	turn.Index = m.next
	m.next++

	m.turns = append(m.turns, turn)
	if len(m.turns) > m.size {
		m.turns = m.turns[len(m.turns)-m.size:]
	}
}

// Context returns the current turns, oldest first, for inclusion in the next
// generation prompt. Always empty when memory is disabled.
func (m *MemoryWindow) Context() []ConversationTurn {
	if !m.enabled {
		return nil
	}
	out := make([]ConversationTurn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len returns the number of turns currently held.
func (m *MemoryWindow) Len() int {
	return len(m.turns)
}

// Enabled reports whether memory is active.
func (m *MemoryWindow) Enabled() bool {
	return m.enabled
}

// Restore replaces the window content with previously persisted turns.
// Turns beyond the window size are dropped oldest-first. The next turn index
// continues after the highest restored index.
func (m *MemoryWindow) Restore(turns []ConversationTurn) {
	if !m.enabled {
		return
	}
	if len(turns) > m.size {
		turns = turns[len(turns)-m.size:]
	}
	m.turns = make([]ConversationTurn, len(turns))
	copy(m.turns, turns)

	m.next = 0
	for _, t := range turns {
		if t.Index >= m.next {
			m.next = t.Index + 1
		}
	}
}
