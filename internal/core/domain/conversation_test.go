package domain

import (
	"fmt"
	"testing"
	"time"
)

func turnWithQuery(q string) ConversationTurn {
	return ConversationTurn{Query: q, Answer: "a", CreatedAt: time.Now()}
}

func TestMemoryWindow_AppendEvictsOldest(t *testing.T) {
	m := NewMemoryWindow(3, true)

	for i := 0; i < 5; i++ {
		m.Append(turnWithQuery(fmt.Sprintf("q%d", i)))
	}

	ctx := m.Context()
	if len(ctx) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(ctx))
	}
	if ctx[0].Query != "q2" || ctx[2].Query != "q4" {
		t.Errorf("expected oldest q2 and newest q4, got %q and %q", ctx[0].Query, ctx[2].Query)
	}
}

func TestMemoryWindow_NeverExceedsSize(t *testing.T) {
	m := NewMemoryWindow(4, true)
	for i := 0; i < 20; i++ {
		m.Append(turnWithQuery("q"))
		if m.Len() > 4 {
			t.Fatalf("window grew to %d after %d appends", m.Len(), i+1)
		}
	}
}

func TestMemoryWindow_TurnIndicesMonotonic(t *testing.T) {
	m := NewMemoryWindow(2, true)
	for i := 0; i < 4; i++ {
		m.Append(turnWithQuery("q"))
	}

	ctx := m.Context()
	if ctx[0].Index != 2 || ctx[1].Index != 3 {
		t.Errorf("expected indices 2,3 after eviction, got %d,%d", ctx[0].Index, ctx[1].Index)
	}
}

func TestMemoryWindow_Disabled(t *testing.T) {
	m := NewMemoryWindow(3, false)
	m.Append(turnWithQuery("q0"))
	m.Append(turnWithQuery("q1"))

	if m.Len() != 0 {
		t.Errorf("disabled window should hold nothing, got %d turns", m.Len())
	}
	if got := m.Context(); len(got) != 0 {
		t.Errorf("disabled window context should be empty, got %d turns", len(got))
	}
}

func TestMemoryWindow_Restore(t *testing.T) {
	m := NewMemoryWindow(2, true)
	m.Restore([]ConversationTurn{
		{Index: 0, Query: "q0"},
		{Index: 1, Query: "q1"},
		{Index: 2, Query: "q2"},
	})

	ctx := m.Context()
	if len(ctx) != 2 {
		t.Fatalf("expected window trimmed to 2 turns, got %d", len(ctx))
	}
	if ctx[0].Query != "q1" {
		t.Errorf("expected oldest surviving turn q1, got %q", ctx[0].Query)
	}

	// Appending continues after the highest restored index.
	m.Append(turnWithQuery("q3"))
	ctx = m.Context()
	if ctx[len(ctx)-1].Index != 3 {
		t.Errorf("expected next index 3, got %d", ctx[len(ctx)-1].Index)
	}
}
