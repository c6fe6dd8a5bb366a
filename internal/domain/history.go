package domain

// Entry is one board snapshot plus the 1-based coordinates of the move that
// produced it. The initial entry has Row and Col set to zero.
type Entry struct {
	Board Board
	Row   int
	Col   int
}

// History is an ordered, persistent sequence of entries. Append and Truncate
// return new views; no view ever observes writes made through another.
type History struct {
	entries []Entry
}

// NewHistory returns a history holding only the empty board.
func NewHistory() History {
	return History{entries: []Entry{{}}}
}

// Len returns the number of entries.
func (h History) Len() int { return len(h.entries) }

// At returns entry i. It panics if i is out of range, like a slice index.
func (h History) At(i int) Entry { return h.entries[i] }

// Entries returns a copy of all entries in order.
func (h History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Truncate returns the view holding entries [0, n).
func (h History) Truncate(n int) History {
	return History{entries: h.entries[:n:n]}
}

// Append returns a new view with e added at the end.
func (h History) Append(e Entry) History {
	// full-capacity slice forces append to copy
	clipped := h.entries[:len(h.entries):len(h.entries)]
	return History{entries: append(clipped, e)}
}
