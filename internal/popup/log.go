package popup

import "time"

// EntryKind classifies a display log entry.
type EntryKind string

const (
	EntryStatus   EntryKind = "status"
	EntrySent     EntryKind = "sent"
	EntryReceived EntryKind = "received"
	EntryFailure  EntryKind = "failure"
)

// Entry is one line of the display log. Value holds the payload part of the
// line (host name, message text, error text) so views can emphasize it.
type Entry struct {
	Kind   EntryKind `json:"kind"`
	Prefix string    `json:"prefix"`
	Value  string    `json:"value"`
	Time   time.Time `json:"time"`
}

func (e Entry) String() string {
	return e.Prefix + e.Value
}

// Log is the append-only display log. It is not safe for concurrent use; it
// is only touched from the controller's loop.
type Log struct {
	entries []Entry
}

func (l *Log) Append(e Entry) {
	l.entries = append(l.entries, e)
}

// Entries returns a copy of all entries in append order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	return len(l.entries)
}

// Last returns the most recent entry.
func (l *Log) Last() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}
