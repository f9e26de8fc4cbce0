package game

import "fmt"

// LogBook is the player-facing game log, newest entry first
type LogBook struct {
	entries []string
	fresh   []string
	limit   int
}

// NewLogBook creates a log bounded to limit entries
func NewLogBook(limit int, entries []string) *LogBook {
	if limit <= 0 {
		limit = 100
	}
	lb := &LogBook{limit: limit}
	lb.entries = append([]string(nil), entries...)
	if len(lb.entries) > limit {
		lb.entries = lb.entries[:limit]
	}
	return lb
}

// Add records a message stamped with the day
func (lb *LogBook) Add(day int, msg string) string {
	line := fmt.Sprintf("[Day %d] %s", day, msg)
	lb.entries = append([]string{line}, lb.entries...)
	if len(lb.entries) > lb.limit {
		lb.entries = lb.entries[:lb.limit]
	}
	lb.fresh = append(lb.fresh, line)
	return line
}

// Entries returns a copy of the log, newest first
func (lb *LogBook) Entries() []string {
	return append([]string(nil), lb.entries...)
}

// Pending returns the undrained lines, oldest first
func (lb *LogBook) Pending() []string {
	return append([]string(nil), lb.fresh...)
}

// Drain returns the lines added since the last drain, oldest first
func (lb *LogBook) Drain() []string {
	out := lb.fresh
	lb.fresh = nil
	return out
}
