package chatsession

import (
	"time"

	"github.com/vovakirdan/roomchat/internal/proto"
)

// DefaultTimeLayout is the short time-of-day shown next to each message.
const DefaultTimeLayout = "15:04"

// Entry is one message prepared for display.
type Entry struct {
	ID      int64
	Own     bool
	Sender  string // empty for the current user's own messages
	Content string
	Time    string
}

// Formatter turns wire messages into entries.
type Formatter struct {
	Location *time.Location
	Layout   string
}

// Entry formats msg. The sender is dropped when the message is the
// reader's own; a missing timestamp yields an empty time.
func (f Formatter) Entry(msg proto.Message) Entry {
	e := Entry{
		ID:      msg.ID,
		Own:     msg.IsOwn,
		Content: msg.Content,
	}
	if !msg.IsOwn {
		e.Sender = msg.Sender
	}
	if !msg.Timestamp.IsZero() {
		loc := f.Location
		if loc == nil {
			loc = time.Local
		}
		layout := f.Layout
		if layout == "" {
			layout = DefaultTimeLayout
		}
		e.Time = msg.Timestamp.In(loc).Format(layout)
	}
	return e
}

// Entries formats msgs in order.
func (f Formatter) Entries(msgs []proto.Message) []Entry {
	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, f.Entry(msg))
	}
	return entries
}
