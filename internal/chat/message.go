package chat

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Message is a channel or thread message as seen by the dispatcher.
// ID is the transport timestamp ("1739667600.000100").
type Message struct {
	ID         string
	Text       string
	ThreadID   string
	ReplyCount int
	UserID     string
	BotID      string
}

// IsTopLevel reports whether the message starts its own thread (or has none).
func (m Message) IsTopLevel() bool {
	thread := strings.TrimSpace(m.ThreadID)
	return thread == "" || thread == strings.TrimSpace(m.ID)
}

// ThreadKey returns the id replies to this message are posted under.
func (m Message) ThreadKey() string {
	if thread := strings.TrimSpace(m.ThreadID); thread != "" {
		return thread
	}
	return strings.TrimSpace(m.ID)
}

// Time decodes the message id into a wall-clock time. It returns the zero
// time when the id is not a transport timestamp.
func (m Message) Time() time.Time {
	return ParseTS(m.ID)
}

// ParseTS decodes a "seconds.micros" timestamp.
func ParseTS(ts string) time.Time {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}
	}
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nanos int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		nanos, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}
		}
	}
	return time.Unix(sec, nanos).UTC()
}

// FormatTS encodes t the way the transport writes message timestamps.
func FormatTS(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10) + "." + strconv.FormatInt(int64(t.Nanosecond()/1000)+1_000_000, 10)[1:]
}

// NewestFirst returns a copy of items ordered by id, newest first. Ids that
// do not decode keep their relative order at the end.
func NewestFirst(items []Message) []Message {
	out := append([]Message(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Time(), out[j].Time()
		if ti.IsZero() || tj.IsZero() {
			return !ti.IsZero() && tj.IsZero()
		}
		return ti.After(tj)
	})
	return out
}
