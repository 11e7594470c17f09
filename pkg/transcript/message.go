package transcript

import "time"

// PendingReply is the BotText of a message whose reply has not arrived yet.
// It can never be produced by a real service response.
const PendingReply = "\x00pending"

// Message is a single transcript entry: what the user sent and what the
// assistant answered.
type Message struct {
	ID        string
	UserText  string
	ImageRef  string
	BotText   string
	CreatedAt time.Time
}

// Pending reports whether the message is still waiting for its reply.
func (m Message) Pending() bool {
	return m.BotText == PendingReply
}

// HasImage reports whether the message carries an attached image.
func (m Message) HasImage() bool {
	return m.ImageRef != ""
}

// Editable reports whether the message may be re-sent with new text.
// Only pure-text user messages qualify.
func (m Message) Editable() bool {
	return m.UserText != "" && !m.HasImage()
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	UserText *string
	ImageRef *string
	BotText  *string
}

// Text returns a pointer to s, for building patches.
func Text(s string) *string {
	return &s
}

func (p Patch) apply(m Message) Message {
	if p.UserText != nil {
		m.UserText = *p.UserText
	}
	if p.ImageRef != nil {
		m.ImageRef = *p.ImageRef
	}
	if p.BotText != nil {
		m.BotText = *p.BotText
	}
	return m
}
