package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendReturnsIndex(t *testing.T) {
	t.Parallel()

	s := NewStore()
	assert.Equal(t, 0, s.Append(Message{ID: "a", UserText: "A"}))
	assert.Equal(t, 1, s.Append(Message{ID: "b", UserText: "B"}))
	assert.Equal(t, 2, s.Len())

	msg, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "B", msg.UserText)
}

func TestStore_PatchAt(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Append(Message{UserText: "A", BotText: "r1"})
	s.Append(Message{UserText: "B", BotText: "r2"})

	require.NoError(t, s.PatchAt(0, Patch{BotText: Text("r1b")}))

	all := s.All()
	assert.Equal(t, "A", all[0].UserText, "fields without a patch value are untouched")
	assert.Equal(t, "r1b", all[0].BotText)
	assert.Equal(t, "r2", all[1].BotText)
}

func TestStore_PatchAtOutOfRange(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Append(Message{UserText: "A"})

	for _, index := range []int{-1, 1, 42} {
		err := s.PatchAt(index, Patch{BotText: Text("x")})
		require.ErrorIs(t, err, ErrOutOfRange)
	}

	msg, _ := s.Get(0)
	assert.Empty(t, msg.BotText)
}

func TestStore_PatchWhere(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Append(Message{UserText: "same", BotText: PendingReply})
	s.Append(Message{UserText: "other", BotText: PendingReply})
	s.Append(Message{UserText: "same", BotText: "done"})

	n := s.PatchWhere(func(m Message) bool {
		return m.Pending() && m.UserText == "same"
	}, Patch{BotText: Text("reply")})

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.PendingCount())
	assert.Equal(t, "reply", s.All()[0].BotText)
}

func TestStore_AllReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Append(Message{UserText: "A"})

	all := s.All()
	all[0].UserText = "mutated"

	msg, _ := s.Get(0)
	assert.Equal(t, "A", msg.UserText)
}

func TestMessage_Editable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{name: "text message", msg: Message{UserText: "hello"}, want: true},
		{name: "image message", msg: Message{UserText: "hello", ImageRef: "/tmp/a.png"}, want: false},
		{name: "no user text", msg: Message{BotText: "hi"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.msg.Editable())
		})
	}
}
