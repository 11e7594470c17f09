package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromind/plantchat/pkg/attachment"
	"github.com/agromind/plantchat/pkg/inference"
	"github.com/agromind/plantchat/pkg/transcript"
)

func TestSendNewTextMessage(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	gw := &fakeGateway{}

	c.SetComposerText("  how do I fertilise wheat?  ")
	assert.Equal(t, StateComposingNew, c.State())

	e, out, err := c.Send(t.Context(), gw)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.NoError(t, out.Err)

	assert.Equal(t, []string{"how do I fertilise wheat?"}, gw.converseCalls)
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.ComposerText())

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "how do I fertilise wheat?", msgs[0].UserText)
	assert.Equal(t, "reply to how do I fertilise wheat?", msgs[0].BotText)
	assert.NotEmpty(t, msgs[0].ID)
	assert.Equal(t, msgs[0].ID, e.MessageID)
}

func TestSubmitIsOptimistic(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	c.SetComposerText("hello")

	e, err := c.Submit()
	require.NoError(t, err)

	assert.Equal(t, StateBusy, c.State())
	assert.True(t, c.Busy())
	assert.Empty(t, c.ComposerText(), "composer clears as soon as the submission is accepted")

	msg, ok := c.Transcript().Get(e.Index)
	require.True(t, ok)
	assert.True(t, msg.Pending())
	assert.Equal(t, "hello", msg.UserText)
}

func TestEditTargetsTheRightEntry(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	replies := []string{"r1", "r2", "r1b"}
	gw := &fakeGateway{converse: func(string) (inference.ConverseResult, error) {
		r := replies[0]
		replies = replies[1:]
		return inference.ConverseResult{Response: r}, nil
	}}

	sendText(t, c, gw, "A")
	sendText(t, c, gw, "B")

	require.NoError(t, c.BeginEdit(0))
	assert.Equal(t, "A", c.ComposerText())
	assert.Equal(t, StateComposingEdit, c.State())

	c.SetComposerText("A2")
	e, _, err := c.Send(t.Context(), gw)
	require.NoError(t, err)
	assert.True(t, e.Edit)
	assert.Equal(t, 0, e.Index)

	msgs := c.Messages()
	require.Len(t, msgs, 2, "edits never create entries")
	assert.Equal(t, "A2", msgs[0].UserText)
	assert.Equal(t, "r1b", msgs[0].BotText)
	assert.Equal(t, "B", msgs[1].UserText)
	assert.Equal(t, "r2", msgs[1].BotText)

	_, editing := c.EditTarget()
	assert.False(t, editing)
	assert.Equal(t, StateIdle, c.State())
}

func TestEditSettlesAtCapturedIndex(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	gw := &fakeGateway{}
	sendText(t, c, gw, "A")
	sendText(t, c, gw, "B")

	require.NoError(t, c.BeginEdit(0))
	c.SetComposerText("A2")
	e, err := c.Submit()
	require.NoError(t, err)

	// Entries appended while the edit is in flight must not shift the target.
	c.Transcript().Append(transcript.Message{UserText: "late"})

	require.NoError(t, c.Settle(e, Outcome{Reply: "edited"}))
	msgs := c.Messages()
	assert.Equal(t, "edited", msgs[0].BotText)
	assert.Equal(t, "reply to B", msgs[1].BotText)
	assert.Empty(t, msgs[2].BotText)
}

func TestEmptyEditCancels(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	gw := &fakeGateway{}
	sendText(t, c, gw, "hello")
	before := c.Messages()

	require.NoError(t, c.BeginEdit(0))
	c.SetComposerText("   ")

	e, err := c.Submit()
	require.NoError(t, err)
	assert.Nil(t, e)

	assert.Equal(t, before, c.Messages())
	_, editing := c.EditTarget()
	assert.False(t, editing)
	assert.Equal(t, StateIdle, c.State())
	assert.Len(t, gw.converseCalls, 1)
}

func TestCancelEdit(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	sendText(t, c, &fakeGateway{}, "hello")

	require.NoError(t, c.BeginEdit(0))
	c.SetComposerText("hello world")
	assert.Equal(t, "hello world", c.EditDraft())

	c.CancelEdit()
	assert.Empty(t, c.ComposerText())
	assert.Empty(t, c.EditDraft())
	assert.Equal(t, "hello", c.Messages()[0].UserText)

	// Re-entering edit reseeds from the stored text, not the discarded draft.
	require.NoError(t, c.BeginEdit(0))
	assert.Equal(t, "hello", c.ComposerText())
}

func TestCancelEditWhenNotEditingKeepsComposer(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	c.SetComposerText("draft")
	c.CancelEdit()
	assert.Equal(t, "draft", c.ComposerText())
}

func TestLastEditRequestWins(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	gw := &fakeGateway{}
	sendText(t, c, gw, "A")
	sendText(t, c, gw, "B")

	require.NoError(t, c.BeginEdit(0))
	c.SetComposerText("A-unsent")

	require.NoError(t, c.BeginEdit(1))
	target, _ := c.EditTarget()
	assert.Equal(t, 1, target)
	assert.Equal(t, "B", c.ComposerText())

	// Re-requesting the open target keeps the draft.
	c.SetComposerText("B2")
	require.NoError(t, c.BeginEdit(1))
	assert.Equal(t, "B2", c.ComposerText())

	assert.Equal(t, "A", c.Messages()[0].UserText)
}

func TestAttachmentRequiresPlantTag(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	gw := &fakeGateway{}

	_, err := c.AttachImage("leaf.png", testPNG(t))
	require.NoError(t, err)
	c.SetComposerText("what is this?")

	for _, plant := range []string{"", "   "} {
		require.NoError(t, c.SetPlant(plant))

		_, _, err = c.Send(t.Context(), gw)
		require.ErrorIs(t, err, ErrPlantRequired)
		require.ErrorIs(t, err, attachment.ErrUnsupportedInput)
	}

	assert.Equal(t, 0, c.Transcript().Len())
	assert.Equal(t, 0, gw.calls())
	assert.False(t, c.Busy())
	assert.Equal(t, "what is this?", c.ComposerText())
	_, pending := c.PendingAttachment()
	assert.True(t, pending)
}

func TestSendImageDiagnosis(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	gw := &fakeGateway{}

	preview, err := c.AttachImage("leaf.png", testPNG(t))
	require.NoError(t, err)
	require.NoError(t, c.SetPlant(" Corn "))
	c.SetComposerText("spots on leaves")

	e, _, err := c.Send(t.Context(), gw)
	require.NoError(t, err)
	assert.Equal(t, KindDiagnose, e.Kind)
	assert.Equal(t, []string{"Corn"}, gw.diagnoseCalls)
	assert.Empty(t, gw.converseCalls)

	msg := c.Messages()[0]
	assert.Equal(t, "spots on leaves\n[Image uploaded for Corn]", msg.UserText)
	assert.Equal(t, preview.Ref(), msg.ImageRef)
	assert.Equal(t, "Corn looks healthy", msg.BotText)
	assert.FileExists(t, preview.Path, "the sent message keeps its preview")

	_, pending := c.PendingAttachment()
	assert.False(t, pending)

	require.NoError(t, c.Close())
	assert.NoFileExists(t, preview.Path)
}

func TestSendImageWithoutText(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	_, err := c.AttachImage("leaf.png", testPNG(t))
	require.NoError(t, err)
	require.NoError(t, c.SetPlant("Potato"))

	_, _, err = c.Send(t.Context(), &fakeGateway{})
	require.NoError(t, err)
	assert.Equal(t, "[Image uploaded for Potato]", c.Messages()[0].UserText)
}

func TestDiagnoseFailureFallsBack(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	unreachable := fmt.Errorf("%w: connection refused", inference.ErrUnreachable)
	gw := &fakeGateway{diagnose: func([]byte, string) (inference.DiagnoseResult, error) {
		return inference.DiagnoseResult{}, unreachable
	}}

	_, err := c.AttachImage("leaf.png", testPNG(t))
	require.NoError(t, err)
	require.NoError(t, c.SetPlant("Rice"))

	_, out, err := c.Send(t.Context(), gw)
	require.NoError(t, err)
	require.ErrorIs(t, out.Err, inference.ErrUnreachable)

	msg := c.Messages()[0]
	assert.False(t, msg.Pending())
	assert.Equal(t, FallbackReply, msg.BotText)
	assert.False(t, c.Busy())
}

func TestEditFailureKeepsNewText(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	sendText(t, c, &fakeGateway{}, "A")

	failing := &fakeGateway{converse: func(string) (inference.ConverseResult, error) {
		return inference.ConverseResult{}, &inference.ServerError{StatusCode: 500}
	}}
	require.NoError(t, c.BeginEdit(0))
	c.SetComposerText("A2")

	_, out, err := c.Send(t.Context(), failing)
	require.NoError(t, err)
	require.ErrorIs(t, out.Err, inference.ErrServerRejected)

	msg := c.Messages()[0]
	assert.Equal(t, "A2", msg.UserText)
	assert.Equal(t, FallbackReply, msg.BotText)
}

func TestImageMessageIsNotEditable(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	_, err := c.AttachImage("leaf.png", testPNG(t))
	require.NoError(t, err)
	require.NoError(t, c.SetPlant("Wheat"))
	c.SetComposerText("plain looking text")

	_, _, err = c.Send(t.Context(), &fakeGateway{})
	require.NoError(t, err)

	require.ErrorIs(t, c.BeginEdit(0), ErrNotEditable)
	_, editing := c.EditTarget()
	assert.False(t, editing)
	assert.Empty(t, c.ComposerText())
}

func TestBeginEditOutOfRange(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	require.ErrorIs(t, c.BeginEdit(0), transcript.ErrOutOfRange)
	require.ErrorIs(t, c.BeginEdit(-1), transcript.ErrOutOfRange)
}

func TestEditAndAttachmentAreExclusive(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	sendText(t, c, &fakeGateway{}, "A")

	_, err := c.AttachImage("leaf.png", testPNG(t))
	require.NoError(t, err)
	require.ErrorIs(t, c.BeginEdit(0), ErrAttachmentPending)

	require.NoError(t, c.RemoveAttachment())
	require.NoError(t, c.BeginEdit(0))

	_, err = c.AttachImage("leaf.png", testPNG(t))
	require.ErrorIs(t, err, ErrEditInProgress)
	_, err = c.AttachFile("/does/not/matter.png")
	require.ErrorIs(t, err, ErrEditInProgress)
}

func TestNothingToSend(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	gw := &fakeGateway{}
	c.SetComposerText("  \n ")

	_, _, err := c.Send(t.Context(), gw)
	require.ErrorIs(t, err, ErrNothingToSend)
	assert.Equal(t, 0, c.Transcript().Len())
	assert.Equal(t, 0, gw.calls())
}

func TestSubmitWhileBusyIsRejected(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	c.SetComposerText("first")
	first, err := c.Submit()
	require.NoError(t, err)

	// Typing and edit-mode changes stay available while busy.
	c.SetComposerText("second")
	_, err = c.Submit()
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, "second", c.ComposerText())
	assert.Equal(t, 1, c.Transcript().Len())
	assert.Equal(t, 1, c.Transcript().PendingCount())

	require.NoError(t, c.Settle(first, Outcome{Reply: "ok"}))
	second, err := c.Submit()
	require.NoError(t, err)
	assert.Equal(t, 1, second.Index)
}

func TestIdenticalTextSendsSettleTheirOwnEntries(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	c.SetComposerText("same")
	first, err := c.Submit()
	require.NoError(t, err)
	require.NoError(t, c.Settle(first, Outcome{Reply: "one"}))

	c.SetComposerText("same")
	second, err := c.Submit()
	require.NoError(t, err)
	require.NoError(t, c.Settle(second, Outcome{Reply: "two"}))

	msgs := c.Messages()
	assert.Equal(t, "one", msgs[0].BotText)
	assert.Equal(t, "two", msgs[1].BotText)
}

func TestSettleTwice(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	c.SetComposerText("hello")
	e, err := c.Submit()
	require.NoError(t, err)

	require.NoError(t, c.Settle(e, Outcome{Reply: "hi"}))
	require.ErrorIs(t, c.Settle(e, Outcome{Reply: "again"}), ErrUnknownExchange)
	assert.Equal(t, "hi", c.Messages()[0].BotText)
}

func TestSettleWithErrorUsesFallback(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	c.SetComposerText("hello")
	e, err := c.Submit()
	require.NoError(t, err)

	require.NoError(t, c.Settle(e, Outcome{Reply: "partial", Err: errors.New("boom")}))
	assert.Equal(t, FallbackReply, c.Messages()[0].BotText)
}

// TestSequentialInvariants drives a mixed script of sends and edits and checks
// after every step that the transcript never shrinks, only new sends create
// entries, and at most one entry is pending.
func TestSequentialInvariants(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	gw := &fakeGateway{}

	type step struct {
		edit int
		text string
	}
	script := []step{
		{edit: -1, text: "one"},
		{edit: -1, text: "two"},
		{edit: 0, text: "one again"},
		{edit: -1, text: "three"},
		{edit: 2, text: ""},
		{edit: 1, text: "two again"},
		{edit: -1, text: "   "},
	}

	newSends := 0
	prevLen := 0
	for i, s := range script {
		if s.edit >= 0 {
			require.NoError(t, c.BeginEdit(s.edit), "step %d", i)
		}
		c.SetComposerText(s.text)

		e, err := c.Submit()
		if err == nil && e != nil {
			assert.LessOrEqual(t, c.Transcript().PendingCount(), 1)
			if !e.Edit {
				newSends++
			}
			require.NoError(t, c.Settle(e, e.Dispatch(t.Context(), gw)))
		}

		assert.GreaterOrEqual(t, c.Transcript().Len(), prevLen, "step %d", i)
		assert.Equal(t, newSends, c.Transcript().Len(), "step %d", i)
		assert.Equal(t, 0, c.Transcript().PendingCount(), "step %d", i)
		prevLen = c.Transcript().Len()
	}

	assert.Equal(t, 3, newSends)
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "composing", StateComposingNew.String())
	assert.Equal(t, "editing", StateComposingEdit.String())
	assert.Equal(t, "busy", StateBusy.String())
	assert.Equal(t, "diagnose", KindDiagnose.String())
}
