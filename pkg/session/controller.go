// Package session implements the chat session state machine: it decides
// whether a submission is a new message or an edit, applies optimistic
// transcript updates, and reconciles inference replies into the entry that
// triggered them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agromind/plantchat/pkg/attachment"
	"github.com/agromind/plantchat/pkg/inference"
	"github.com/agromind/plantchat/pkg/transcript"
)

var (
	// ErrBusy is returned by Submit while another exchange is in flight.
	ErrBusy = errors.New("a reply is still pending")
	// ErrNothingToSend is returned when there is neither text nor an image to send.
	ErrNothingToSend = errors.New("nothing to send")
	// ErrPlantRequired is returned when an image is attached without a plant name.
	ErrPlantRequired = fmt.Errorf("%w: plant name is required with an image", attachment.ErrUnsupportedInput)
	// ErrNotEditable is returned when edit is requested on an image or non-user message.
	ErrNotEditable = errors.New("message cannot be edited")
	// ErrAttachmentPending is returned when edit is requested while an image is attached.
	ErrAttachmentPending = errors.New("remove the attached image before editing a message")
	// ErrEditInProgress is returned when an image is attached while editing.
	ErrEditInProgress = errors.New("finish or cancel the current edit before attaching an image")
	// ErrUnknownExchange is returned when settling an exchange that is not in flight.
	ErrUnknownExchange = errors.New("unknown exchange")
)

// State is the controller's position in the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateComposingNew
	StateComposingEdit
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposingNew:
		return "composing"
	case StateComposingEdit:
		return "editing"
	case StateBusy:
		return "busy"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller owns one chat session. It is not safe for concurrent use: all
// calls must come from the goroutine that owns the session. Only
// Exchange.Dispatch may run elsewhere.
type Controller struct {
	transcript  *transcript.Store
	attachments *attachment.Manager

	composer   string
	editDraft  string
	editTarget int

	inflight map[string]*Exchange
	sent     []attachment.Preview
	now      func() time.Time
}

type Opt func(*Controller)

func WithTranscript(s *transcript.Store) Opt {
	return func(c *Controller) {
		c.transcript = s
	}
}

func WithAttachments(m *attachment.Manager) Opt {
	return func(c *Controller) {
		c.attachments = m
	}
}

func WithClock(now func() time.Time) Opt {
	return func(c *Controller) {
		c.now = now
	}
}

func New(opts ...Opt) *Controller {
	c := &Controller{
		editTarget: -1,
		inflight:   make(map[string]*Exchange),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transcript == nil {
		c.transcript = transcript.NewStore()
	}
	if c.attachments == nil {
		c.attachments = attachment.NewManager("")
	}
	return c
}

func (c *Controller) Transcript() *transcript.Store {
	return c.transcript
}

// Messages returns a snapshot of the transcript.
func (c *Controller) Messages() []transcript.Message {
	return c.transcript.All()
}

func (c *Controller) State() State {
	switch {
	case c.Busy():
		return StateBusy
	case c.editTarget >= 0:
		return StateComposingEdit
	case c.composer != "" || c.attachments.Pending():
		return StateComposingNew
	default:
		return StateIdle
	}
}

// Busy reports whether an exchange is in flight.
func (c *Controller) Busy() bool {
	return len(c.inflight) > 0
}

func (c *Controller) ComposerText() string {
	return c.composer
}

// SetComposerText records the current input. While editing, the edit draft
// follows it.
func (c *Controller) SetComposerText(text string) {
	c.composer = text
	if c.editTarget >= 0 {
		c.editDraft = text
	}
}

// EditTarget returns the index of the message being edited, if any.
func (c *Controller) EditTarget() (int, bool) {
	return c.editTarget, c.editTarget >= 0
}

// EditDraft returns the unsent edit text.
func (c *Controller) EditDraft() string {
	return c.editDraft
}

// CanEdit reports whether BeginEdit(index) would succeed.
func (c *Controller) CanEdit(index int) error {
	msg, ok := c.transcript.Get(index)
	if !ok {
		return fmt.Errorf("%w: %d", transcript.ErrOutOfRange, index)
	}
	if !msg.Editable() {
		return ErrNotEditable
	}
	if c.attachments.Pending() {
		return ErrAttachmentPending
	}
	return nil
}

// BeginEdit enters edit mode on the message at index and seeds the composer
// with its text. Requesting a different message while an edit is open
// switches to it and discards the unsent draft.
func (c *Controller) BeginEdit(index int) error {
	if err := c.CanEdit(index); err != nil {
		return err
	}
	if c.editTarget == index {
		return nil
	}
	if c.editTarget >= 0 {
		slog.Debug("Discarding unsent edit", "index", c.editTarget)
	}

	msg, _ := c.transcript.Get(index)
	c.editTarget = index
	c.editDraft = msg.UserText
	c.composer = msg.UserText
	return nil
}

// CancelEdit leaves edit mode and clears the composer.
func (c *Controller) CancelEdit() {
	if c.editTarget < 0 {
		return
	}
	c.editTarget = -1
	c.editDraft = ""
	c.composer = ""
}

// AttachImage selects an image for the next message.
func (c *Controller) AttachImage(name string, data []byte) (attachment.Preview, error) {
	if c.editTarget >= 0 {
		return attachment.Preview{}, ErrEditInProgress
	}
	return c.attachments.Select(name, data)
}

// AttachFile selects the image stored at path for the next message.
func (c *Controller) AttachFile(path string) (attachment.Preview, error) {
	if c.editTarget >= 0 {
		return attachment.Preview{}, ErrEditInProgress
	}
	return c.attachments.SelectFile(path)
}

func (c *Controller) SetPlant(plant string) error {
	return c.attachments.SetPlant(plant)
}

// RemoveAttachment drops the pending image and releases its preview.
func (c *Controller) RemoveAttachment() error {
	return c.attachments.Clear()
}

func (c *Controller) PendingAttachment() (attachment.Attachment, bool) {
	return c.attachments.Current()
}

// Submit accepts the current composer content. It applies the optimistic
// transcript update and returns the exchange to dispatch. A nil exchange with
// a nil error means an empty edit was cancelled and nothing needs sending.
// Validation failures leave the session untouched.
func (c *Controller) Submit() (*Exchange, error) {
	if c.Busy() {
		return nil, ErrBusy
	}
	if c.editTarget >= 0 {
		return c.submitEdit()
	}
	return c.submitNew()
}

func (c *Controller) submitEdit() (*Exchange, error) {
	index := c.editTarget
	text := strings.TrimSpace(c.composer)
	if text == "" {
		c.CancelEdit()
		return nil, nil
	}

	err := c.transcript.PatchAt(index, transcript.Patch{
		UserText: transcript.Text(text),
		BotText:  transcript.Text(transcript.PendingReply),
	})
	if err != nil {
		c.CancelEdit()
		return nil, err
	}
	msg, _ := c.transcript.Get(index)
	c.CancelEdit()

	return c.track(&Exchange{
		MessageID: msg.ID,
		Index:     index,
		Kind:      KindConverse,
		Edit:      true,
		Prompt:    text,
	}), nil
}

func (c *Controller) submitNew() (*Exchange, error) {
	text := strings.TrimSpace(c.composer)
	att, hasImage := c.attachments.Current()
	if text == "" && !hasImage {
		return nil, ErrNothingToSend
	}
	if hasImage && !att.Complete() {
		return nil, ErrPlantRequired
	}

	msg := transcript.Message{
		ID:        uuid.NewString(),
		BotText:   transcript.PendingReply,
		CreatedAt: c.now(),
	}
	exch := &Exchange{
		Kind:   KindConverse,
		Prompt: text,
	}

	if hasImage {
		att, _ = c.attachments.Detach()
		c.sent = append(c.sent, att.Preview)

		plant := strings.TrimSpace(att.Plant)
		msg.ImageRef = att.Preview.Ref()
		exch.Kind = KindDiagnose
		exch.Image = att.Data
		exch.Plant = plant
		msg.UserText = displayText(text, plant)
	} else {
		msg.UserText = text
	}

	exch.Index = c.transcript.Append(msg)
	exch.MessageID = msg.ID
	c.composer = ""

	return c.track(exch), nil
}

func (c *Controller) track(e *Exchange) *Exchange {
	e.Token = uuid.NewString()
	c.inflight[e.Token] = e
	slog.Debug("Exchange submitted", "token", e.Token, "index", e.Index, "kind", e.Kind, "edit", e.Edit)
	return e
}

// Settle writes the outcome of e into the transcript entry it was created
// for and clears the busy state.
func (c *Controller) Settle(e *Exchange, out Outcome) error {
	if _, ok := c.inflight[e.Token]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExchange, e.Token)
	}
	delete(c.inflight, e.Token)

	reply := out.Reply
	if out.Err != nil {
		reply = FallbackReply
	}

	slog.Debug("Exchange settled", "token", e.Token, "index", e.Index, "failed", out.Err != nil)
	return c.transcript.PatchAt(e.Index, transcript.Patch{BotText: transcript.Text(reply)})
}

// Send submits, dispatches and settles in one blocking call.
func (c *Controller) Send(ctx context.Context, gw inference.Gateway) (*Exchange, Outcome, error) {
	e, err := c.Submit()
	if err != nil || e == nil {
		return e, Outcome{}, err
	}

	out := e.Dispatch(ctx, gw)
	return e, out, c.Settle(e, out)
}

// Close releases the pending attachment and every preview handed to sent
// messages. Image references in the transcript are dangling afterwards.
func (c *Controller) Close() error {
	err := c.attachments.Close()
	for _, p := range c.sent {
		err = errors.Join(err, attachment.Release(p))
	}
	c.sent = nil
	return err
}

// displayText is what the transcript shows for an image submission.
func displayText(text, plant string) string {
	marker := fmt.Sprintf("[Image uploaded for %s]", plant)
	if text == "" {
		return marker
	}
	return text + "\n" + marker
}
