package session

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agromind/plantchat/pkg/attachment"
	"github.com/agromind/plantchat/pkg/inference"
)

type fakeGateway struct {
	converse func(prompt string) (inference.ConverseResult, error)
	diagnose func(image []byte, plant string) (inference.DiagnoseResult, error)

	converseCalls []string
	diagnoseCalls []string
}

func (f *fakeGateway) Converse(_ context.Context, prompt string) (inference.ConverseResult, error) {
	f.converseCalls = append(f.converseCalls, prompt)
	if f.converse == nil {
		return inference.ConverseResult{Response: "reply to " + prompt}, nil
	}
	return f.converse(prompt)
}

func (f *fakeGateway) Diagnose(_ context.Context, image []byte, plant string) (inference.DiagnoseResult, error) {
	f.diagnoseCalls = append(f.diagnoseCalls, plant)
	if f.diagnose == nil {
		return inference.DiagnoseResult{Kind: inference.Healthy, Message: plant + " looks healthy"}, nil
	}
	return f.diagnose(image, plant)
}

func (f *fakeGateway) calls() int {
	return len(f.converseCalls) + len(f.diagnoseCalls)
}

func newTestController(t *testing.T) *Controller {
	t.Helper()

	c := New(WithAttachments(attachment.NewManager(t.TempDir())))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

// sendText types text and sends it synchronously.
func sendText(t *testing.T, c *Controller, gw inference.Gateway, text string) {
	t.Helper()

	c.SetComposerText(text)
	_, _, err := c.Send(t.Context(), gw)
	require.NoError(t, err)
}
