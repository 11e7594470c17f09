package cli

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromind/plantchat/pkg/attachment"
	"github.com/agromind/plantchat/pkg/inference"
	"github.com/agromind/plantchat/pkg/session"
)

type scriptedGateway struct {
	prompts []string
	plants  []string
	err     error
}

func (g *scriptedGateway) Converse(_ context.Context, prompt string) (inference.ConverseResult, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return inference.ConverseResult{}, g.err
	}
	return inference.ConverseResult{Response: "answer: " + prompt}, nil
}

func (g *scriptedGateway) Diagnose(_ context.Context, _ []byte, plant string) (inference.DiagnoseResult, error) {
	g.plants = append(g.plants, plant)
	if g.err != nil {
		return inference.DiagnoseResult{}, g.err
	}
	return inference.DiagnoseResult{Kind: inference.NotAPlantImage, Message: "That is not a " + plant + " leaf."}, nil
}

func runScript(t *testing.T, gw inference.Gateway, script string) (*session.Controller, string) {
	t.Helper()

	ctrl := session.New(session.WithAttachments(attachment.NewManager(t.TempDir())))
	t.Cleanup(func() { _ = ctrl.Close() })

	var out bytes.Buffer
	cfg := Config{
		AppName:   "plantchat",
		ExportDir: t.TempDir(),
		Now:       func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	err := Run(t.Context(), NewPrinter(&out, false), cfg, ctrl, gw, strings.NewReader(script))
	require.NoError(t, err)

	return ctrl, out.String()
}

func TestRun_ConverseAndEdit(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{}
	ctrl, out := runScript(t, gw, "first\nsecond\n/edit 1\nfirst, reworded\n/list\n/quit\nnever sent\n")

	assert.Equal(t, []string{"first", "second", "first, reworded"}, gw.prompts)

	msgs := ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first, reworded", msgs[0].UserText)
	assert.Equal(t, "answer: first, reworded", msgs[0].BotText)
	assert.Equal(t, "answer: second", msgs[1].BotText)

	assert.Contains(t, out, "Editing #1: first")
	assert.Contains(t, out, "edit #1> ")
	assert.Contains(t, out, "Updated #1.")
	assert.Contains(t, out, "Analyzing...")
}

func TestRun_EmptyEditLineCancels(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{}
	ctrl, out := runScript(t, gw, "hello\n/edit 1\n\n")

	assert.Len(t, gw.prompts, 1)
	assert.Equal(t, "hello", ctrl.Messages()[0].UserText)
	assert.Contains(t, out, "Edit cancelled.")
	_, editing := ctrl.EditTarget()
	assert.False(t, editing)
}

func TestRun_DiagnoseNeedsPlant(t *testing.T) {
	t.Parallel()

	img := filepath.Join(t.TempDir(), "leaf.png")
	f, err := os.Create(img)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	require.NoError(t, f.Close())

	gw := &scriptedGateway{}
	ctrl, out := runScript(t, gw, "/attach "+img+"\nlook\n/plant Tomato\nlook\n")

	assert.Contains(t, out, "Attached leaf.png (png, 3x2)")
	assert.Contains(t, out, "plant name is required")
	assert.Contains(t, out, `"Tomato" is not one of Corn, Potato, Rice, Wheat`)
	assert.Equal(t, []string{"Tomato"}, gw.plants)

	msgs := ctrl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "look\n[Image uploaded for Tomato]", msgs[0].UserText)
	assert.Equal(t, "That is not a Tomato leaf.", msgs[0].BotText)
}

func TestRun_FailureShowsFallback(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{err: inference.ErrUnreachable}
	ctrl, out := runScript(t, gw, "anyone there?\n")

	assert.Equal(t, session.FallbackReply, ctrl.Messages()[0].BotText)
	assert.Contains(t, out, "Bot: "+session.FallbackReply)
}

func TestRun_Export(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "chat.md")
	_, out := runScript(t, &scriptedGateway{}, "hi\n/export "+path+"\n")

	assert.Contains(t, out, "Conversation exported to "+path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## You\n\nhi\n\n## Bot\n\nanswer: hi\n", string(content))
}

func TestRun_UnknownCommandAndErrors(t *testing.T) {
	t.Parallel()

	_, out := runScript(t, &scriptedGateway{}, "/frobnicate\n/edit x\n/edit 4\n/plant Corn\n")

	assert.Contains(t, out, "unknown command /frobnicate")
	assert.Contains(t, out, "usage: /edit <message number>")
	assert.Contains(t, out, "out of range")
	assert.Contains(t, out, "no image attached")
}
