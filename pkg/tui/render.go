package tui

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"charm.land/glamour/v2"
	"charm.land/lipgloss/v2"

	"github.com/agromind/plantchat/pkg/transcript"
)

type renderKey struct {
	text  string
	width int
}

// markdownRenderer renders bot replies, caching by text and width so the
// transcript can be redrawn on every spinner tick.
type markdownRenderer struct {
	enabled  bool
	width    int
	renderer *glamour.TermRenderer
	cache    map[renderKey]string
}

func newMarkdownRenderer(enabled bool) *markdownRenderer {
	return &markdownRenderer{
		enabled: enabled,
		cache:   make(map[renderKey]string),
	}
}

func (r *markdownRenderer) render(text string, width int) string {
	if !r.enabled || width <= 0 {
		return text
	}

	k := renderKey{text: text, width: width}
	if out, ok := r.cache[k]; ok {
		return out
	}

	if r.renderer == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(min(width, 120)),
		)
		if err != nil {
			slog.Debug("Markdown renderer unavailable", "error", err)
			r.enabled = false
			return text
		}
		r.renderer = tr
		r.width = width
	}

	out, err := r.renderer.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")
	r.cache[k] = out
	return out
}

// renderTranscript draws every message as a pair of bubbles.
func (m *Model) renderTranscript() string {
	msgs := m.ctrl.Messages()
	if len(msgs) == 0 {
		return mutedStyle.Render("Ask about your crops, or press ctrl+o to attach a leaf photo for a diagnosis.")
	}

	editing, _ := m.ctrl.EditTarget()
	bubbleWidth := max(m.width-2, 10)
	textWidth := max(bubbleWidth-4, 6)

	var blocks []string
	for i, msg := range msgs {
		blocks = append(blocks, m.renderUser(i, msg, i == editing, bubbleWidth))
		if msg.Pending() || msg.BotText != "" {
			blocks = append(blocks, m.renderBot(msg, bubbleWidth, textWidth))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func (m *Model) renderUser(i int, msg transcript.Message, editing bool, width int) string {
	label := userLabelStyle.Render(fmt.Sprintf("You #%d", i+1))
	style := bubbleStyle
	switch {
	case editing:
		label += " " + editLabelStyle.Render("editing")
		style = editingBubbleStyle
	case i == m.selected:
		style = selectedBubbleStyle
	}

	body := msg.UserText
	if msg.HasImage() {
		body += "\n" + mutedStyle.Render("image: "+filepath.Base(msg.ImageRef))
	}
	return style.Width(width).Render(label + "\n" + body)
}

func (m *Model) renderBot(msg transcript.Message, width, textWidth int) string {
	label := botLabelStyle.Render("Bot")
	if msg.Pending() {
		return bubbleStyle.Width(width).Render(label + "\n" + m.spinner.View() + " Analyzing...")
	}
	return bubbleStyle.Width(width).Render(label + "\n" + m.markdown.render(msg.BotText, textWidth))
}
