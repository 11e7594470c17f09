package tui

import (
	"context"
	"log/slog"

	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	"github.com/agromind/plantchat/pkg/inference"
	"github.com/agromind/plantchat/pkg/session"
	"github.com/agromind/plantchat/pkg/transcript"
)

// exchangeSettledMsg carries the outcome of a dispatched exchange back to
// the model's goroutine, where it is settled.
type exchangeSettledMsg struct {
	exchange *session.Exchange
	outcome  session.Outcome
}

type exportedMsg struct {
	path string
	err  error
}

type noticeMsg string

// dispatchCmd performs the exchange's inference call off the UI goroutine.
func dispatchCmd(ctx context.Context, gw inference.Gateway, e *session.Exchange) tea.Cmd {
	return func() tea.Msg {
		return exchangeSettledMsg{exchange: e, outcome: e.Dispatch(ctx, gw)}
	}
}

func exportCmd(path string, msgs []transcript.Message) tea.Cmd {
	return func() tea.Msg {
		err := transcript.WriteMarkdownFile(path, msgs)
		if err == nil {
			slog.Debug("Transcript exported", "path", path, "messages", len(msgs))
		}
		return exportedMsg{path: path, err: err}
	}
}

// copyTextToClipboard copies text using both OSC52 and the system clipboard.
func copyTextToClipboard(text string) tea.Cmd {
	return tea.Sequence(
		tea.SetClipboard(text),
		func() tea.Msg {
			if err := clipboard.WriteAll(text); err != nil {
				slog.Debug("System clipboard unavailable", "error", err)
			}
			return noticeMsg("Reply copied to clipboard.")
		},
	)
}
