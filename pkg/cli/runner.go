package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agromind/plantchat/pkg/attachment"
	"github.com/agromind/plantchat/pkg/inference"
	"github.com/agromind/plantchat/pkg/input"
	"github.com/agromind/plantchat/pkg/paths"
	"github.com/agromind/plantchat/pkg/session"
	"github.com/agromind/plantchat/pkg/transcript"
)

// Config holds configuration for the line-mode chat.
type Config struct {
	AppName   string
	ExportDir string
	Now       func() time.Time
}

const helpText = `Commands:
  /attach <path>   attach an image for diagnosis
  /plant <name>    set the plant name for the attached image
  /detach          remove the attached image
  /edit <n>        edit message #n (an empty line cancels)
  /cancel          leave edit mode
  /list            show the conversation
  /export [path]   write the conversation as Markdown
  /quit            exit`

// Run drives a session from line input until EOF, /quit or cancellation.
// Every submission blocks until its reply has been settled.
func Run(ctx context.Context, out *Printer, cfg Config, ctrl *session.Controller, gw inference.Gateway, rd io.Reader) error {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	lines := input.NewLineReader(rd)
	out.PrintWelcomeMessage(cfg.AppName)

	for {
		out.Print(prompt(ctrl))

		line, err := lines.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				out.Println()
				return nil
			}
			return err
		}

		quit, err := handleLine(ctx, out, cfg, ctrl, gw, line)
		if err != nil {
			out.PrintError(err)
		}
		if quit {
			return nil
		}
	}
}

func prompt(ctrl *session.Controller) string {
	if target, ok := ctrl.EditTarget(); ok {
		return fmt.Sprintf("edit #%d> ", target+1)
	}
	if att, ok := ctrl.PendingAttachment(); ok {
		plant := att.Plant
		if plant == "" {
			plant = "?"
		}
		return fmt.Sprintf("[%s for %s]> ", att.Name, plant)
	}
	return "> "
}

func handleLine(ctx context.Context, out *Printer, cfg Config, ctrl *session.Controller, gw inference.Gateway, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if _, editing := ctrl.EditTarget(); !editing && trimmed == "" {
		return false, nil
	}

	if strings.HasPrefix(trimmed, "/") {
		return runUserCommand(out, cfg, ctrl, trimmed)
	}

	ctrl.SetComposerText(line)
	return false, send(ctx, out, ctrl, gw)
}

func send(ctx context.Context, out *Printer, ctrl *session.Controller, gw inference.Gateway) error {
	e, err := ctrl.Submit()
	if err != nil {
		return err
	}
	if e == nil {
		out.PrintNotice("Edit cancelled.")
		return nil
	}

	out.PrintAnalyzing()
	if err := ctrl.Settle(e, e.Dispatch(ctx, gw)); err != nil {
		return err
	}

	msg, _ := ctrl.Transcript().Get(e.Index)
	if e.Edit {
		out.PrintNotice("Updated #%d.", e.Index+1)
	}
	out.PrintReply(msg)
	return nil
}

// runUserCommand handles slash commands. It reports whether the REPL
// should exit.
func runUserCommand(out *Printer, cfg Config, ctrl *session.Controller, userInput string) (bool, error) {
	cmd, arg, _ := strings.Cut(userInput, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		out.Println(helpText)
	case "/attach":
		if arg == "" {
			return false, errors.New("usage: /attach <path>")
		}
		preview, err := ctrl.AttachFile(paths.ExpandHome(arg))
		if err != nil {
			return false, err
		}
		out.PrintNotice("Attached %s (%s, %dx%d). Set the plant with /plant <name>, e.g. %s.",
			filepath.Base(arg), preview.Format, preview.Width, preview.Height, strings.Join(attachment.KnownPlants(), ", "))
	case "/plant":
		if err := ctrl.SetPlant(arg); err != nil {
			return false, err
		}
		if arg != "" && !attachment.IsKnownPlant(arg) {
			out.PrintNotice("%q is not one of %s; the diagnosis service may not recognise it.", arg, strings.Join(attachment.KnownPlants(), ", "))
		}
	case "/detach":
		if err := ctrl.RemoveAttachment(); err != nil {
			return false, err
		}
		out.PrintNotice("Image removed.")
	case "/edit":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, errors.New("usage: /edit <message number>")
		}
		if err := ctrl.BeginEdit(n - 1); err != nil {
			return false, err
		}
		out.PrintNotice("Editing #%d: %s", n, ctrl.EditDraft())
	case "/cancel":
		ctrl.CancelEdit()
	case "/list":
		target, _ := ctrl.EditTarget()
		out.PrintTranscript(ctrl.Messages(), target)
	case "/export":
		path := arg
		if path == "" {
			path = filepath.Join(cfg.ExportDir, transcript.ExportFileName(cfg.Now()))
		}
		path = paths.ExpandHome(path)
		if err := transcript.WriteMarkdownFile(path, ctrl.Messages()); err != nil {
			return false, err
		}
		slog.Debug("Transcript exported", "path", path)
		out.PrintNotice("Conversation exported to %s", path)
	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}

	return false, nil
}
