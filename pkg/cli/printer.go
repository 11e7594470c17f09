package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/glamour/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/agromind/plantchat/pkg/transcript"
)

// ColorEnabled reports whether f is a terminal that should get colored output.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type Printer struct {
	out      io.Writer
	markdown *glamour.TermRenderer

	bold   func(a ...any) string
	faint  func(a ...any) string
	you    func(a ...any) string
	bot    func(a ...any) string
	notice func(a ...any) string
}

func NewPrinter(out io.Writer, colors bool) *Printer {
	style := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if colors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}

	return &Printer{
		out:    out,
		bold:   style(color.Bold),
		faint:  style(color.Faint),
		you:    style(color.FgCyan, color.Bold),
		bot:    style(color.FgGreen, color.Bold),
		notice: style(color.FgYellow),
	}
}

// RenderMarkdown makes PrintReply render replies as markdown wrapped at
// width columns. A non-positive width turns rendering off.
func (p *Printer) RenderMarkdown(width int) {
	p.markdown = nil
	if width <= 0 {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(min(width, 120)),
	)
	if err == nil {
		p.markdown = r
	}
}

func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

func (p *Printer) Print(a ...any) {
	fmt.Fprint(p.out, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// PrintWelcomeMessage prints the banner shown when the REPL starts.
func (p *Printer) PrintWelcomeMessage(appName string) {
	p.Printf("\n------- Welcome to %s! -------\n", p.bold(appName))
	p.Println(p.faint("Ask about your crops, or /attach an image for a diagnosis. /help lists commands, /quit exits."))
	p.Println()
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) {
	p.Printf("❌ %s\n", err)
}

// PrintNotice prints a one-line informational message.
func (p *Printer) PrintNotice(format string, a ...any) {
	p.Println(p.notice(fmt.Sprintf(format, a...)))
}

// PrintAnalyzing is shown while an exchange is in flight.
func (p *Printer) PrintAnalyzing() {
	p.Println(p.faint("Analyzing..."))
}

// PrintReply prints the bot side of msg.
func (p *Printer) PrintReply(msg transcript.Message) {
	if p.markdown != nil && !msg.Pending() {
		if out, err := p.markdown.Render(msg.BotText); err == nil {
			p.Printf("%s\n%s\n", p.bot("Bot:"), strings.Trim(out, "\n"))
			return
		}
	}
	p.Printf("%s %s\n", p.bot("Bot:"), botText(msg))
}

// PrintTranscript prints every message with its 1-based number. The entry
// at editing, if non-negative, is marked.
func (p *Printer) PrintTranscript(msgs []transcript.Message, editing int) {
	if len(msgs) == 0 {
		p.Println(p.faint("No messages yet."))
		return
	}

	for i, msg := range msgs {
		marker := ""
		if i == editing {
			marker = " " + p.notice("(editing)")
		}
		p.Printf("%s %s%s\n", p.you(fmt.Sprintf("#%d You:", i+1)), indent(msg.UserText), marker)
		if msg.HasImage() {
			p.Printf("   %s\n", p.faint("image: "+msg.ImageRef))
		}
		if msg.Pending() || msg.BotText != "" {
			p.PrintReply(msg)
		}
	}
}

func botText(msg transcript.Message) string {
	if msg.Pending() {
		return "Analyzing..."
	}
	return indent(msg.BotText)
}

// indent keeps continuation lines of multi-line text aligned under the label.
func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n     ")
}
