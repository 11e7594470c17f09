package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// Markdown renders the transcript as a Markdown document.
func Markdown(messages []Message) string {
	var builder strings.Builder

	for i := range messages {
		msg := messages[i]
		writeUserMessage(&builder, msg)
		writeBotMessage(&builder, msg)
	}

	return strings.TrimSpace(builder.String())
}

func writeUserMessage(builder *strings.Builder, msg Message) {
	if msg.UserText == "" && !msg.HasImage() {
		return
	}

	builder.WriteString("\n## You\n\n")
	if msg.UserText != "" {
		builder.WriteString(msg.UserText)
		builder.WriteString("\n")
	}
	if msg.HasImage() {
		fmt.Fprintf(builder, "\n![attached image](%s)\n", msg.ImageRef)
	}
}

func writeBotMessage(builder *strings.Builder, msg Message) {
	switch {
	case msg.Pending():
		builder.WriteString("\n## Bot\n\n_Awaiting reply..._\n")
	case msg.BotText != "":
		fmt.Fprintf(builder, "\n## Bot\n\n%s\n", msg.BotText)
	}
}

// WriteMarkdownFile atomically writes the Markdown rendering of messages to path.
func WriteMarkdownFile(path string, messages []Message) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	return atomic.WriteFile(path, strings.NewReader(Markdown(messages)+"\n"))
}

// ExportFileName is the default file name for a transcript exported at t.
func ExportFileName(t time.Time) string {
	return "plantchat-" + t.Format("20060102-150405") + ".md"
}
