package logging

import (
	"cmp"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/agromind/plantchat/pkg/paths"
)

// DefaultFileName is the debug log written under the data directory.
const DefaultFileName = "plantchat.debug.log"

// Setup installs the process-wide slog logger. Without debug, logs are
// discarded so they never interleave with the terminal UI. With debug, they
// go to a rotating file at path, or <data dir>/plantchat.debug.log when path
// is empty. The returned closer is nil when no file was opened.
func Setup(debug bool, path string) (io.Closer, error) {
	if !debug {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nil, nil
	}

	path = cmp.Or(strings.TrimSpace(path), filepath.Join(paths.GetDataDir(), DefaultFileName))
	file, err := NewRotatingFile(path)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return file, nil
}

// Fallback logs to w when the debug file cannot be opened.
func Fallback(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
