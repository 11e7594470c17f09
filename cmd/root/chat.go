package root

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agromind/plantchat/pkg/cli"
	"github.com/agromind/plantchat/pkg/session"
	"github.com/agromind/plantchat/pkg/tui"
)

type chatFlags struct {
	plain bool
}

func newChatCmd(root *rootFlags) *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:     "chat",
		Short:   "Open an interactive chat (the default command)",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runChatCommand(cmd, root)
		},
	}

	cmd.Flags().BoolVar(&flags.plain, "plain", false, "Use the line-mode chat instead of the full-screen interface")

	return cmd
}

func (f *chatFlags) runChatCommand(cmd *cobra.Command, root *rootFlags) error {
	ctx := cmd.Context()

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	gw := newGateway(cfg)

	ctrl := session.New()
	defer closeSession(ctrl)

	settings := cfg.GetSettings()
	if f.plain || !isTerminal(cmd.InOrStdin()) || !isTerminal(cmd.OutOrStdout()) {
		out := cli.NewPrinter(cmd.OutOrStdout(), isColorTerminal(cmd.OutOrStdout()))
		if settings.MarkdownEnabled() {
			out.RenderMarkdown(terminalWidth(cmd.OutOrStdout()))
		}
		return cli.Run(ctx, out, cli.Config{
			AppName:   AppName,
			ExportDir: settings.ResolvedExportDir(),
		}, ctrl, gw, cmd.InOrStdin())
	}

	return tui.Run(ctx, ctrl, gw, tui.Options{
		AppName:        AppName,
		RenderMarkdown: settings.MarkdownEnabled(),
		ExportDir:      settings.ResolvedExportDir(),
	})
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func isColorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && cli.ColorEnabled(f)
}

// terminalWidth returns the column count of w, or 0 when w is not a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !isTerminal(f) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
