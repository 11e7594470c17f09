package root

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agromind/plantchat/pkg/cli"
	"github.com/agromind/plantchat/pkg/inference"
	"github.com/agromind/plantchat/pkg/session"
)

func newAskCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "ask <question>|-",
		Short:   "Ask a single question and print the reply",
		Example: `  plantchat ask "What is the best time to sow rice?"
  echo "How do I treat early blight?" | plantchat ask -`,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAskCommand(cmd, root, args)
		},
	}
}

func runAskCommand(cmd *cobra.Command, root *rootFlags, args []string) error {
	prompt := strings.Join(args, " ")
	if len(args) == 1 && args[0] == "-" {
		buf, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		prompt = string(buf)
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	ctrl := session.New()
	defer closeSession(ctrl)

	ctrl.SetComposerText(prompt)
	return sendOnce(cmd, ctrl, newGateway(cfg))
}

// sendOnce sends the composed message and prints the settled reply. A
// failed inference call still prints the fallback reply, then reports the
// cause on stderr and fails the command.
func sendOnce(cmd *cobra.Command, ctrl *session.Controller, gw inference.Gateway) error {
	e, out, err := ctrl.Send(cmd.Context(), gw)
	if err != nil {
		if errors.Is(err, session.ErrNothingToSend) {
			return errors.New("nothing to send: the question is empty")
		}
		return err
	}

	msg, _ := ctrl.Transcript().Get(e.Index)
	fmt.Fprintln(cmd.OutOrStdout(), msg.BotText)

	if out.Err != nil {
		cli.NewPrinter(cmd.ErrOrStderr(), false).PrintError(out.Err)
		return RuntimeError{Err: out.Err}
	}
	return nil
}
