package root

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agromind/plantchat/pkg/paths"
	"github.com/agromind/plantchat/pkg/session"
)

type diagnoseFlags struct {
	plant string
}

func newDiagnoseCmd(root *rootFlags) *cobra.Command {
	var flags diagnoseFlags

	cmd := &cobra.Command{
		Use:     "diagnose --plant <name> <image> [note]",
		Short:   "Diagnose a leaf image and print the result",
		Example: `  plantchat diagnose --plant Potato ./leaf.png`,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runDiagnoseCommand(cmd, root, args)
		},
	}

	cmd.Flags().StringVarP(&flags.plant, "plant", "p", "", "Plant name, e.g. Corn, Potato, Rice or Wheat")

	return cmd
}

func (f *diagnoseFlags) runDiagnoseCommand(cmd *cobra.Command, root *rootFlags, args []string) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	ctrl := session.New()
	defer closeSession(ctrl)

	if _, err := ctrl.AttachFile(paths.ExpandHome(args[0])); err != nil {
		return err
	}
	if err := ctrl.SetPlant(f.plant); err != nil {
		return err
	}
	ctrl.SetComposerText(strings.Join(args[1:], " "))

	return sendOnce(cmd, ctrl, newGateway(cfg))
}
