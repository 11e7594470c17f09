package root

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agromind/plantchat/pkg/cli"
)

func newDoctorCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Short:   "Check that the inference services are reachable",
		GroupID: "advanced",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctorCommand(cmd, root)
		},
	}
}

type probeResult struct {
	name string
	url  string
	err  error
}

func runDoctorCommand(cmd *cobra.Command, root *rootFlags) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	client := newGateway(cfg)

	results := []probeResult{
		{name: "converse", url: cfg.Endpoints.Converse},
		{name: "diagnose", url: cfg.Endpoints.Diagnose},
	}

	// Probe errors are recorded per endpoint, so the group never fails.
	g, ctx := errgroup.WithContext(cmd.Context())
	for i := range results {
		g.Go(func() error {
			results[i].err = client.Probe(ctx, results[i].url)
			return nil
		})
	}
	_ = g.Wait()

	out := cli.NewPrinter(cmd.OutOrStdout(), isColorTerminal(cmd.OutOrStdout()))
	var maxLen int
	for _, r := range results {
		maxLen = max(maxLen, runewidth.StringWidth(r.name))
	}

	var failed int
	for _, r := range results {
		padding := strings.Repeat(" ", maxLen-runewidth.StringWidth(r.name))
		if r.err != nil {
			failed++
			out.Printf("✗ %s%s  %s: %v\n", r.name, padding, r.url, r.err)
			continue
		}
		out.Printf("✓ %s%s  %s\n", r.name, padding, r.url)
	}

	if failed > 0 {
		return RuntimeError{Err: fmt.Errorf("%d of %d inference services unreachable", failed, len(results))}
	}
	return nil
}

