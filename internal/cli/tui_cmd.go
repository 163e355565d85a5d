package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fastkill/fastkill/internal/tui"
)

func newTuiCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive process table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, ctx)
		},
	}

	return cmd
}

func runTUI(cmd *cobra.Command, ctx *context) error {
	if !supportsInteractiveOutput(cmd) {
		return fmt.Errorf("the interactive table requires a terminal; use 'fastkill list' instead")
	}

	cfg, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	// The logger shares the terminal with tview; route it to a file or
	// mute it so diagnostics never corrupt the screen.
	if path := os.Getenv("FASTKILL_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	provider := ctx.snapshotProvider(cfg)
	ui := tui.New(provider, newSession(), ctx.newKiller(),
		tui.WithInterval(ctx.refreshInterval(cfg)),
		tui.WithSortMode(cfg.SortMode()),
		tui.WithProtected(cfg.IsProtected),
	)

	return ui.Run(cmd.Context())
}

func supportsInteractiveOutput(cmd *cobra.Command) bool {
	out := cmd.OutOrStdout()
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
