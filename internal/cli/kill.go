package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fastkill/fastkill/internal/cliutil"
	"github.com/fastkill/fastkill/internal/kill"
	"github.com/fastkill/fastkill/internal/procs"
	"github.com/fastkill/fastkill/internal/session"
)

func newKillCmd(ctx *context) *cobra.Command {
	var (
		force   bool
		wait    bool
		timeout time.Duration
		yes     bool
		all     bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "kill <pid|name>...",
		Short: "Send SIGTERM (or SIGKILL) to matching processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			snap, err := takeSnapshot(cmd, ctx, cfg, "")
			if err != nil {
				return err
			}

			targets, err := resolveTargets(snap.Records, args)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				log.Info("no matching processes found")
				return nil
			}

			kept := targets[:0:0]
			for _, rec := range targets {
				if cfg.IsProtected(rec.Name) {
					log.Warn("skipping protected process", "name", rec.Name, "pid", rec.PID)
					continue
				}
				kept = append(kept, rec)
			}
			targets = kept
			if len(targets) == 0 {
				return &exitError{code: 1, message: "all matching processes are protected"}
			}

			if len(targets) > 1 && !all && !yes && !dryRun {
				targets, err = pickTargets(targets)
				if err != nil {
					return &exitError{code: 130, message: "selection cancelled"}
				}
				if len(targets) == 0 {
					return nil
				}
			}

			if !yes && !dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), renderListTable(targets))
				confirmed, err := confirmKill(len(targets))
				if err != nil || !confirmed {
					return &exitError{code: 130, message: "cancelled"}
				}
			}

			if dryRun {
				signal := kill.SignalTerm
				if force {
					signal = kill.SignalKill
				}
				for _, rec := range targets {
					fmt.Fprintf(cmd.OutOrStdout(), "[dry-run] would send %s to %s (pid %d)\n", signal, rec.Name, rec.PID)
				}
				return nil
			}

			killer := ctx.newKiller()

			if wait {
				failed := false
				for _, rec := range targets {
					if err := killer.Graceful(cmd.Context(), rec.PID, timeout); err != nil {
						log.Error("graceful kill failed", "name", rec.Name, "pid", rec.PID, "err", err)
						failed = true
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "killed %s (pid %d)\n", rec.Name, rec.PID)
				}
				if failed {
					return &exitError{code: 1, message: "some processes could not be killed"}
				}
				return nil
			}

			// A fresh session means every target starts at SIGTERM;
			// --force pre-marks them so the batch escalates immediately.
			sess := session.New()
			batch := make([]session.Exited, 0, len(targets))
			for _, rec := range targets {
				id := rec.Identity()
				if force {
					sess.MarkTermSent(id)
				}
				batch = append(batch, session.Exited{ID: id, Name: rec.Name})
			}

			results := killer.Batch(sess, batch)
			failed := false
			for _, r := range results {
				if r.Err != nil {
					log.Error("kill failed", "name", r.ID.Name, "pid", r.ID.ID.PID, "err", r.Err)
					failed = true
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s (pid %d)\n", r.Signal, r.ID.Name, r.ID.ID.PID)
			}
			if failed {
				return &exitError{code: 1, message: "some processes could not be killed"}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "send SIGKILL immediately")
	cmd.Flags().BoolVar(&wait, "wait", false, "send SIGTERM, wait, then SIGKILL on timeout")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "wait timeout before escalating to SIGKILL")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "kill every match without the picker")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would be signalled")

	return cmd
}

// resolveTargets matches each argument against the snapshot: numeric
// arguments match PIDs, everything else matches executable names
// case-insensitively.
func resolveTargets(records []procs.Record, args []string) ([]procs.Record, error) {
	seen := make(map[procs.Identity]struct{})
	var targets []procs.Record
	for _, arg := range args {
		matched := false
		if pid, err := strconv.ParseInt(arg, 10, 32); err == nil {
			for _, rec := range records {
				if rec.PID == int32(pid) {
					matched = true
					if _, dup := seen[rec.Identity()]; !dup {
						seen[rec.Identity()] = struct{}{}
						targets = append(targets, rec)
					}
				}
			}
		} else {
			for _, rec := range records {
				if strings.EqualFold(rec.Name, arg) {
					matched = true
					if _, dup := seen[rec.Identity()]; !dup {
						seen[rec.Identity()] = struct{}{}
						targets = append(targets, rec)
					}
				}
			}
		}
		if !matched {
			log.Debug("no match", "query", arg)
		}
	}
	return targets, nil
}

func pickTargets(records []procs.Record) ([]procs.Record, error) {
	options := make([]huh.Option[int], 0, len(records))
	for i, rec := range records {
		label := fmt.Sprintf("%-8d %-20s %-10s %s", rec.PID, rec.Name, cliutil.FormatBytes(rec.RSS), cliutil.Truncate(cliutil.RedactSecrets(rec.Cmdline), 40))
		options = append(options, huh.NewOption(label, i))
	}

	var selected []int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[int]().
				Title("Select processes to kill").
				Options(options...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	result := make([]procs.Record, 0, len(selected))
	for _, idx := range selected {
		result = append(result, records[idx])
	}
	return result, nil
}

func confirmKill(n int) (bool, error) {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Kill %d process(es)?", n)).
				Affirmative("Kill").
				Negative("Cancel").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
