package cli

import (
	stdcontext "context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fastkill/fastkill/internal/config"
	"github.com/fastkill/fastkill/internal/containers"
	"github.com/fastkill/fastkill/internal/kill"
	"github.com/fastkill/fastkill/internal/procs"
	"github.com/fastkill/fastkill/internal/session"
)

// exitError carries an explicit exit code through cobra.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string { return e.message }

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var (
		configPath string
		interval   time.Duration
		verbose    bool
		quiet      bool
	)

	ctx := &context{
		configPath: &configPath,
		interval:   &interval,
	}

	root := &cobra.Command{
		Use:   "fastkill",
		Short: "List and kill your own processes",
		Long:  "fastkill shows the invoking user's processes in an interactive table.\nThe first kill action on a process sends SIGTERM; repeating it while the\nprocess is still alive sends SIGKILL.",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetPrefix("fastkill")
			log.SetReportTimestamp(false)
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			if quiet {
				log.SetLevel(log.FatalLevel)
			}
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			if !verbose && !quiet {
				log.SetLevel(parseLogLevel(cfg.Log.Level))
			}
			return nil
		},
		// Bare invocation opens the interactive table.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, ctx)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default: $XDG_CONFIG_HOME/fastkill/config.yaml)")
	root.PersistentFlags().DurationVar(&interval, "interval", 0, "refresh interval override")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose diagnostics")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress diagnostics")

	root.AddCommand(newTuiCmd(ctx))
	root.AddCommand(newListCmd(ctx))
	root.AddCommand(newKillCmd(ctx))
	root.AddCommand(newServeCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			log.Error(ee.message)
			return ee.code
		}
		if ctx.Err() != nil {
			return 130
		}
		log.Error("unexpected error", "err", err)
		return 1
	}
	return 0
}

// context is the state shared by all commands: configuration, the
// snapshot provider and the session owned by the interactive UI.
type context struct {
	configPath *string
	interval   *time.Duration

	mu        sync.Mutex
	cfg       *config.Config
	provider  procs.Provider
	annotator *containers.Annotator
}

// resolveConfigPath prefers the flag, then FASTKILL_CONFIG, then the
// default location.
func (c *context) resolveConfigPath() string {
	if c.configPath != nil && *c.configPath != "" {
		return *c.configPath
	}
	if env := os.Getenv("FASTKILL_CONFIG"); env != "" {
		return env
	}
	return ""
}

func (c *context) loadConfig() (*config.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.resolveConfigPath())
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// refreshInterval applies the --interval override on top of the config.
func (c *context) refreshInterval(cfg *config.Config) time.Duration {
	if c.interval != nil && *c.interval > 0 {
		return *c.interval
	}
	return cfg.Refresh.Interval.Duration
}

// snapshotProvider lazily builds the system provider, attaching the
// Docker annotator when configured and reachable.
func (c *context) snapshotProvider(cfg *config.Config) procs.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil {
		return c.provider
	}
	opts := []procs.SystemOption{procs.WithSortMode(cfg.SortMode())}
	if cfg.AnnotateContainers() {
		if annotator := containers.NewAnnotator(); annotator != nil {
			c.annotator = annotator
			opts = append(opts, procs.WithAnnotator(annotator))
		}
	}
	c.provider = procs.NewSystemProvider(cfg.FilterOptions(), opts...)
	return c.provider
}

// newKiller pairs a fresh killer with the platform signaler.
func (c *context) newKiller() *kill.Killer {
	return kill.New(kill.NewSignaler())
}

func newSession() *session.Session {
	return session.New()
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
