package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fastkill/fastkill/internal/config"
)

func newConfigCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with the fastkill configuration file",
	}
	cmd.AddCommand(newConfigShowCmd(ctx))
	cmd.AddCommand(newConfigValidateCmd(ctx))
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigShowCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigValidateCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.resolveConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := config.Load(path); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return &exitError{code: 1, message: "configuration is invalid"}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the default configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultPath())
			return nil
		},
	}
}
