package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rssebambulidde/QueryAI-sub001/internal/config"
	"github.com/rssebambulidde/QueryAI-sub001/internal/output"
)

// newConfigCmd creates the config command with show and init subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialize configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.ConfigFileName + " to the config directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd)
		},
	})

	return cmd
}

// runConfigShow prints the effective config after file and env overrides.
func runConfigShow(cmd *cobra.Command) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
	return err
}

func runConfigInit(cmd *cobra.Command) error {
	cfg := config.NewConfig()
	if err := cfg.Save(configDir); err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("Wrote %s to %s", config.ConfigFileName, configDir)
	return nil
}
