package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"manifold/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = "manifold.yaml"
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if dir := filepath.Dir(target); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create config directory %q: %w", dir, err)
				}
			}
			if err := os.WriteFile(target, []byte(config.Sample()), 0o644); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var configFlag string

	cmd := &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration after defaults and validation",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(configFlag)
			var (
				cfg config.Config
				err error
			)
			if path == "" {
				// Fall back to the root --config flag when the subcommand
				// flag is unset.
				if root := cmd.Root(); root != nil {
					if flag := root.PersistentFlags().Lookup("config"); flag != nil {
						path = strings.TrimSpace(flag.Value.String())
					}
				}
			}
			if path == "" {
				cfg = config.Default()
			} else if cfg, err = config.Load(path); err != nil {
				return err
			}
			body, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(body))
			return nil
		},
	}

	cmd.Flags().StringVar(&configFlag, "file", "", "Configuration file to show (defaults to --config)")
	return cmd
}
