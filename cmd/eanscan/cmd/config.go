package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/eanscan/internal/config"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Inspect and create configuration files",
		Annotations: map[string]string{skipValidationAnnotation: "true"},
	}

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write the default configuration (default eanscan.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := config.ConfigFileName + ".yaml"
			if len(args) == 1 {
				file = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(file); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", file)
			}
			if err := config.GenerateDefaultConfigFile(file); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", file)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			var (
				out []byte
				err error
			)
			switch strings.ToLower(format) {
			case "yaml", "":
				out, err = config.MarshalYAML(a.cfg)
			case outputFormatJSON:
				out, err = json.MarshalIndent(a.cfg, "", "  ")
				out = append(out, '\n')
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	showCmd.Flags().String("format", "yaml", "output format (yaml, json)")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			used := a.loader.GetConfigFileUsed()
			if used == "" {
				used = "defaults"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (%s)\n", used)
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "List the directories searched for eanscan.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths := config.GetConfigSearchPaths()
			if len(paths) == 0 {
				return errors.New("no search paths")
			}
			for _, p := range paths {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd, validateCmd, pathCmd)
	return cmd
}
