// Package cmd implements the eanscan command line.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/eanscan/internal/config"
	"github.com/MeKo-Tech/eanscan/internal/version"
)

// configKeyAnnotation maps a flag onto a configuration key. Only the flags
// of the executing command are bound, so subcommands can share keys.
const configKeyAnnotation = "eanscan/config-key"

// skipValidationAnnotation marks commands that must run on an invalid config.
const skipValidationAnnotation = "eanscan/skip-validation"

// app carries the configuration of one invocation.
type app struct {
	v       *viper.Viper
	loader  *config.Loader
	cfg     *config.Config
	cfgFile string
}

// NewRootCommand builds a fresh command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	a.loader = config.NewLoaderWith(a.v)

	rootCmd := &cobra.Command{
		Use:   "eanscan",
		Short: "Locate and decode EAN-13 barcodes in images",
		Long: `eanscan finds the barcode in a photo or scan using a structure-tensor
segmentation, casts random rays across it and decodes the EAN-13 symbol.

Examples:
  eanscan decode photo.jpg
  eanscan decode scan.png --ray 20,100,440,100 --format json
  eanscan batch images/ --recursive --workers 8
  eanscan serve --port 8080`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initialize(cmd)
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $HOME, /etc/eanscan, $XDG_CONFIG_HOME/eanscan)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Uint64("seed", 0, "random seed for noise and ray angles (0 = random)")
	bindFlag(pf, "verbose", "verbose")
	bindFlag(pf, "log-level", "log_level")
	bindFlag(pf, "seed", "decode.seed")

	rootCmd.AddCommand(
		newDecodeCommand(a),
		newBatchCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
		newLookupCommand(a),
	)
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bindFlag records the configuration key a flag feeds.
func bindFlag(fs *pflag.FlagSet, name, key string) {
	_ = fs.SetAnnotation(name, configKeyAnnotation, []string{key})
}

func (a *app) initialize(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys, ok := f.Annotations[configKeyAnnotation]; ok && len(keys) == 1 {
			if err := a.v.BindPFlag(keys[0], f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		}
	})
	if bindErr != nil {
		return bindErr
	}

	var err error
	if skipsValidation(cmd) {
		a.cfg, err = a.loader.LoadWithFileWithoutValidation(a.cfgFile)
	} else {
		a.cfg, err = a.loader.LoadWithFile(a.cfgFile)
	}
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level := slog.LevelInfo
	if a.cfg.Verbose {
		level = slog.LevelDebug
	} else {
		_ = level.UnmarshalText([]byte(a.cfg.LogLevel))
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	slog.Debug("Configuration loaded", "file", a.loader.GetConfigFileUsed())
	return nil
}

func skipsValidation(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[skipValidationAnnotation]; ok {
			return true
		}
	}
	return false
}
