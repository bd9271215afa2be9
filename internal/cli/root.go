package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/config"
	"github.com/ppiankov/groundcheck/internal/model"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=..."
var version = "v0.1.0-dev"

var (
	cfgFile   string
	overrides []string
	verbose   bool

	appCfg  *config.Config
	cfgUsed string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "groundcheck",
	Short: "groundcheck - verify claims in generated text against source documents",
	Long: `groundcheck checks the factual claims of an LLM response against a set of
source document chunks.

Each claim is extracted, aligned with the best supporting chunks and given a
calibrated confidence. The response gets an aggregate hallucination score and
per-claim interventions (pass, flag, rewrite); a corrected rewrite can be
generated from them.

groundcheck measures lexical and entity support only. It does not decide
what is true.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = zap.L().Sync() }()
	return rootCmd.Execute()
}

// ExitCode maps a command error to the process exit status: 0 on success,
// 2 for bad input or configuration, 1 for anything else
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case model.IsKind(err, model.KindInput), model.IsKind(err, model.KindConfig):
		return 2
	}
	var flagErr *flagError
	if errors.As(err, &flagErr) {
		return 2
	}
	return 1
}

// flagError marks invalid command-line usage
type flagError struct{ msg string }

func (e *flagError) Error() string { return e.msg }

func usageErrorf(format string, a ...any) error {
	return &flagError{msg: fmt.Sprintf(format, a...)}
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of groundcheck.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("groundcheck %s\n", version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./groundcheck.yaml or $HOME/.groundcheck/config.yaml)")
	rootCmd.PersistentFlags().StringArrayVar(&overrides, "set", nil, "override a config key, e.g. --set mapper.min_alignment_score=0.7 (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads the configuration and the logger for every command but version
func initConfig(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	cfg, used, err := config.Load(config.Options{File: cfgFile, Overrides: overrides})
	if err != nil {
		return err
	}
	if verbose && cfg.Log.Level != "debug" {
		cfg.Log.Level = "info"
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return model.E(model.KindConfig, "log.init", err)
	}

	appCfg, cfgUsed = cfg, used
	if verbose && used != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", used)
	}
	return nil
}
