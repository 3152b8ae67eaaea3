// Package cli implements the codeblur command line. Every command that
// touches session state opens the locked state file, loads the session,
// runs one operation and saves the result.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/codeblur/internal/config"
	"github.com/gonkalabs/codeblur/internal/dictionary"
	"github.com/gonkalabs/codeblur/internal/logging"
	"github.com/gonkalabs/codeblur/internal/pipeline"
	"github.com/gonkalabs/codeblur/internal/session"
)

var (
	versionStr   = "dev"
	commitStr    = "none"
	buildTimeStr = "unknown"
)

// SetVersion sets the version information
func SetVersion(version, commit, buildTime string) {
	versionStr = version
	commitStr = commit
	buildTimeStr = buildTime
}

// app carries flags and loaded configuration for one invocation.
type app struct {
	cfgFile   string
	statePath string
	style     string
	logLevel  string

	cfg    *config.Cfg
	dict   dictionary.Oracle
	logger io.Closer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "codeblur",
		Short: "Reversible code anonymization",
		Long: `codeblur replaces sensitive names and values in source code with
stable placeholders, and restores them later.

Levels are applied in a cycle:
  BLUR  secrets, addresses, paths, comments and string values
  ANON  identifiers not in the dictionary, long numbers
  NUKE  every remaining identifier and string

Mappings persist in a state file, so text obfuscated today can be revealed
tomorrow.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	pf.StringVar(&a.statePath, "state", "", "state file (default "+config.Default().StatePath+")")
	pf.StringVar(&a.style, "style", "", "placeholder style for new mappings")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		a.applyCmd(),
		a.revealCmd(),
		a.pinCmd(),
		a.undoCmd(),
		a.clearCmd(),
		a.percentCmd(),
		a.scanCmd(),
		a.sanitizeCmd(),
		a.mappingsCmd(),
		a.statusCmd(),
		a.serveCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.statePath != "" {
		cfg.StatePath = a.statePath
	}
	if a.style != "" {
		cfg.Style = a.style
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	a.logger = closer

	dict := dictionary.Default()
	if cfg.Dictionary != "" {
		if err := dict.LoadFile(cfg.Dictionary); err != nil {
			return err
		}
		slog.Debug("cli: dictionary loaded", "file", cfg.Dictionary, "words", dict.Len())
	}
	a.cfg, a.dict = cfg, dict
	return nil
}

func (a *app) sessionConfig() session.Config {
	return session.Config{
		Style:      a.cfg.Style,
		Dictionary: a.dict,
		Options: pipeline.Options{
			NumberThreshold:       a.cfg.NumberThreshold,
			FullStringObfuscation: a.cfg.FullStringObfuscation,
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "codeblur %s\n", versionStr)
			fmt.Fprintf(out, "  commit: %s\n", commitStr)
			fmt.Fprintf(out, "  built:  %s\n", buildTimeStr)
		},
	}
}
