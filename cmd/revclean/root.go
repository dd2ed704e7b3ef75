package main

import (
	"fmt"

	"github.com/jamesainslie/revclean/pkg/revclean/config"
	"github.com/jamesainslie/revclean/pkg/revclean/logging"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags to configuration keys. A flag only
// overrides the file and environment when it is set explicitly.
var flagKeys = map[string]string{
	"manifest":         "manifest",
	"keep-original":    "keep.original",
	"keep-renamed":     "keep.renamed",
	"keep-sourcemaps":  "keep.sourcemaps",
	"keep-manifest":    "keep.manifest",
	"emit":             "emit",
	"dry-run":          "delete.dry_run",
	"force":            "delete.force",
	"trash":            "delete.trash",
	"prune-empty-dirs": "delete.prune_empty_dirs",
	"exclude":          "exclude",
	"log-level":        "logging.level",
}

// app carries the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	verbose bool
	quiet   bool

	// clean command
	format       string
	watch        bool
	noJournal    bool
	listManifest bool
	confirm      bool

	settings *viper.Viper
	cfg      *config.Config
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "revclean [dir]",
		Short: "Delete stale revisioned assets from a build directory",
		Long: `revclean removes every regular file in a build directory that the
revision manifest does not account for. Original asset names, their
revisioned names and the manifest itself are kept by default; source maps
of revisioned files are kept with --keep-sourcemaps.

Examples:
  revclean dist                         # Clean dist using dist/rev-manifest.json
  revclean dist --dry-run               # Show what would be removed
  revclean dist -i                      # Review the batch before deleting
  revclean dist --keep-original=false   # Keep only revisioned files
  revclean dist --emit -q               # Print surviving paths only
  revclean dist --watch                 # Clean again whenever the manifest changes
  revclean history                      # Show past runs`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return logging.Close()
		},
		RunE: a.runClean,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ~/.config/revclean/config.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug output on stderr")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "suppress the report and warnings")
	pf.String("log-level", "", "log file level (debug, info, warn, error)")

	defaults := types.DefaultOptions()
	f := cmd.Flags()
	f.StringP("manifest", "m", types.DefaultManifestName, "manifest file, relative to dir unless absolute")
	f.Bool("keep-original", defaults.KeepOriginalFiles, "keep files named by manifest keys")
	f.Bool("keep-renamed", defaults.KeepRenamedFiles, "keep files named by manifest values")
	f.Bool("keep-sourcemaps", defaults.KeepSourceMapFiles, "keep <revised>.map files")
	f.Bool("keep-manifest", defaults.KeepManifestFile, "keep the manifest file itself")
	f.Bool("emit", defaults.EmitChunks, "print surviving paths to stdout (report goes to stderr)")
	f.BoolP("dry-run", "d", false, "report what would be deleted without deleting")
	f.Bool("force", false, "allow deleting outside the working directory")
	f.Bool("trash", false, "move files to the system trash")
	f.Bool("prune-empty-dirs", false, "remove directories left empty")
	f.StringSliceP("exclude", "e", nil, "glob patterns to leave untouched (repeatable)")
	f.StringVarP(&a.format, "format", "o", "pretty", "report format (pretty, plain, json, yaml)")
	f.BoolVarP(&a.watch, "watch", "w", false, "clean again whenever the manifest changes")
	f.BoolVar(&a.noJournal, "no-journal", false, "do not record this run in the history")
	f.BoolVar(&a.listManifest, "list-manifest", false, "print the manifest entries and exit")
	f.BoolVarP(&a.confirm, "confirm", "i", false, "ask before deleting")

	cmd.AddCommand(newHistoryCmd(a), newConfigCmd(a), newVersionCmd())
	return cmd
}

// setup loads configuration, binds explicitly set flags over it and
// initializes logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}

	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	a.settings, a.cfg = v, cfg

	return a.initLogging(cmd)
}

func (a *app) initLogging(cmd *cobra.Command) error {
	path := a.cfg.Logging.Path
	if path == "" {
		path = logging.DefaultLogPath()
	}

	lc := logging.Config{
		Level:   a.cfg.Logging.Level,
		Path:    path,
		Console: cmd.ErrOrStderr(),
		Rotation: logging.Rotation{
			MaxSize:    int64(a.cfg.Logging.MaxSizeMB) * 1024 * 1024,
			MaxBackups: a.cfg.Logging.MaxBackups,
		},
	}
	switch {
	case a.verbose:
		lc.ConsoleLevel = "debug"
	case !a.quiet:
		lc.ConsoleLevel = "warn"
	}

	if err := logging.Init(lc); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	return nil
}
