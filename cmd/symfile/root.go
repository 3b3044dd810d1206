package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goretk/symfile"
	"github.com/goretk/symfile/internal/config"
	"github.com/goretk/symfile/internal/journal"
	"github.com/goretk/symfile/internal/logging"
)

// rootOptions holds global flags and the state built from them.
type rootOptions struct {
	configPath string
	format     string
	arch       string
	verbose    bool

	fs     symfile.FS
	cfg    *config.Config
	logger zerolog.Logger
}

// newRootCommand creates the root command. A nil fs uses the host filesystem.
func newRootCommand(fs symfile.FS) *cobra.Command {
	opts := &rootOptions{fs: fs}

	cmd := &cobra.Command{
		Use:           "symfile",
		Short:         "Attach debug symbol files to binaries",
		Long:          "symfile verifies that debug symbol files and dSYM bundles carry the same unique build identifier as a binary before attaching them.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.arch, "arch", "", "architecture slice of universal binaries")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newAddDsymCommand(opts))
	cmd.AddCommand(newUUIDCommand(opts))
	cmd.AddCommand(newResolveCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))

	return cmd
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = o.format
	}
	if cmd.Flags().Changed("arch") {
		cfg.Arch = o.arch
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	o.cfg = cfg

	lc := logging.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Pretty = !cfg.Log.JSON
	lc.Output = cmd.ErrOrStderr()
	o.logger = logging.New(lc)
	if o.fs == nil {
		o.fs = symfile.DefaultFS()
	}
	return nil
}

func (o *rootOptions) sessionOptions() []symfile.Option {
	return []symfile.Option{
		symfile.WithFS(o.fs),
		symfile.WithLogger(o.logger),
		symfile.WithSearchPaths(o.cfg.SearchPaths...),
	}
}

// readOnlySession builds a session for commands that inspect files without
// attaching anything. It never opens the journal.
func (o *rootOptions) readOnlySession() *symfile.Session {
	return symfile.NewSession(o.sessionOptions()...)
}

// newSession builds a session and, if configured, wires the journal as an
// observer. The returned function closes the journal.
func (o *rootOptions) newSession(ctx context.Context) (*symfile.Session, func(), error) {
	sopts := o.sessionOptions()

	var j *journal.Journal
	if o.cfg.Journal != "" {
		var err error
		j, err = journal.Open(o.cfg.Journal)
		if err != nil {
			return nil, nil, err
		}
		last, err := j.LastSeq(ctx)
		if err != nil {
			j.Close()
			return nil, nil, err
		}
		sopts = append(sopts, symfile.WithSequence(symfile.ResumeSequence(last)))
	}

	s := symfile.NewSession(sopts...)
	closer := func() {}
	if j != nil {
		unsubscribe := s.Subscribe(j)
		closer = func() {
			unsubscribe()
			if err := j.Close(); err != nil {
				o.logger.Warn().Err(err).Msg("Failed to close journal")
			}
		}
	}
	return s, closer, nil
}

func (o *rootOptions) openJournal() (*journal.Journal, error) {
	if o.cfg.Journal == "" {
		return nil, fmt.Errorf("no journal configured, set SYMFILE_JOURNAL or journal in the config file")
	}
	return journal.Open(o.cfg.Journal)
}

// absPath makes command line paths absolute and slash separated.
func absPath(p string) (string, error) {
	if filepath.IsAbs(p) || strings.HasPrefix(filepath.ToSlash(p), "/") {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}
