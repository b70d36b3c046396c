// Command zinoma is the CLI entry point: it loads and validates a project
// file, resolves the requested targets into the target.Target set the
// engine operates on, and drives either a one-shot run or watch mode to
// completion.
//
// Grounded on the teacher's cmd/distri/distri.go top-level flag dispatch,
// restructured around a single spf13/cobra root command (no subcommands,
// since this tool has exactly one mode of operation gated by flags) the
// way daydemir/ralph and tim-coutinho/agentops structure their cobra
// trees, with leveled colorized output via fatih/color + mattn/go-isatty.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/distr1/zinoma/internal/config"
	"github.com/distr1/zinoma/internal/engine"
	"github.com/distr1/zinoma/internal/target"
	"github.com/distr1/zinoma/internal/termination"
)

var (
	projectDir  string
	verbosity   int
	watch       bool
	clean       bool
	zshComplete bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zinoma [TARGETS...]",
		Short: "Incremental, watch-capable task runner for declarative build graphs",
		Long: `zinoma runs a project's declared targets, skipping work whose inputs and
outputs are unchanged since the last successful run, and can watch the
filesystem to re-run (or restart services) as files change.

TARGETS is a list of target names to run; if empty, every top-level target
declared in the root project's zinoma.yml is run.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	cmd.Flags().StringVarP(&projectDir, "project", "p", ".", "root project directory")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch the filesystem and re-run affected targets")
	cmd.Flags().BoolVar(&clean, "clean", false, "remove each selected target's declared output paths before running")
	cmd.Flags().BoolVar(&zshComplete, "generate-zsh-completion", false, "emit a zsh completion script on stdout and exit")
	_ = cmd.Flags().MarkHidden("generate-zsh-completion")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if zshComplete {
		return cmd.Root().GenZshCompletion(os.Stdout)
	}

	log := newLogger(verbosity)

	cfg, err := config.Load(projectDir)
	if err != nil {
		return xerrors.Errorf("loading project: %w", err)
	}

	requested := args
	if len(requested) == 0 {
		requested = cfg.RootTargetNames()
	}

	targets, roots, err := cfg.Resolve(requested)
	if err != nil {
		return xerrors.Errorf("resolving targets: %w", err)
	}

	if clean {
		cleanOutputs(targets, log)
	}

	e := engine.New(targets, log.Warnf)
	term := termination.Notify()
	ctx := context.Background()

	if watch {
		return e.Watch(ctx, roots, term)
	}
	return e.ExecuteOnce(ctx, roots, term)
}

// cleanOutputs removes every declared output path of every Build target in
// targets, logging each removal at debug level. It runs once before the
// engine starts and never touches targets with no declared output.
func cleanOutputs(targets map[target.Id]target.Target, log *logger) {
	for id, t := range targets {
		if t.Kind != target.Build || !t.Build.HasOutput {
			continue
		}
		for _, res := range t.Build.Output.Files {
			for _, path := range res.Paths {
				log.Debugf("%s: removing %s", id, path)
				if err := os.RemoveAll(path); err != nil {
					log.Warnf("%s: failed to remove %s: %v", id, path, err)
				}
			}
		}
	}
}
