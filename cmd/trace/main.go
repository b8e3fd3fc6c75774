// Command trace is the debug driver for the filehistory engine: it loads a
// synthetic repository description, traces a path's history, blames it, and
// prints the result. It exists to exercise the engine end to end, the way
// the teacher's own cmd/zeta subcommands exercise pkg/zeta.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/antgroup/zeta-blame/modules/diag"
	"github.com/antgroup/zeta-blame/pkg/filehistory"
)

type flags struct {
	table     bool
	quiet     bool
	skim      int
	maxLevel  int
	benchmark bool
}

func main() {
	var f flags
	root := &cobra.Command{
		Use:           "trace <fixture.toml> <path>",
		Short:         "Trace and blame a path's history against a synthetic repository",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], f)
		},
	}
	root.Flags().BoolVarP(&f.table, "trace", "t", false, "dump the trace as a table instead of blaming")
	root.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "suppress annotation output")
	root.Flags().IntVarP(&f.skim, "skim", "s", 0, "first-parent skim interval (0 disables skimming)")
	root.Flags().IntVarP(&f.maxLevel, "max-level", "m", -1, "maximum merge-branch level to explore (-1 unlimited)")
	root.Flags().BoolVarP(&f.benchmark, "bench", "b", false, "rerun trace+blame 10 times and print timings")

	if err := root.Execute(); err != nil {
		if e, ok := err.(*exitCodeError); ok {
			os.Exit(e.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(127)
	}
}

type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }

func run(fixturePath, path string, f flags) error {
	repo, head, err := loadFixture(fixturePath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if f.benchmark {
		return runBenchmark(ctx, repo, head, path, f)
	}

	tp, tbar := newProgressBar("tracing")
	dag, err := doTrace(ctx, repo, head, path, f, func(n int) error {
		tbar.SetCurrent(int64(n))
		return ctx.Err()
	})
	tbar.SetTotal(tbar.Current(), true)
	tp.Wait()
	if err != nil {
		return &exitCodeError{code: 1, err: err}
	}

	if f.table {
		return renderTrace(dag)
	}
	if f.quiet {
		return nil
	}

	bp, bbar := newProgressBar("blaming")
	af, err := filehistory.Blame(ctx, repo, dag, filehistory.BlameOptions{
		Progress: func(n int) error {
			bbar.SetCurrent(int64(n))
			return ctx.Err()
		},
	})
	bbar.SetTotal(bbar.Current(), true)
	bp.Wait()
	if err != nil {
		return &exitCodeError{code: 1, err: err}
	}
	renderBlame(filehistory.Annotate(af))
	return nil
}

func doTrace(ctx context.Context, p filehistory.Provider, head filehistory.Oid, path string, f flags, progress filehistory.ProgressFunc) (*filehistory.DAG, error) {
	return filehistory.Trace(ctx, p, head, path, filehistory.TraceOptions{
		SkimInterval: f.skim,
		MaxLevel:     f.maxLevel,
		Progress:     progress,
	})
}

// runBenchmark reruns trace+blame 10 times, printing per-round timings via
// the teacher's own diag.Tracker idiom.
func runBenchmark(ctx context.Context, p filehistory.Provider, head filehistory.Oid, path string, f flags) error {
	t := diag.NewTracker(true)
	const rounds = 10
	for i := 0; i < rounds; i++ {
		dag, err := doTrace(ctx, p, head, path, f, nil)
		if err != nil {
			return diag.Errorf("trace round %d: %v", i, err)
		}
		if _, err := filehistory.Blame(ctx, p, dag, filehistory.BlameOptions{}); err != nil {
			return diag.Errorf("blame round %d: %v", i, err)
		}
		t.StepNext("round %d", i)
	}
	return nil
}
