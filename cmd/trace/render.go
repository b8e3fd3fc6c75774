package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/antgroup/zeta-blame/pkg/filehistory"
)

// newProgressBar mirrors the teacher's own mpb setup in
// pkg/zeta/transfer.go: an indeterminate bar (total unknown ahead of time)
// that shows its label and the elapsed time; it has no count decorator.
func newProgressBar(label string) (*mpb.Progress, *mpb.Bar) {
	p := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithAutoRefresh())
	bar := p.New(-1,
		mpb.BarStyle().Filler("#").Padding(" "),
		mpb.PrependDecorators(decor.Name(label)),
		mpb.AppendDecorators(decor.Elapsed(decor.ET_STYLE_GO, time.Now())),
	)
	return p, bar
}

// shortHash matches the teacher's convention of showing the first 8 hex
// characters of a commit id in terse output.
func shortHash(id filehistory.Oid) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// renderTrace dumps dag as a table: one row per live TraceNode, in
// newest-first WalkGraph order.
func renderTrace(dag *filehistory.DAG) error {
	order, err := dag.WalkGraph(dag.Seed)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"commit", "level", "status", "path"})
	for _, n := range order {
		if n.Status == filehistory.Unreadable {
			continue
		}
		t.AppendRow(table.Row{shortHash(n.CommitID), n.Level, n.Status, n.Path})
	}
	t.Render()
	return nil
}

// renderBlame prints a colorized per-line attribution listing: short hash,
// line number, line text; no author column is printed. Colors cycle by revision parity purely so
// adjacent revisions are visually distinguishable, following the pack's
// fatih/color usage for report highlighting.
func renderBlame(result *filehistory.BlameResult) {
	if result.Binary {
		fmt.Println(color.YellowString("<binary file, no line annotation>"))
		return
	}
	even := color.New(color.FgCyan)
	odd := color.New(color.FgGreen)
	for _, l := range result.Lines {
		c := even
		if l.Node.RevisionNumber%2 == 1 {
			c = odd
		}
		c.Printf("%-8s %4d | ", shortHash(l.Node.CommitID), l.LineNo)
		fmt.Print(l.Text)
	}
}
