// Package diag carries the teacher's ambient diagnostics idiom
// (modules/trace in the original hugescm tree) into this fork: a
// caller-located error logger and a step timer for "-b" style timing runs.
// It is deliberately kept out of the filehistory engine itself, which never
// logs from inside the algorithm — only the CLI driver imports it.
package diag

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

func location(skip int) (string, int) {
	pc, _, line, ok := runtime.Caller(skip)
	if !ok {
		return "?", line
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "?", line
	}
	return fn.Name(), line
}

// Errorf logs the error at its call site via logrus and returns it as a
// plain error, matching modules/trace.Errorf in the teacher.
func Errorf(format string, a ...any) error {
	fn, line := location(2)
	msg := fmt.Sprintf(format, a...)
	logrus.Errorf("%s:%d %s", fn, line, msg)
	return errors.New(msg)
}

// Tracker prints wall-clock and heap-allocation deltas between named steps
// when debug mode is on; used by cmd/trace's "-b" timing rerun. This mirrors
// the original gitfourchette/toolbox/benchmark.py Benchmark context manager,
// which reports both an elapsed-ms and an RSS-delta-KB figure per step; Go
// has no direct RSS equivalent to psutil's, so heap allocation
// (runtime.MemStats.Alloc) stands in as the closest cheap proxy.
type Tracker struct {
	debug    bool
	last     time.Time
	lastHeap uint64
}

func NewTracker(debugMode bool) *Tracker {
	t := &Tracker{debug: debugMode, last: time.Now()}
	if debugMode {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		t.lastHeap = ms.Alloc
	}
	return t
}

func (t *Tracker) StepNext(format string, a ...any) {
	if !t.debug {
		return
	}
	s := fmt.Sprintf(format, a...)
	now := time.Now()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	deltaKB := (int64(ms.Alloc) - int64(t.lastHeap)) / 1024
	fmt.Fprintf(os.Stderr, "\x1b[35m* %s use time: %v %6dK\x1b[0m\n", strings.Trim(s, "\n"), now.Sub(t.last), deltaKB)
	t.last = now
	t.lastHeap = ms.Alloc
}
