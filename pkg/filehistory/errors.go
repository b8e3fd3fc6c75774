package filehistory

import "errors"

var (
	// ErrOctopusUnsupported is returned when a commit with three or more
	// parents is encountered on the traced path; the trace aborts entirely
	// rather than guess which extra parent matters.
	ErrOctopusUnsupported = errors.New("filehistory: octopus merge (3+ parents) not supported on traced path")

	// ErrMalformedDiff is returned when a patch's hunks reference line
	// numbers that regress or run past the pre-image length. A well-formed
	// provider never produces this; seeing it means a Provider
	// implementation bug, not a data condition callers should recover from.
	// Blame also returns it when BlameOptions.StrictAssertions finds a merge
	// node whose commit does not descend from its secondary parent's commit.
	ErrMalformedDiff = errors.New("filehistory: malformed diff, line cursor out of range")

	// ErrCycle is returned by the DAG's topological walk when the graph
	// built by Trace is not actually acyclic, which indicates a bug in the
	// walker rather than in caller input.
	ErrCycle = errors.New("filehistory: cycle detected while walking trace graph")

	// ErrSeedPathMissing is returned when the requested path does not
	// exist in the seed commit's tree.
	ErrSeedPathMissing = errors.New("filehistory: path does not exist at seed commit")
)
