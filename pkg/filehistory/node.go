package filehistory

// Line is one line of a file revision. Lines are shared by pointer across
// revisions: a context line that survives from one revision to the next
// reuses the exact same *Line rather than a copy, so walking the chain of
// TraceNode back from any line reaches the revision that introduced it.
type Line struct {
	// Node is the revision that introduced this line; it is set when the
	// Line is created and never changed. Merge refinement (overrideBlame)
	// re-attributes a line by replacing the *Line in an AnnotatedFile with
	// the secondary parent's *Line, not by editing Node.
	Node *TraceNode
	Text string
}

// AnnotatedFile is a file revision's content together with, for each line,
// the TraceNode currently believed responsible for it.
type AnnotatedFile struct {
	Node   *TraceNode
	Binary bool
	// Lines is 1-indexed; Lines[0] is a nil sentinel so that patch line
	// numbers (which are 1-based) index directly into the slice.
	Lines []*Line
}

// LineCount returns the number of real (non-sentinel) lines.
func (a *AnnotatedFile) LineCount() int {
	if a == nil {
		return 0
	}
	return len(a.Lines) - 1
}

// TraceNode is one revision of a file along the path a Trace walked. Nodes
// are allocated by a DAG arena (see dag.go), which records each node's
// allocation position in idx, but nodes link to one another directly
// through the Parents and Children pointer slices; nothing in this package
// addresses a node by its index.
type TraceNode struct {
	idx int

	Path     string
	CommitID Oid
	BlobID   Oid

	// Level is 0 on the seed's own branch and increases by one every time
	// the walker follows a merge commit's non-first parent into a side
	// branch.
	Level int

	Status DeltaStatus

	// Parents are older revisions (ancestors); Parents[0] is always the
	// first-parent ancestor when more than one parent exists, matching a
	// merge commit's Delta orientation.
	Parents []*TraceNode
	// Children are newer revisions for which this node is an ancestor;
	// maintained purely as reverse links for walkGraph and pruning.
	Children []*TraceNode

	sealed bool

	// RevisionNumber is assigned during Blame's topological walk, oldest
	// revision first; zero until Blame has run.
	RevisionNumber int

	// AnnotatedFile is this node's own file content with per-line
	// attribution, set once Blame has processed it.
	AnnotatedFile *AnnotatedFile

	// SubbingInForCommits lists commit ids that used to have their own
	// node before unlinkPassthrough folded them into this one.
	SubbingInForCommits []Oid
}

// Significant reports whether this node represents an actual change worth
// keeping in the final DAG. Only Unmodified nodes are insignificant.
func (n *TraceNode) Significant() bool {
	return n.Status != Unmodified
}

// Sealed reports whether Seal has already run on this node.
func (n *TraceNode) Sealed() bool {
	return n.sealed
}

// Seal finalizes a node's status once its ancestor blob id is known.
// ancestorBlob is NullOid when the branch terminated at a root commit
// (nothing older exists), in which case the node is necessarily ADDED.
//
// A node already marked Renamed before Seal runs (set by the walker the
// moment it redirects a path across a tree-diff) always keeps that status,
// whether or not the ancestor blob also turns out to equal this node's own
// blob id: a path change is classified RENAMED before content is ever
// considered, the same way the system this engine is modeled on checks path
// identity before content identity, so a rename is never downgraded to
// MODIFIED just because its content changed too.
func (n *TraceNode) Seal(ancestorBlob Oid) {
	switch {
	case n.Status == Renamed:
	case ancestorBlob == n.BlobID:
		n.Status = Unmodified
	case ancestorBlob == NullOid:
		n.Status = Added
	default:
		n.Status = Modified
	}
	n.sealed = true
}
