package filehistory

import "context"

// traceProgressInterval is how often Trace calls its ProgressFunc, matching
// the default used throughout this package's CLI driver.
const traceProgressInterval = 200

// TraceOptions tunes a Trace run.
type TraceOptions struct {
	// SkimInterval, when > 0, lets the root branch (level 0 only) jump
	// SkimInterval commits at a time along first-parent without looking at
	// any tree in between, falling back to one commit at a time the moment
	// a jump lands on a changed blob. 0 disables skimming.
	SkimInterval int
	// MaxLevel caps how deep a merge side-branch may recurse; side
	// branches that would open at level > MaxLevel are abandoned instead
	// of traced. A negative MaxLevel means unlimited.
	MaxLevel int
	Progress ProgressFunc
	// ProgressInterval overrides traceProgressInterval; tests typically
	// set this to 1 to exercise the callback on every commit.
	ProgressInterval int
}

type branchEntry struct {
	anchor    *TraceNode
	commit    *Commit
	treeAbove Oid
	// attachTo is non-nil only for a merge side-branch: anchor is then a
	// throwaway scratch node (same Path/BlobID as attachTo, never
	// registered in the DAG) used purely to walk the secondary parent's
	// history looking for the first point of divergence. The moment that
	// point is found, the resulting real TraceNode is linked as attachTo's
	// second parent and the branch continues from there as an ordinary,
	// fully real one (attachTo reverts to nil for the rest of the walk).
	attachTo *TraceNode
}

type walker struct {
	ctx      context.Context
	p        Provider
	dag      *DAG
	opts     TraceOptions
	frontier []branchEntry
	owner    map[Oid]*TraceNode
	count    int
}

func (w *walker) push(e branchEntry) {
	w.frontier = append([]branchEntry{e}, w.frontier...)
}

func (w *walker) pop() branchEntry {
	e := w.frontier[0]
	w.frontier = w.frontier[1:]
	return e
}

func (w *walker) tick() error {
	w.count++
	interval := w.opts.ProgressInterval
	if interval <= 0 {
		interval = traceProgressInterval
	}
	if w.opts.Progress != nil && w.count%interval == 0 {
		return w.opts.Progress(w.count)
	}
	return nil
}

// Trace walks the commit graph backward from seedCommit along path,
// building a pruned DAG of the revisions that touched it (component D of
// this package's design).
func Trace(ctx context.Context, p Provider, seedCommit Oid, path string, opts TraceOptions) (*DAG, error) {
	seed, err := p.LookupCommit(ctx, seedCommit)
	if err != nil {
		return nil, err
	}
	entry, found, err := p.TreeEntry(ctx, seed.Tree, path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSeedPathMissing
	}

	dag := NewDAG()
	seedNode := dag.NewNode(path, seed.ID, entry.ID, 0)
	dag.Seed = seedNode

	w := &walker{ctx: ctx, p: p, dag: dag, opts: opts, owner: make(map[Oid]*TraceNode)}
	w.owner[seed.ID] = seedNode
	w.push(branchEntry{anchor: seedNode, commit: seed, treeAbove: seed.Tree})

	for len(w.frontier) > 0 {
		b := w.pop()
		if opts.MaxLevel >= 0 && b.anchor.Level > opts.MaxLevel {
			continue
		}
		if err := w.traceBranch(b); err != nil {
			return nil, err
		}
	}

	pruneReintroduced(dag)
	return dag, nil
}

// traceBranch walks first-parent history starting at b.commit, extending or
// sealing b.anchor as it goes, until the branch terminates (root reached,
// an already-owned commit reached, or the file's existence boundary found).
func (w *walker) traceBranch(b branchEntry) error {
	anchor := b.anchor
	commit := b.commit
	treeAbove := b.treeAbove
	attachTo := b.attachTo

	for {
		if owner, ok := w.owner[commit.ID]; ok && owner != anchor {
			if attachTo != nil {
				w.dag.AddParent(attachTo, owner)
				return nil
			}
			w.dag.AddParent(anchor, owner)
			anchor.Seal(owner.BlobID)
			return w.finishSeal(anchor)
		}

		entry, found, err := w.p.TreeEntry(w.ctx, commit.Tree, anchor.Path)
		if err != nil {
			return err
		}

		var blobAtCommit Oid
		var pathAtCommit string
		renamedHere := false
		if found {
			blobAtCommit = entry.ID
			pathAtCommit = anchor.Path
		} else {
			oldPath, oldBlob, ok, err := w.resolveRename(commit.Tree, treeAbove, anchor.Path, anchor.BlobID)
			if err != nil {
				return err
			}
			if !ok {
				// Secondary side never had the file at all: it contributed
				// nothing to this path, so attachTo simply gets no second
				// parent. A primary-branch anchor without a parent yet is
				// a real ADDED revision.
				if attachTo != nil {
					return nil
				}
				anchor.Seal(NullOid)
				return w.finishSeal(anchor)
			}
			pathAtCommit = oldPath
			blobAtCommit = oldBlob
			renamedHere = true
		}

		if err := w.tick(); err != nil {
			return err
		}

		useful := renamedHere || blobAtCommit != anchor.BlobID
		if !useful {
			if attachTo != nil {
				// Content at this commit already matches attachTo's own
				// blob with no rename in between: the secondary side never
				// diverged before converging back, so there's nothing
				// distinct to link. Keep walking the scratch anchor
				// forward in case divergence shows up further back.
				anchor.CommitID = commit.ID
			} else {
				// Unchanged: extend anchor's span backward and keep
				// walking without creating a new node.
				anchor.CommitID = commit.ID
				w.owner[commit.ID] = anchor
			}
		} else {
			if renamedHere {
				// A path change is RENAMED even when content also drifted in
				// the same step: renamed-vs-modified classification checks
				// path before content, never the other way around, so a
				// rename is never downgraded to MODIFIED just because its
				// content changed too.
				anchor.Status = Renamed
			}
			newLevel := anchor.Level
			if attachTo != nil {
				newLevel = attachTo.Level + 1
			}
			newNode := w.dag.NewNode(pathAtCommit, commit.ID, blobAtCommit, newLevel)
			if attachTo != nil {
				w.dag.AddParent(attachTo, newNode)
			} else {
				w.dag.AddParent(anchor, newNode)
				anchor.Seal(blobAtCommit)
				if err := w.finishSeal(anchor); err != nil {
					return err
				}
			}
			w.owner[commit.ID] = newNode
			anchor = newNode
			attachTo = nil
		}

		if len(commit.Parents) == 0 {
			if attachTo != nil {
				return nil
			}
			anchor.Seal(NullOid)
			return w.finishSeal(anchor)
		}

		treeAbove = commit.Tree
		next, err := w.p.LookupCommit(w.ctx, commit.Parents[0])
		if err != nil {
			return err
		}

		if attachTo == nil && w.opts.SkimInterval > 0 && anchor.Level == 0 {
			skimmed, landedAt, ok, err := w.attemptSkim(next, anchor.Path, anchor.BlobID)
			if err != nil {
				return err
			}
			if ok {
				for _, c := range skimmed {
					w.owner[c] = anchor
				}
				next = landedAt
			}
		}
		commit = next
	}
}

// resolveRename looks for path's predecessor name in commitTree given that
// it is known to exist under path in treeAbove. It first looks for an exact
// blob-id match on the deleted side of a plain (no similarity heuristics)
// tree diff; only if that fails, and the diff shows both an add at path and
// at least one unrelated delete, does it re-diff with rename detection
// turned on and trust the provider's similarity-based pairing.
func (w *walker) resolveRename(commitTree, treeAbove Oid, path string, knownBlob Oid) (oldPath string, oldBlob Oid, ok bool, err error) {
	if treeAbove == NullOid {
		return "", NullOid, false, nil
	}
	deltas, err := w.p.DiffTrees(w.ctx, commitTree, treeAbove, false)
	if err != nil {
		return "", NullOid, false, err
	}
	hasAddAtPath, hasDelete := false, false
	for _, d := range deltas {
		switch d.Status {
		case Added:
			if d.NewPath == path {
				hasAddAtPath = true
			}
		case Deleted:
			hasDelete = true
			if d.OldID == knownBlob {
				return d.OldPath, d.OldID, true, nil
			}
		}
	}
	if !hasAddAtPath || !hasDelete {
		return "", NullOid, false, nil
	}
	deltas, err = w.p.DiffTrees(w.ctx, commitTree, treeAbove, true)
	if err != nil {
		return "", NullOid, false, err
	}
	for _, d := range deltas {
		if d.Status == Renamed && d.NewPath == path {
			return d.OldPath, d.OldID, true, nil
		}
	}
	return "", NullOid, false, nil
}

// attemptSkim tries to follow first-parent SkimInterval-1 steps past start
// without inspecting any tree in between. It succeeds only if the blob at
// path in the landing commit's tree is unchanged from knownBlob, in which
// case every commit from start up to but not including the landing commit
// is reported so the caller can mark it visited without a second look.
func (w *walker) attemptSkim(start *Commit, path string, knownBlob Oid) (skimmed []Oid, landedAt *Commit, ok bool, err error) {
	cur := start
	skimmed = append(skimmed, cur.ID)
	for i := 1; i < w.opts.SkimInterval; i++ {
		if len(cur.Parents) == 0 {
			return nil, nil, false, nil
		}
		cur, err = w.p.LookupCommit(w.ctx, cur.Parents[0])
		if err != nil {
			return nil, nil, false, err
		}
		skimmed = append(skimmed, cur.ID)
	}
	entry, found, err := w.p.TreeEntry(w.ctx, cur.Tree, path)
	if err != nil {
		return nil, nil, false, err
	}
	if !found || entry.ID != knownBlob {
		return nil, nil, false, nil
	}
	return skimmed[:len(skimmed)-1], cur, true, nil
}

// finishSeal runs right after any node finishes sealing. An insignificant
// (Unmodified) node is folded out of the live graph immediately. A
// significant node whose own commit is a merge point schedules its
// non-first parent as a side branch to trace at the next level; a commit
// with three or more parents aborts the whole trace, since there is no
// principled way to pick which extra parent matters.
func (w *walker) finishSeal(node *TraceNode) error {
	if !node.Significant() {
		if len(node.Parents) > 0 {
			w.dag.UnlinkPassthrough(node, node.Parents[0])
		}
		return nil
	}
	commit, err := w.p.LookupCommit(w.ctx, node.CommitID)
	if err != nil {
		return err
	}
	switch len(commit.Parents) {
	case 0, 1:
		return nil
	case 2:
		parent2, err := w.p.LookupCommit(w.ctx, commit.Parents[1])
		if err != nil {
			return err
		}
		shadow := &TraceNode{Path: node.Path, BlobID: node.BlobID, Level: node.Level + 1}
		w.push(branchEntry{anchor: shadow, commit: parent2, treeAbove: commit.Tree, attachTo: node})
		return nil
	default:
		return ErrOctopusUnsupported
	}
}

// pruneReintroduced culls MODIFIED nodes whose blob already appeared,
// closer to the tail (older) of history, at a strictly smaller level: that
// content was contributed more originally on an ancestor/trunk branch, and
// this node is merely where a merge re-introduced it on a deeper branch.
// RENAMED and ADDED nodes are never culled; they carry path-history
// information a blob-only comparison can't recover.
func pruneReintroduced(dag *DAG) {
	if dag.Seed == nil {
		return
	}
	order, err := dag.WalkGraph(dag.Seed)
	if err != nil {
		return
	}
	seenLevel := make(map[Oid]int)
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if n.Status == Unreadable {
			continue
		}
		if lvl, ok := seenLevel[n.BlobID]; ok {
			if n.Status == Modified && lvl < n.Level {
				if len(n.Parents) > 0 {
					dag.UnlinkPassthrough(n, n.Parents[0])
				}
				continue
			}
			if n.Level < lvl {
				seenLevel[n.BlobID] = n.Level
			}
		} else {
			seenLevel[n.BlobID] = n.Level
		}
	}
}
