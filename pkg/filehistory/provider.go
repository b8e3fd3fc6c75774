// Package filehistory walks a content-addressed commit graph backward along
// a single path, building a pruned revision DAG (Trace), then walks that DAG
// forward to produce per-line attribution (Blame). The package never reads
// objects itself; everything it needs about commits, trees and blobs comes
// through the Provider interface, so the same engine works against an
// on-disk repository, an in-memory fixture, or a remote object store.
package filehistory

import (
	"context"
	"time"

	"github.com/antgroup/zeta-blame/modules/diferenco"
	"github.com/antgroup/zeta-blame/modules/plumbing"
)

// Oid is the content address of a commit, tree or blob.
type Oid = plumbing.Hash

// NullOid marks the absence of an object (no ancestor, no blob).
var NullOid = plumbing.ZeroHash

// UCFakeID is the synthetic pseudo-commit id reserved for uncommitted
// working-tree content; providers may use it as the seed commit to blame
// a dirty file against HEAD.
var UCFakeID = plumbing.UCFakeID

// DeltaStatus classifies how a path changed between two trees.
type DeltaStatus int

const (
	Unmodified DeltaStatus = iota
	Added
	Deleted
	Modified
	Renamed
	Unreadable
)

func (s DeltaStatus) String() string {
	switch s {
	case Unmodified:
		return "unmodified"
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	case Renamed:
		return "renamed"
	case Unreadable:
		return "unreadable"
	default:
		return "invalid"
	}
}

// Signature is a commit's authorship stamp.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is the minimal commit shape the engine needs: its own id, its
// parents in order (parents[0] is the first parent followed by the walker),
// and the tree it points at.
type Commit struct {
	ID      Oid
	Parents []Oid
	Tree    Oid
	Author  Signature
}

// Blob is raw file content addressed by id.
type Blob struct {
	ID   Oid
	Data []byte
}

// TreeEntry is what a path resolves to inside a tree.
type TreeEntry struct {
	ID Oid
}

// Delta is one entry of a tree-to-tree diff, oriented old (a) -> new (b).
type Delta struct {
	Status  DeltaStatus
	OldPath string
	OldID   Oid
	NewPath string
	NewID   Oid
}

// Patch, Hunk and DiffLine are the blob-to-blob diff shapes the engine
// consumes; they are exactly diferenco's unified-diff types; the engine has
// no diff algorithm of its own; it only knows how to fold hunks into blame
// attribution (see patch.go).
type Patch = diferenco.Unified
type Hunk = diferenco.Hunk
type DiffLine = diferenco.Line

const (
	OpEqual  = diferenco.Equal
	OpInsert = diferenco.Insert
	OpDelete = diferenco.Delete
)

// ProgressFunc is the engine's sole cooperative cancellation point. It is
// invoked roughly every N examined commits (N differs between Trace and
// Blame, see TraceOptions/BlameOptions); returning an error aborts the
// operation in progress, and that error is returned verbatim to the caller.
type ProgressFunc func(commitsExamined int) error

// Provider is the repository capability set Trace and Blame depend on. The
// engine never implements tree walking, blob diffing or rename detection
// itself; a Provider does, and may cache, batch or fetch remotely however
// it likes.
type Provider interface {
	// LookupCommit resolves a commit id to its parents, tree and signature.
	LookupCommit(ctx context.Context, id Oid) (*Commit, error)
	// LookupBlob resolves a blob id to its content.
	LookupBlob(ctx context.Context, id Oid) (*Blob, error)
	// TreeEntry resolves path inside tree, reporting (nil, false, nil) when
	// the path does not exist in that tree.
	TreeEntry(ctx context.Context, tree Oid, path string) (*TreeEntry, bool, error)
	// DiffTrees compares tree a (old) against tree b (new). When
	// findRenames is true the provider may correlate an old-side delete
	// with a new-side add into a single Renamed delta using its own
	// similarity threshold; when false it must report raw Added/Deleted/
	// Modified entries only.
	DiffTrees(ctx context.Context, a, b Oid, findRenames bool) ([]Delta, error)
	// DiffBlobs produces a unified patch turning blob a's content into
	// blob b's content.
	DiffBlobs(ctx context.Context, a, b Oid) (*Patch, error)
	// DescendantOf reports whether b is reachable from a by following
	// first-or-other parent links (b is an ancestor of a). Used only by
	// optional strict-mode assertions in blame's merge refinement.
	DescendantOf(ctx context.Context, a, b Oid) (bool, error)
}
