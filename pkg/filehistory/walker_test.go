package filehistory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/zeta-blame/pkg/filehistory"
	"github.com/antgroup/zeta-blame/pkg/memrepo"
)

func newRepo(t *testing.T) (*memrepo.Repo, *memrepo.Builder) {
	t.Helper()
	repo, err := memrepo.New(1024)
	require.NoError(t, err)
	return repo, memrepo.NewBuilder(repo)
}

// Scenario: a straight-line history (hello.txt-style fixture) where each
// commit changes exactly one line; per-line attribution must land on the
// exact commit that last touched each line, with untouched lines' *Line
// pointers surviving unchanged from their introducing revision.
func TestTraceAndBlame_LinearHistory(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	c1 := b.Commit("alice", map[string][]byte{"hello.txt": []byte("one\ntwo\nthree\n")})
	c2 := b.Commit("bob", map[string][]byte{"hello.txt": []byte("one\nTWO\nthree\n")}, c1)
	c3 := b.Commit("carol", map[string][]byte{"hello.txt": []byte("ONE\nTWO\nthree\n")}, c2)

	dag, err := filehistory.Trace(ctx, repo, c3, "hello.txt", filehistory.TraceOptions{})
	require.NoError(t, err)
	require.NotNil(t, dag.Seed)

	af, err := filehistory.Blame(ctx, repo, dag, filehistory.BlameOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, af.LineCount())
	require.Equal(t, c3, af.Lines[1].Node.CommitID)
	require.Equal(t, c2, af.Lines[2].Node.CommitID)
	require.Equal(t, c1, af.Lines[3].Node.CommitID)

	// Reuse-identity law: a context line surviving from parent to child
	// reuses the exact same *Line object, not a copy. Line 3 ("three")
	// never changes across any commit, so its Line must be one single
	// object shared by all three revisions' AnnotatedFiles.
	node1, ok := dag.NodeForCommit(c1)
	require.True(t, ok)
	node2, ok := dag.NodeForCommit(c2)
	require.True(t, ok)
	require.Same(t, node1.AnnotatedFile.Lines[3], node2.AnnotatedFile.Lines[3])
	require.Same(t, node2.AnnotatedFile.Lines[3], dag.Seed.AnnotatedFile.Lines[3])
}

// Scenario: a file that exists only on a merge's secondary side, added one
// commit and extended a later one there, while the merge commit itself
// introduces the path to the primary side unchanged. The merge-exploration
// branch must discover the secondary side's real history and let blame
// attribute the carried-over line back to its original commit rather than
// to the merge.
func TestTraceAndBlame_FileAddedInMergeCommit(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	base := b.Commit("alice", map[string][]byte{"a.txt": []byte("base\n")})
	left := b.Commit("bob", map[string][]byte{"a.txt": []byte("base\nleft\n")}, base)
	right1 := b.Commit("carol", map[string][]byte{"b2.txt": []byte("one\n")}, base)
	right2 := b.Commit("carol", map[string][]byte{"b2.txt": []byte("one\ntwo\n")}, right1)
	merge := b.Commit("dave", map[string][]byte{"b2.txt": []byte("one\ntwo\n")}, left, right2)

	dag, err := filehistory.Trace(ctx, repo, merge, "b2.txt", filehistory.TraceOptions{MaxLevel: -1})
	require.NoError(t, err)

	require.Equal(t, filehistory.Added, dag.Seed.Status)
	origin, ok := dag.NodeForCommit(right1)
	require.True(t, ok)
	require.Equal(t, filehistory.Added, origin.Status)
	require.Empty(t, origin.Parents)

	af, err := filehistory.Blame(ctx, repo, dag, filehistory.BlameOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, af.LineCount())
	require.Equal(t, right1, af.Lines[1].Node.CommitID)
	require.Equal(t, merge, af.Lines[2].Node.CommitID)
}

// Scenario: a pure rename (content unchanged) must be classified RENAMED,
// not MODIFIED, and must reuse the parent's exact Line objects.
func TestTraceAndBlame_PureRename(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	c1 := b.Commit("alice", map[string][]byte{"foo": []byte("a\nb\n")})
	c2 := b.Commit("bob", map[string][]byte{"foo": nil, "bar": []byte("a\nb\n")}, c1)

	dag, err := filehistory.Trace(ctx, repo, c2, "bar", filehistory.TraceOptions{})
	require.NoError(t, err)

	renamed, ok := dag.NodeForCommit(c2)
	require.True(t, ok)
	require.Equal(t, filehistory.Renamed, renamed.Status)
	require.Equal(t, "foo", renamed.Parents[0].Path)

	af, err := filehistory.Blame(ctx, repo, dag, filehistory.BlameOptions{})
	require.NoError(t, err)
	require.Equal(t, c1, af.Lines[1].Node.CommitID)
	require.Equal(t, c1, af.Lines[2].Node.CommitID)
}

// Scenario: a rename where content also changed in the same commit must
// still be classified RENAMED (never downgraded to MODIFIED just because
// content drifted too), and blame must not take the pure-rename shortcut:
// it has to diff against the renamed-from blob like any other change.
func TestTraceAndBlame_RenameWithContentChange(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	original := "line one\nline two\nline three\nline four\nline five\n"
	changed := "line one\nline two\nline three\nline four\nline FIVE changed\n"

	c1 := b.Commit("alice", map[string][]byte{"old.txt": []byte(original)})
	c2 := b.Commit("bob", map[string][]byte{"old.txt": nil, "new.txt": []byte(changed)}, c1)

	dag, err := filehistory.Trace(ctx, repo, c2, "new.txt", filehistory.TraceOptions{})
	require.NoError(t, err)

	renamed, ok := dag.NodeForCommit(c2)
	require.True(t, ok)
	require.Equal(t, filehistory.Renamed, renamed.Status)
	require.Equal(t, "old.txt", renamed.Parents[0].Path)

	af, err := filehistory.Blame(ctx, repo, dag, filehistory.BlameOptions{})
	require.NoError(t, err)
	require.Equal(t, c1, af.Lines[1].Node.CommitID)
	require.Equal(t, c1, af.Lines[4].Node.CommitID)
	require.Equal(t, c2, af.Lines[5].Node.CommitID)
}

// Scenario: a binary blob (contains a NUL byte) gets exactly one placeholder
// line and no per-line diffing is attempted.
func TestTraceAndBlame_BinaryFile(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	c1 := b.Commit("alice", map[string][]byte{"img.bin": {0x00, 0x01, 0x02}})
	c2 := b.Commit("bob", map[string][]byte{"img.bin": {0x00, 0xFF, 0xFE}}, c1)

	dag, err := filehistory.Trace(ctx, repo, c2, "img.bin", filehistory.TraceOptions{})
	require.NoError(t, err)

	af, err := filehistory.Blame(ctx, repo, dag, filehistory.BlameOptions{})
	require.NoError(t, err)
	require.True(t, af.Binary)
	require.Equal(t, 1, af.LineCount())
}

// Scenario: an octopus merge (3+ parents) on the traced path aborts the
// whole trace with the dedicated error.
func TestTrace_OctopusMergeAborts(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	base := b.Commit("alice", map[string][]byte{"f": []byte("x\n")})
	p1 := b.Commit("bob", map[string][]byte{"f": []byte("x\n1\n")}, base)
	p2 := b.Commit("carol", map[string][]byte{"f": []byte("x\n2\n")}, base)
	p3 := b.Commit("dave", map[string][]byte{"f": []byte("x\n3\n")}, base)
	merge := b.Commit("eve", map[string][]byte{"f": []byte("x\n1\n2\n3\n")}, p1, p2, p3)

	_, err := filehistory.Trace(ctx, repo, merge, "f", filehistory.TraceOptions{})
	require.ErrorIs(t, err, filehistory.ErrOctopusUnsupported)
}

// Scenario: skimming with a wide interval over a long unchanged run must
// produce the same set of significant nodes as not skimming at all.
func TestTrace_SkimMatchesNoSkim(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	first := b.Commit("alice", map[string][]byte{"f": []byte("v0\n")})
	last := first
	for i := 0; i < 100; i++ {
		last = b.Commit("bob", map[string][]byte{"other": []byte{byte(i)}}, last)
	}
	final := b.Commit("carol", map[string][]byte{"f": []byte("v1\n")}, last)

	noSkim, err := filehistory.Trace(ctx, repo, final, "f", filehistory.TraceOptions{})
	require.NoError(t, err)
	skimmed, err := filehistory.Trace(ctx, repo, final, "f", filehistory.TraceOptions{SkimInterval: 10})
	require.NoError(t, err)

	significant := func(dag *filehistory.DAG) []filehistory.Oid {
		var ids []filehistory.Oid
		for _, n := range dag.Nodes() {
			if n.Significant() {
				ids = append(ids, n.CommitID)
			}
		}
		return ids
	}
	require.ElementsMatch(t, significant(noSkim), significant(skimmed))
}

// Law: skimming at interval 0 is identical to no skimming (0 disables it).
func TestTrace_SkimZeroIsNoop(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	c1 := b.Commit("alice", map[string][]byte{"f": []byte("a\n")})
	c2 := b.Commit("bob", map[string][]byte{"f": []byte("b\n")}, c1)

	withZero, err := filehistory.Trace(ctx, repo, c2, "f", filehistory.TraceOptions{SkimInterval: 0})
	require.NoError(t, err)
	without, err := filehistory.Trace(ctx, repo, c2, "f", filehistory.TraceOptions{})
	require.NoError(t, err)
	require.Len(t, withZero.Nodes(), len(without.Nodes()))
}

// Invariant 6: walkGraph visits every reachable node exactly once.
func TestWalkGraph_VisitsEveryNodeOnce(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	base := b.Commit("alice", map[string][]byte{"f": []byte("1\n")})
	left := b.Commit("bob", map[string][]byte{"f": []byte("1\n2\n")}, base)
	right := b.Commit("carol", map[string][]byte{"f": []byte("1\n3\n")}, base)
	merge := b.Commit("dave", map[string][]byte{"f": []byte("1\n2\n3\n")}, left, right)

	dag, err := filehistory.Trace(ctx, repo, merge, "f", filehistory.TraceOptions{})
	require.NoError(t, err)

	order, err := dag.WalkGraph(dag.Seed)
	require.NoError(t, err)
	seen := map[*filehistory.TraceNode]bool{}
	for _, n := range order {
		require.False(t, seen[n], "node visited twice: %v", n.CommitID)
		seen[n] = true
	}
}

// Invariant 2: no two nodes (including passed-through commit ids) share a
// commit id.
func TestPruning_NoDuplicateCommitOwnership(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	c1 := b.Commit("alice", map[string][]byte{"f": []byte("v0\n"), "noise": []byte("x\n")})
	c2 := b.Commit("bob", map[string][]byte{"noise": []byte("y\n")}, c1)
	c3 := b.Commit("carol", map[string][]byte{"f": []byte("v1\n")}, c2)

	dag, err := filehistory.Trace(ctx, repo, c3, "f", filehistory.TraceOptions{})
	require.NoError(t, err)

	owners := map[filehistory.Oid]*filehistory.TraceNode{}
	for _, n := range dag.Nodes() {
		if n.Status == filehistory.Unreadable {
			continue
		}
		require.NotContains(t, owners, n.CommitID)
		owners[n.CommitID] = n
		for _, sub := range n.SubbingInForCommits {
			require.NotContains(t, owners, sub)
			owners[sub] = n
		}
	}
}
