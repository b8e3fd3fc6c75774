package filehistory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func lineTexts(af *AnnotatedFile) []string {
	out := make([]string, af.LineCount())
	for i := 1; i < len(af.Lines); i++ {
		out[i-1] = af.Lines[i].Text
	}
	return out
}

// Law: applying overrideBlame twice with identical inputs leaves
// annotations unchanged (idempotent).
func TestOverrideBlame_Idempotent(t *testing.T) {
	primaryNode := &TraceNode{Path: "f", Level: 0}
	secondaryNode := &TraceNode{Path: "f", Level: 1}
	mergeNode := &TraceNode{Path: "f", Level: 0}

	primary := &AnnotatedFile{Node: primaryNode, Lines: []*Line{nil, {Node: primaryNode, Text: "a\n"}, {Node: primaryNode, Text: "b\n"}}}
	secondary := &AnnotatedFile{Node: secondaryNode, Lines: []*Line{nil, {Node: secondaryNode, Text: "a\n"}, {Node: secondaryNode, Text: "c\n"}}}

	patchFromPrimary := &Patch{Hunks: []*Hunk{{
		FromLine: 1,
		Lines: []DiffLine{
			{Kind: OpEqual, Content: "a\n"},
			{Kind: OpDelete, Content: "b\n"},
			{Kind: OpInsert, Content: "c\n"},
		},
	}}}
	merged, err := buildFromPatch(patchFromPrimary, primary, mergeNode)
	require.NoError(t, err)
	require.Equal(t, []string{"a\n", "c\n"}, lineTexts(merged))

	patchSecondaryToMerged := &Patch{Hunks: []*Hunk{{
		FromLine: 1,
		Lines: []DiffLine{
			{Kind: OpEqual, Content: "a\n"},
			{Kind: OpEqual, Content: "c\n"},
		},
	}}}

	require.NoError(t, overrideBlame(merged, patchSecondaryToMerged, secondary))
	first := append([]*Line(nil), merged.Lines...)

	require.NoError(t, overrideBlame(merged, patchSecondaryToMerged, secondary))
	require.Equal(t, first, merged.Lines)
	require.Same(t, secondary.Lines[1], merged.Lines[1])
	require.Same(t, secondary.Lines[2], merged.Lines[2])
}

// Law: rename-without-content-change produces an annotated file identical,
// line for line (by pointer), to the primary parent's.
func TestBuildFromPatch_ContextLinesReusePointers(t *testing.T) {
	parentNode := &TraceNode{Path: "foo"}
	childNode := &TraceNode{Path: "bar", Status: Renamed}

	parent := &AnnotatedFile{Node: parentNode, Lines: []*Line{nil, {Node: parentNode, Text: "a\n"}, {Node: parentNode, Text: "b\n"}}}
	// Content unchanged across the rename: the patch has no hunks at all.
	child, err := buildFromPatch(&Patch{}, parent, childNode)
	require.NoError(t, err)

	require.Same(t, parent.Lines[1], child.Lines[1])
	require.Same(t, parent.Lines[2], child.Lines[2])
}

func TestWalkPatch_ImplicitContextGaps(t *testing.T) {
	p := &Patch{Hunks: []*Hunk{{
		FromLine: 3,
		Lines: []DiffLine{
			{Kind: OpDelete, Content: "old\n"},
			{Kind: OpInsert, Content: "new\n"},
		},
	}}}
	var triples []patchTriple
	err := walkPatch(p, 5, func(t patchTriple) error {
		triples = append(triples, t)
		return nil
	})
	require.NoError(t, err)
	// Lines 1-2 are implicit context before the hunk; the delete inside
	// the hunk consumes the old cursor without yielding; the insert
	// yields one triple; lines 4-5 are implicit context after the hunk.
	require.Len(t, triples, 5)
	require.Equal(t, patchTriple{OldLine: 1, NewLine: 1}, triples[0])
	require.Equal(t, patchTriple{OldLine: 2, NewLine: 2}, triples[1])
	require.NotNil(t, triples[2].Added)
	require.Equal(t, "new\n", *triples[2].Added)
	require.Equal(t, 3, triples[2].NewLine)
	require.Equal(t, patchTriple{OldLine: 4, NewLine: 4}, triples[3])
	require.Equal(t, patchTriple{OldLine: 5, NewLine: 5}, triples[4])
}
