package filehistory

import "bytes"

// splitKeepingTerminators splits blob content into lines, keeping each
// line's trailing newline attached (so re-joining the slice reproduces the
// original bytes exactly, including a missing final newline).
func splitKeepingTerminators(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i+1]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

const binaryPlaceholder = "<binary file>"

func looksBinary(data []byte) bool {
	return bytes.IndexByte(data, 0) != -1
}

// buildInitialAnnotation produces the AnnotatedFile for a node with no
// parent content to diff against: every line is freshly attributed to node
// itself. Used for ADDED nodes and, via the Blob content of the seed, the
// very first revision examined by Blame.
func buildInitialAnnotation(node *TraceNode, blob *Blob) *AnnotatedFile {
	af := &AnnotatedFile{Node: node}
	if looksBinary(blob.Data) {
		af.Binary = true
		af.Lines = []*Line{nil, {Node: node, Text: binaryPlaceholder}}
		return af
	}
	texts := splitKeepingTerminators(blob.Data)
	af.Lines = make([]*Line, 1, len(texts)+1)
	for _, t := range texts {
		af.Lines = append(af.Lines, &Line{Node: node, Text: t})
	}
	return af
}

// buildFromPatch produces node's AnnotatedFile by replaying the patch from
// parent's content to node's content: every context line reuses parent's
// exact *Line (preserving identity across revisions), and every inserted
// line is freshly attributed to node.
func buildFromPatch(patch *Patch, parent *AnnotatedFile, node *TraceNode) (*AnnotatedFile, error) {
	af := &AnnotatedFile{Node: node, Binary: patch.IsBinary}
	if patch.IsBinary {
		af.Lines = []*Line{nil, {Node: node, Text: binaryPlaceholder}}
		return af, nil
	}
	af.Lines = make([]*Line, 1, len(parent.Lines)+8)
	err := walkPatch(patch, parent.LineCount(), func(t patchTriple) error {
		if t.Added != nil {
			af.Lines = append(af.Lines, &Line{Node: node, Text: *t.Added})
			return nil
		}
		if t.OldLine < 1 || t.OldLine >= len(parent.Lines) {
			return ErrMalformedDiff
		}
		af.Lines = append(af.Lines, parent.Lines[t.OldLine])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return af, nil
}

// overrideBlame refines af in place using the patch from a merge's
// secondary-parent content (secondary) into af's own content: every
// context line's attribution in af is overwritten with secondary's line at
// the matching position. Insertions on the secondary side (content that
// only exists because of the primary parent) are left untouched, since
// overrideBlame only ever narrows attribution toward an earlier
// contributor, never invents one.
func overrideBlame(af *AnnotatedFile, patchSecondaryToNew *Patch, secondary *AnnotatedFile) error {
	if patchSecondaryToNew.IsBinary || af.Binary {
		return nil
	}
	return walkPatch(patchSecondaryToNew, secondary.LineCount(), func(t patchTriple) error {
		if t.Added != nil {
			return nil
		}
		if t.OldLine < 1 || t.OldLine >= len(secondary.Lines) {
			return ErrMalformedDiff
		}
		if t.NewLine < 1 || t.NewLine >= len(af.Lines) {
			return ErrMalformedDiff
		}
		af.Lines[t.NewLine] = secondary.Lines[t.OldLine]
		return nil
	})
}
