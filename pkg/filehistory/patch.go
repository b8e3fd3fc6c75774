package filehistory

// patchTriple is one unit produced while walking a patch's hunks in order:
// either a context line present on both sides (OldLine and NewLine set,
// Added nil) or an inserted line that exists only on the new side (NewLine
// set, OldLine 0, Added non-nil). Pure deletions are consumed silently; the
// annotated file being built only ever has as many lines as the new side,
// so a deleted line contributes nothing to yield.
type patchTriple struct {
	OldLine int
	NewLine int
	Added   *string
}

// walkPatch replays a unified patch as a sequence of patchTriples covering
// every line of the new side, including the runs of unchanged context a
// unified diff's hunks omit between and after them: diferenco.ToUnified only
// emits a hunk where lines actually differ (plus DefaultContextLines of
// padding), so any stretch of the file further than that from the nearest
// change never appears in p.Hunks at all. Those lines are exactly as
// "equal" as the ones a hunk does bother to mention, so walkPatch treats the
// gap before each hunk, and the gap after the last hunk, the same way it
// treats an Equal line inside a hunk: yielded as context triples advancing
// both cursors together. oldLineCount is the pre-image's line count, needed
// to know how far the trailing gap runs.
func walkPatch(p *Patch, oldLineCount int, yield func(patchTriple) error) error {
	oldCursor, newCursor := 1, 1
	flushTo := func(uptoOld int) error {
		for oldCursor < uptoOld {
			if err := yield(patchTriple{OldLine: oldCursor, NewLine: newCursor}); err != nil {
				return err
			}
			oldCursor++
			newCursor++
		}
		return nil
	}
	for _, h := range p.Hunks {
		if h.FromLine < oldCursor {
			return ErrMalformedDiff
		}
		if err := flushTo(h.FromLine); err != nil {
			return err
		}
		for _, l := range h.Lines {
			switch l.Kind {
			case OpEqual:
				if err := yield(patchTriple{OldLine: oldCursor, NewLine: newCursor}); err != nil {
					return err
				}
				oldCursor++
				newCursor++
			case OpInsert:
				content := l.Content
				if err := yield(patchTriple{NewLine: newCursor, Added: &content}); err != nil {
					return err
				}
				newCursor++
			case OpDelete:
				oldCursor++
			}
		}
	}
	return flushTo(oldLineCount + 1)
}
