package filehistory

import "context"

// blameProgressInterval is Blame's default progress callback cadence; much
// tighter than Trace's because the blob diffs it drives are heavier per
// step than a tree lookup.
const blameProgressInterval = 10

// BlameOptions tunes a Blame run.
type BlameOptions struct {
	Progress ProgressFunc
	// ProgressInterval overrides blameProgressInterval; set to 1 in tests
	// that want the callback on every node.
	ProgressInterval int
	// StrictAssertions enables the optional DescendantOf sanity check
	// before applying merge refinement; it costs an extra Provider round
	// trip per merge node and exists mainly so tests can catch a Trace bug
	// that produced a structurally invalid DAG.
	StrictAssertions bool
}

// blobCache holds the single most recently fetched blob; primary-parent
// lookups during a linear blame walk are usually sequential, so caching
// just the last one avoids re-fetching the same blob back to back without
// the bookkeeping of a full LRU.
type blobCache struct {
	id   Oid
	blob *Blob
}

func (c *blobCache) get(ctx context.Context, p Provider, id Oid) (*Blob, error) {
	if c.blob != nil && c.id == id {
		return c.blob, nil
	}
	b, err := p.LookupBlob(ctx, id)
	if err != nil {
		return nil, err
	}
	c.id, c.blob = id, b
	return b, nil
}

// Blame walks dag in oldest-to-newest order (the reverse of WalkGraph's
// native children-before-parents order, since that order is exactly
// newest-to-oldest), building an AnnotatedFile at every significant node and
// returning the one for the seed.
func Blame(ctx context.Context, p Provider, dag *DAG, opts BlameOptions) (*AnnotatedFile, error) {
	newestFirst, err := dag.WalkGraph(dag.Seed)
	if err != nil {
		return nil, err
	}

	af := make(map[*TraceNode]*AnnotatedFile, len(newestFirst))
	var cache blobCache
	revision := 0
	count := 0
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = blameProgressInterval
	}

	for i := len(newestFirst) - 1; i >= 0; i-- {
		node := newestFirst[i]
		if node.Status == Unreadable {
			continue
		}

		count++
		if opts.Progress != nil && count%interval == 0 {
			if err := opts.Progress(count); err != nil {
				return nil, err
			}
		}

		switch {
		case len(node.Parents) == 0:
			blob, err := cache.get(ctx, p, node.BlobID)
			if err != nil {
				return nil, err
			}
			af[node] = buildInitialAnnotation(node, blob)
			revision++
			node.RevisionNumber = revision

		case node.Parents[0].BlobID == node.BlobID:
			// Same blob as the primary parent: a rename that carried no
			// content change, contributing no new blob to blame. This is
			// necessarily a Renamed node (Seal never produces Modified or
			// Added without a blob change), so it gets no revision number
			// and simply reuses the parent's AnnotatedFile wholesale.
			// Skipping is keyed on blob identity rather than on Status,
			// since a rename whose content also changed stays classified
			// Renamed but does need the diff below like any other change.
			parentAF := af[node.Parents[0]]
			af[node] = &AnnotatedFile{Node: node, Binary: parentAF.Binary, Lines: parentAF.Lines}

		default:
			primary := node.Parents[0]
			primaryAF := af[primary]
			nodeAF, err := blameFromParent(ctx, p, &cache, primaryAF, node)
			if err != nil {
				return nil, err
			}
			if len(node.Parents) == 2 {
				secondary := node.Parents[1]
				if opts.StrictAssertions {
					desc, err := p.DescendantOf(ctx, node.CommitID, secondary.CommitID)
					if err != nil {
						return nil, err
					}
					if !desc {
						return nil, ErrMalformedDiff
					}
				}
				secondaryAF := af[secondary]
				secondaryPatch, err := diffOrBinary(ctx, p, &cache, secondary.BlobID, node.BlobID)
				if err != nil {
					return nil, err
				}
				if err := overrideBlame(nodeAF, secondaryPatch, secondaryAF); err != nil {
					return nil, err
				}
			}
			af[node] = nodeAF
			revision++
			node.RevisionNumber = revision
		}
		node.AnnotatedFile = af[node]
	}

	return af[dag.Seed], nil
}

// blameFromParent builds node's AnnotatedFile from its primary parent's,
// short-circuiting to a single placeholder line whenever either side's blob
// is binary rather than spending a diff on content that can't be
// line-attributed anyway.
func blameFromParent(ctx context.Context, p Provider, cache *blobCache, parentAF *AnnotatedFile, node *TraceNode) (*AnnotatedFile, error) {
	patch, err := diffOrBinary(ctx, p, cache, node.Parents[0].BlobID, node.BlobID)
	if err != nil {
		return nil, err
	}
	return buildFromPatch(patch, parentAF, node)
}

// diffOrBinary fetches both blobs once (through the shared cache), and
// returns a binary-flagged empty Patch without ever calling DiffBlobs if
// either side contains a NUL byte.
func diffOrBinary(ctx context.Context, p Provider, cache *blobCache, a, b Oid) (*Patch, error) {
	ba, err := cache.get(ctx, p, a)
	if err != nil {
		return nil, err
	}
	if looksBinary(ba.Data) {
		return &Patch{IsBinary: true}, nil
	}
	bb, err := cache.get(ctx, p, b)
	if err != nil {
		return nil, err
	}
	if looksBinary(bb.Data) {
		return &Patch{IsBinary: true}, nil
	}
	return p.DiffBlobs(ctx, a, b)
}

// BlameLine is one line of a rendered blame result.
type BlameLine struct {
	LineNo int
	Node   *TraceNode
	Text   string
}

// BlameResult is a convenience flattening of an AnnotatedFile for display,
// mirroring the shape teacher CLIs in this family render their own blame
// output in.
type BlameResult struct {
	Lines  []BlameLine
	Binary bool
}

// Annotate flattens af into a BlameResult ready for printing.
func Annotate(af *AnnotatedFile) *BlameResult {
	r := &BlameResult{Binary: af.Binary}
	for i := 1; i < len(af.Lines); i++ {
		l := af.Lines[i]
		r.Lines = append(r.Lines, BlameLine{LineNo: i, Node: l.Node, Text: l.Text})
	}
	return r
}
