package memrepo

import (
	"context"

	"github.com/antgroup/zeta-blame/modules/plumbing"
	"github.com/antgroup/zeta-blame/pkg/filehistory"
)

// foldRenames re-pairs leftover adds/deletes from DiffTrees into Renamed
// deltas, scored by Sørensen-Dice similarity over trigrams the way the
// teacher's own similarity-index rename detector scores candidate pairs,
// just without its git-specific break/limit heuristics (this provider has
// no rename-limit config to honor, and nothing here ever needs to consider
// splitting a rename back into an add+delete). An exact content match is
// simply the score-1.0 case of the same scoring pass, not a separate path.
func (r *Repo) foldRenames(ctx context.Context, deltas []filehistory.Delta, ta, tb Tree, addedPaths, deletedPaths []string) ([]filehistory.Delta, error) {
	type scored struct {
		addIdx, delIdx int
		score          float64
	}
	var candidates []scored
	trigramsFor := make(map[plumbing.Hash]map[string]int)

	trigrams := func(blob plumbing.Hash) (map[string]int, error) {
		if t, ok := trigramsFor[blob]; ok {
			return t, nil
		}
		b, err := r.LookupBlob(ctx, blob)
		if err != nil {
			return nil, err
		}
		t := trigramSet(b.Data)
		trigramsFor[blob] = t
		return t, nil
	}

	for ai, ap := range addedPaths {
		at, err := trigrams(tb[ap])
		if err != nil {
			return nil, err
		}
		for di, dp := range deletedPaths {
			dt, err := trigrams(ta[dp])
			if err != nil {
				return nil, err
			}
			s := diceSimilarity(at, dt)
			if ta[dp] == tb[ap] || (r.RenameThreshold > 0 && s >= r.RenameThreshold) {
				candidates = append(candidates, scored{addIdx: ai, delIdx: di, score: s})
			}
		}
	}

	// Greedy best-score-first matching: each added and deleted path may be
	// claimed by at most one pairing.
	usedAdd := make(map[int]bool)
	usedDel := make(map[int]bool)
	for {
		best := -1
		for i, c := range candidates {
			if usedAdd[c.addIdx] || usedDel[c.delIdx] {
				continue
			}
			if best == -1 || c.score > candidates[best].score {
				best = i
			}
		}
		if best == -1 {
			break
		}
		c := candidates[best]
		usedAdd[c.addIdx] = true
		usedDel[c.delIdx] = true
		ap, dp := addedPaths[c.addIdx], deletedPaths[c.delIdx]
		deltas = replaceAddDelete(deltas, ap, tb[ap], dp, ta[dp])
	}

	return deltas, nil
}

// replaceAddDelete removes the standalone Added(newPath)/Deleted(oldPath)
// entries from deltas and appends a single Renamed entry in their place.
func replaceAddDelete(deltas []filehistory.Delta, newPath string, newID plumbing.Hash, oldPath string, oldID plumbing.Hash) []filehistory.Delta {
	out := deltas[:0]
	for _, d := range deltas {
		if d.Status == filehistory.Added && d.NewPath == newPath {
			continue
		}
		if d.Status == filehistory.Deleted && d.OldPath == oldPath {
			continue
		}
		out = append(out, d)
	}
	return append(out, filehistory.Delta{
		Status:  filehistory.Renamed,
		OldPath: oldPath,
		OldID:   oldID,
		NewPath: newPath,
		NewID:   newID,
	})
}

func trigramSet(data []byte) map[string]int {
	text := string(data)
	set := make(map[string]int)
	if len(text) < 3 {
		if len(text) > 0 {
			set[text]++
		}
		return set
	}
	for i := 0; i+3 <= len(text); i++ {
		set[text[i:i+3]]++
	}
	return set
}

// diceSimilarity computes the Sørensen-Dice coefficient 2*|A∩B| / (|A|+|B|)
// over multisets of trigrams.
func diceSimilarity(a, b map[string]int) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	var totalA, totalB, shared int
	for k, ca := range a {
		totalA += ca
		if cb, ok := b[k]; ok {
			if ca < cb {
				shared += ca
			} else {
				shared += cb
			}
		}
	}
	for _, cb := range b {
		totalB += cb
	}
	if totalA+totalB == 0 {
		return 1
	}
	return 2 * float64(shared) / float64(totalA+totalB)
}
