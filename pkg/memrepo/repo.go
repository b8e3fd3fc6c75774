// Package memrepo is a small in-memory implementation of
// filehistory.Provider, built for tests and for the trace/blame CLI's demo
// mode. Commits, trees and blobs are content-addressed the same way the
// teacher's on-disk object store is (BLAKE3 via modules/plumbing), just
// held in maps instead of loose files, with a ristretto cache in front of
// blob and tree lookups so repeated history walks over the same fixture
// get back the already-built Blob and Tree values.
package memrepo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/antgroup/zeta-blame/modules/diferenco"
	"github.com/antgroup/zeta-blame/modules/plumbing"
	"github.com/antgroup/zeta-blame/pkg/filehistory"
)

// Tree is a flat path -> blob id mapping. Real trees are hierarchical;
// flattening them here is a deliberate simplification this in-memory
// provider accepts since nothing in filehistory ever looks at directory
// structure, only at whole-path lookups and path-to-path diffs.
type Tree map[string]plumbing.Hash

// Repo is the in-memory object store. Zero value is not usable; use New.
type Repo struct {
	commits map[plumbing.Hash]*filehistory.Commit
	trees   map[plumbing.Hash]Tree
	blobs   map[plumbing.Hash][]byte

	cache *ristretto.Cache[plumbing.Hash, any]

	// RenameThreshold is the minimum Sørensen-Dice trigram similarity two
	// blobs must share for resolveRename's similarity fallback to pair
	// them as a rename. 0 disables the similarity fallback entirely
	// (exact blob matches still work).
	RenameThreshold float64
}

// New builds an empty repo with its blob/tree cache sized for roughly
// maxEntries objects.
func New(maxEntries int64) (*Repo, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[plumbing.Hash, any]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("memrepo: building cache: %w", err)
	}
	return &Repo{
		commits:         make(map[plumbing.Hash]*filehistory.Commit),
		trees:           make(map[plumbing.Hash]Tree),
		blobs:           make(map[plumbing.Hash][]byte),
		cache:           cache,
		RenameThreshold: 0.5,
	}, nil
}

// PutBlob hashes and stores content, returning its id.
func (r *Repo) PutBlob(content []byte) plumbing.Hash {
	hasher := plumbing.NewHasher()
	_, _ = hasher.Write(content)
	h := hasher.Sum()
	r.blobs[h] = content
	return h
}

// PutTree hashes and stores a flat path->blob map, returning its id. The
// hash is derived from the sorted path/blob pairs so two trees with the
// same contents always collide to the same id.
func (r *Repo) PutTree(t Tree) plumbing.Hash {
	h := hashTree(t)
	r.trees[h] = t
	return h
}

// PutCommit stores a commit whose id is derived from its parents, tree and
// author stamp, and returns that id.
func (r *Repo) PutCommit(parents []plumbing.Hash, tree plumbing.Hash, sig filehistory.Signature) plumbing.Hash {
	hasher := plumbing.NewHasher()
	for _, p := range parents {
		_, _ = hasher.Write(p[:])
	}
	_, _ = hasher.Write(tree[:])
	_, _ = fmt.Fprintf(hasher, "%s <%s> %d", sig.Name, sig.Email, sig.When.UnixNano())
	id := hasher.Sum()
	c := &filehistory.Commit{ID: id, Parents: parents, Tree: tree, Author: sig}
	r.commits[id] = c
	return id
}

func hashTree(t Tree) plumbing.Hash {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	hasher := plumbing.NewHasher()
	for _, p := range paths {
		blob := t[p]
		_, _ = fmt.Fprintf(hasher, "%s\x00", p)
		_, _ = hasher.Write(blob[:])
	}
	return hasher.Sum()
}

var _ filehistory.Provider = (*Repo)(nil)

func (r *Repo) LookupCommit(_ context.Context, id plumbing.Hash) (*filehistory.Commit, error) {
	c, ok := r.commits[id]
	if !ok {
		return nil, plumbing.NoSuchObject(id)
	}
	return c, nil
}

func (r *Repo) LookupBlob(_ context.Context, id plumbing.Hash) (*filehistory.Blob, error) {
	if v, ok := r.cache.Get(id); ok {
		return v.(*filehistory.Blob), nil
	}
	data, ok := r.blobs[id]
	if !ok {
		return nil, plumbing.NoSuchObject(id)
	}
	b := &filehistory.Blob{ID: id, Data: data}
	r.cache.SetWithTTL(id, b, 1, time.Hour)
	return b, nil
}

func (r *Repo) lookupTree(id plumbing.Hash) (Tree, error) {
	if v, ok := r.cache.Get(id); ok {
		return v.(Tree), nil
	}
	t, ok := r.trees[id]
	if !ok {
		return nil, plumbing.NoSuchObject(id)
	}
	r.cache.SetWithTTL(id, t, 1, time.Hour)
	return t, nil
}

func (r *Repo) TreeEntry(_ context.Context, tree plumbing.Hash, path string) (*filehistory.TreeEntry, bool, error) {
	t, err := r.lookupTree(tree)
	if err != nil {
		return nil, false, err
	}
	blob, ok := t[path]
	if !ok {
		return nil, false, nil
	}
	return &filehistory.TreeEntry{ID: blob}, true, nil
}

// DiffTrees compares two flat trees path by path. When findRenames is true,
// any Added/Deleted pair left over after exact matching is fed through
// Sørensen-Dice trigram similarity scoring (rename.go) and paired up when
// the best score clears RenameThreshold.
func (r *Repo) DiffTrees(ctx context.Context, a, b plumbing.Hash, findRenames bool) ([]filehistory.Delta, error) {
	ta, err := r.lookupTree(a)
	if err != nil {
		return nil, err
	}
	tb, err := r.lookupTree(b)
	if err != nil {
		return nil, err
	}

	var deltas []filehistory.Delta
	var addedPaths, deletedPaths []string

	for p, blobB := range tb {
		if blobA, ok := ta[p]; ok {
			if blobA != blobB {
				deltas = append(deltas, filehistory.Delta{Status: filehistory.Modified, OldPath: p, OldID: blobA, NewPath: p, NewID: blobB})
			}
			continue
		}
		addedPaths = append(addedPaths, p)
	}
	for p, blobA := range ta {
		if _, ok := tb[p]; ok {
			continue
		}
		deletedPaths = append(deletedPaths, p)
		deltas = append(deltas, filehistory.Delta{Status: filehistory.Deleted, OldPath: p, OldID: blobA})
	}
	for _, p := range addedPaths {
		deltas = append(deltas, filehistory.Delta{Status: filehistory.Added, NewPath: p, NewID: tb[p]})
	}

	if !findRenames || len(addedPaths) == 0 || len(deletedPaths) == 0 {
		return deltas, nil
	}
	return r.foldRenames(ctx, deltas, ta, tb, addedPaths, deletedPaths)
}

func (r *Repo) DiffBlobs(ctx context.Context, a, b plumbing.Hash) (*filehistory.Patch, error) {
	ba, err := r.LookupBlob(ctx, a)
	if err != nil {
		return nil, err
	}
	bb, err := r.LookupBlob(ctx, b)
	if err != nil {
		return nil, err
	}
	if looksBinary(ba.Data) || looksBinary(bb.Data) {
		return &filehistory.Patch{IsBinary: true}, nil
	}
	return diferenco.DoUnified(&diferenco.Options{
		From: &diferenco.File{Hash: a.String()},
		To:   &diferenco.File{Hash: b.String()},
		A:    string(ba.Data),
		B:    string(bb.Data),
	})
}

func (r *Repo) DescendantOf(ctx context.Context, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	seen := map[plumbing.Hash]bool{}
	queue := []plumbing.Hash{a}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		c, err := r.LookupCommit(ctx, id)
		if err != nil {
			return false, err
		}
		for _, p := range c.Parents {
			if p == b {
				return true, nil
			}
			queue = append(queue, p)
		}
	}
	return false, nil
}

func looksBinary(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return false
}
