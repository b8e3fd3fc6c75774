package memrepo

import (
	"context"
	"time"

	"github.com/antgroup/zeta-blame/modules/plumbing"
	"github.com/antgroup/zeta-blame/pkg/filehistory"
)

// Builder is a small fluent fixture constructor for tests: it lets a test
// describe a commit as "parent(s) plus a flat set of path->content
// overrides" without hand-computing trees or hashes itself.
type Builder struct {
	repo     *Repo
	lastTree Tree
	when     time.Time
}

// NewBuilder wraps repo for fixture construction, starting from an empty
// working tree.
func NewBuilder(repo *Repo) *Builder {
	return &Builder{repo: repo, lastTree: Tree{}, when: time.Unix(1700000000, 0)}
}

// Commit records a new commit on top of parents, applying files as
// path->content overrides (nil content deletes the path) to the tree of
// parents[0] (or an empty tree, for the very first commit). Each call
// advances the builder's synthetic clock by one second so commits sort in
// call order.
func (b *Builder) Commit(author string, files map[string][]byte, parents ...plumbing.Hash) plumbing.Hash {
	tree := Tree{}
	if len(parents) > 0 {
		parentCommit, err := b.repo.LookupCommit(context.Background(), parents[0])
		if err != nil {
			panic(err)
		}
		base, err := b.repo.lookupTree(parentCommit.Tree)
		if err != nil {
			panic(err)
		}
		for p, id := range base {
			tree[p] = id
		}
	}
	for path, content := range files {
		if content == nil {
			delete(tree, path)
			continue
		}
		tree[path] = b.repo.PutBlob(content)
	}
	treeID := b.repo.PutTree(tree)
	b.lastTree = tree
	b.when = b.when.Add(time.Second)
	return b.repo.PutCommit(parents, treeID, filehistory.Signature{Name: author, Email: author + "@example.com", When: b.when})
}
