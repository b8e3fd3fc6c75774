package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/antgroup/zeta-blame/modules/plumbing"
	"github.com/antgroup/zeta-blame/pkg/memrepo"
)

// fixtureDoc is the on-disk shape of a synthetic repository description fed
// to cmd/trace, loaded with BurntSushi/toml the same way the teacher loads
// its own config files.
type fixtureDoc struct {
	Head    string          `toml:"head"`
	Commits []fixtureCommit `toml:"commits"`
}

type fixtureCommit struct {
	Name    string            `toml:"name"`
	Author  string            `toml:"author"`
	Parents []string          `toml:"parents"`
	Files   map[string]string `toml:"files"`
	// Deleted lists paths present in the parent tree that this commit
	// removes; TOML has no null value to signal "delete" inside Files.
	Deleted []string `toml:"deleted"`
}

// loadFixture decodes path into a populated memrepo.Repo and returns the
// repo together with the head commit's resolved id.
func loadFixture(path string) (repo *memrepo.Repo, head plumbing.Hash, err error) {
	var doc fixtureDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, plumbing.ZeroHash, fmt.Errorf("cmd/trace: decoding fixture %s: %w", path, err)
	}
	repo, err = memrepo.New(4096)
	if err != nil {
		return nil, plumbing.ZeroHash, err
	}
	b := memrepo.NewBuilder(repo)

	ids := make(map[string]plumbing.Hash, len(doc.Commits))
	for _, c := range doc.Commits {
		if _, dup := ids[c.Name]; dup {
			return nil, plumbing.ZeroHash, fmt.Errorf("cmd/trace: duplicate commit name %q in %s", c.Name, path)
		}
		parents := make([]plumbing.Hash, 0, len(c.Parents))
		for _, p := range c.Parents {
			resolved, ok := ids[p]
			if !ok {
				return nil, plumbing.ZeroHash, fmt.Errorf("cmd/trace: commit %q references unknown parent %q (commits must be listed in topological order)", c.Name, p)
			}
			parents = append(parents, resolved)
		}
		files := make(map[string][]byte, len(c.Files)+len(c.Deleted))
		for p, content := range c.Files {
			files[p] = []byte(content)
		}
		for _, p := range c.Deleted {
			files[p] = nil
		}
		ids[c.Name] = b.Commit(c.Author, files, parents...)
	}

	headID, ok := ids[doc.Head]
	if !ok {
		return nil, plumbing.ZeroHash, fmt.Errorf("cmd/trace: head %q in %s is not a defined commit", doc.Head, path)
	}
	return repo, headID, nil
}
