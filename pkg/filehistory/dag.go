package filehistory

// DAG is the arena owning every TraceNode a Trace produced. Nodes reference
// each other only through the Parents/Children slices kept on TraceNode
// itself; the arena's job is allocation, commit-id lookup and the
// frontier-based topological walk used by both pruning and Blame.
type DAG struct {
	nodes    []*TraceNode
	byCommit map[Oid]*TraceNode
	Seed     *TraceNode
}

// NewDAG returns an empty arena.
func NewDAG() *DAG {
	return &DAG{byCommit: make(map[Oid]*TraceNode)}
}

// NewNode allocates and registers a new, unsealed node.
func (d *DAG) NewNode(path string, commit, blob Oid, level int) *TraceNode {
	n := &TraceNode{idx: len(d.nodes), Path: path, CommitID: commit, BlobID: blob, Level: level}
	d.nodes = append(d.nodes, n)
	d.byCommit[commit] = n
	return n
}

// NodeForCommit looks up the node that owns a commit id, following any
// passthrough redirection recorded by UnlinkPassthrough.
func (d *DAG) NodeForCommit(id Oid) (*TraceNode, bool) {
	n, ok := d.byCommit[id]
	return n, ok
}

// Nodes returns every node ever allocated, including ones later unlinked as
// passthrough (status Unreadable); callers that want the live graph should
// filter on Significant()/Unreadable themselves or use WalkGraph.
func (d *DAG) Nodes() []*TraceNode {
	return d.nodes
}

// AddParent links parent as one of node's ancestors and registers the
// reverse child link.
func (d *DAG) AddParent(node, parent *TraceNode) {
	for _, p := range node.Parents {
		if p == parent {
			return
		}
	}
	node.Parents = append(node.Parents, parent)
	parent.Children = append(parent.Children, node)
}

// UnlinkPassthrough removes node from the live graph because it proved
// insignificant (Unmodified): every child that pointed at node is
// re-parented onto replaceWith instead, replaceWith's SubbingInForCommits
// gains node's commit id so later commit-id lookups still resolve, and node
// itself is marked Unreadable so it is never mistaken for a live node again.
func (d *DAG) UnlinkPassthrough(node, replaceWith *TraceNode) {
	for _, c := range node.Children {
		replaced := false
		for i, p := range c.Parents {
			if p == node {
				c.Parents[i] = replaceWith
				replaced = true
			}
		}
		if replaced {
			already := false
			for _, p := range replaceWith.Children {
				if p == c {
					already = true
					break
				}
			}
			if !already {
				replaceWith.Children = append(replaceWith.Children, c)
			}
		}
	}
	// Drop node from replaceWith's own child list if it was there (node
	// was replaceWith's direct child before the fold).
	for i, c := range replaceWith.Children {
		if c == node {
			replaceWith.Children = append(replaceWith.Children[:i], replaceWith.Children[i+1:]...)
			break
		}
	}
	replaceWith.SubbingInForCommits = append(replaceWith.SubbingInForCommits, node.CommitID, node.SubbingInForCommits...)
	d.byCommit[node.CommitID] = replaceWith
	for _, c := range node.SubbingInForCommits {
		d.byCommit[c] = replaceWith
	}
	node.Status = Unreadable
	node.Parents = nil
	node.Children = nil
}

// WalkGraph returns every node reachable from start (inclusive) in an order
// that guarantees a node's children are always yielded before the node
// itself. start is normally the DAG's seed, which by construction has no
// children, so it is yielded first; the oldest nodes (roots, with no
// parents of their own) come last.
//
// Implementation is the frontier-with-pending-counters scheme: a node's
// pending count is how many of its children have not yet been yielded;
// a node becomes eligible the moment that count reaches zero. The frontier
// is processed back-to-front (rightmost eligible node wins) purely to keep
// the walk deterministic; any choice of eligible node produces a valid
// topological order.
func (d *DAG) WalkGraph(start *TraceNode) ([]*TraceNode, error) {
	pending := make(map[*TraceNode]int)
	visited := make(map[*TraceNode]bool)
	var discover func(n *TraceNode)
	discover = func(n *TraceNode) {
		if visited[n] {
			return
		}
		visited[n] = true
		pending[n] = len(n.Children)
		for _, p := range n.Parents {
			discover(p)
		}
	}
	discover(start)

	frontier := []*TraceNode{start}
	inFrontier := map[*TraceNode]bool{start: true}
	order := make([]*TraceNode, 0, len(visited))

	for len(frontier) > 0 {
		idx := -1
		for i := len(frontier) - 1; i >= 0; i-- {
			if pending[frontier[i]] == 0 {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, ErrCycle
		}
		n := frontier[idx]
		frontier = append(frontier[:idx], frontier[idx+1:]...)
		delete(inFrontier, n)
		order = append(order, n)
		for _, p := range n.Parents {
			pending[p]--
			if !inFrontier[p] {
				frontier = append(frontier, p)
				inFrontier[p] = true
			}
		}
	}
	if len(order) != len(visited) {
		return nil, ErrCycle
	}
	return order, nil
}
