package pipe

// Colors for the marked depth-first walk (§2 C6): white = unvisited,
// gray = on the current path (used to detect back-edges), black = done.
const (
	colorWhite = iota
	colorGray
	colorBlack
)

// visitModules performs a marked DFS over the module graph, starting at
// the first sink module found, descending via each read connector's
// link to its producing module (§4.4). pre runs before descending into
// a module's predecessors (pre-order, used by the reverse ROI pass);
// post runs after (post-order, used by the forward ROI pass and node
// expansion). Either may be nil.
//
// A back-edge (an already-gray predecessor) is a module-level cycle:
// the offending read connector's link is severed via Connect(-1,-1,...)
// and the walk continues, satisfying §8 invariant 6 (severed-link count
// equals back-edge count) and the local-recovery policy of §7.
func (g *Graph) visitModules(pre, post func(idx int) error) (severed int, err error) {
	sink := g.firstSinkModule()
	if sink < 0 {
		return 0, ErrMissingSink
	}
	color := make([]int, len(g.Modules))

	var walk func(idx int) error
	walk = func(idx int) error {
		color[idx] = colorGray
		if pre != nil {
			if err := pre(idx); err != nil {
				return err
			}
		}
		m := g.Modules[idx]
		for ci := range m.Connectors {
			c := &m.Connectors[ci]
			if (c.Role != RoleRead && c.Role != RoleSink) || !c.Linked() {
				continue
			}
			peerIdx, _ := c.Peer()
			switch color[peerIdx] {
			case colorWhite:
				if err := walk(peerIdx); err != nil {
					return err
				}
			case colorGray:
				g.Logger.Warn("cycle detected, severing back-edge",
					"subsystem", "pipe", "module", idx, "connector", ci)
				if err := g.Connect(-1, -1, idx, ci); err != nil {
					return err
				}
				severed++
			}
		}
		color[idx] = colorBlack
		if post != nil {
			if err := post(idx); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(sink); err != nil {
		return severed, err
	}
	return severed, nil
}

func (g *Graph) firstSinkModule() int {
	for i, m := range g.Modules {
		for _, c := range m.Connectors {
			if c.Role == RoleSink {
				return i
			}
		}
	}
	return -1
}

// visitNodes performs the same marked DFS as visitModules but over the
// node graph (§4.5 reference counting, §4.6, §4.7), starting from every
// sink node in index order so that multi-sink graphs are fully
// covered. Each node is visited at most once regardless of how many
// sinks reach it. pre and post mirror visitModules' pre/post-order
// hooks; either may be nil.
func (g *Graph) visitNodes(pre, post func(n *Node) error) (severed int, err error) {
	color := make([]int, len(g.Nodes))

	var walk func(idx int) error
	walk = func(idx int) error {
		color[idx] = colorGray
		n := g.Nodes[idx]
		if pre != nil {
			if err := pre(n); err != nil {
				return err
			}
		}
		for ci := range n.Connectors {
			c := &n.Connectors[ci]
			if c.Role != RoleRead && c.Role != RoleSink {
				continue
			}
			if !c.Linked() {
				continue
			}
			peerIdx, _ := c.Peer()
			switch color[peerIdx] {
			case colorWhite:
				if err := walk(peerIdx); err != nil {
					return err
				}
			case colorGray:
				g.Logger.Warn("cycle detected in node graph, severing back-edge",
					"subsystem", "pipe", "node", idx, "connector", ci)
				if err := g.connectNode(-1, -1, idx, ci); err != nil {
					return err
				}
				severed++
			}
		}
		color[idx] = colorBlack
		if post != nil {
			if err := post(n); err != nil {
				return err
			}
		}
		return nil
	}

	for i, n := range g.Nodes {
		if color[i] != colorWhite {
			continue
		}
		if !(n.IsSink || hasSinkConnector(n)) {
			continue
		}
		if err := walk(i); err != nil {
			return severed, err
		}
	}
	// Any node never reached from a sink (disconnected dead code in the
	// graph) is still visited so its resources participate in the
	// allocation walk; real pipelines never hit this path since every
	// node is built from a module on the path to a sink.
	for i := range g.Nodes {
		if color[i] == colorWhite {
			if err := walk(i); err != nil {
				return severed, err
			}
		}
	}
	return severed, nil
}

func hasSinkConnector(n *Node) bool {
	for _, c := range n.Connectors {
		if c.Role == RoleSink {
			return true
		}
	}
	return false
}

// connectNode is the node-graph analogue of Graph.Connect (§4.3
// extended to C8's finer-grained node DAG). Node linkage is established
// during expansion (see expand.go); connectNode's main use outside
// expansion is severing a cyclic back-edge during traversal.
func (g *Graph) connectNode(m0, c0, m1, c1 int) error {
	if m0 == -1 && c0 == -1 {
		dst := nodeAt(g, m1)
		if dst == nil {
			return ErrNoSuchDestNode
		}
		conn := dst.Connector(c1)
		if conn == nil {
			return ErrNoSuchDestConn
		}
		conn.sever()
		return nil
	}
	dst := nodeAt(g, m1)
	if dst == nil {
		return ErrNoSuchDestNode
	}
	dstConn := dst.Connector(c1)
	if dstConn == nil {
		return ErrNoSuchDestConn
	}
	if dstConn.Role != RoleRead && dstConn.Role != RoleSink {
		return ErrDestNotRead
	}
	src := nodeAt(g, m0)
	if src == nil {
		return ErrNoSuchSrcNode
	}
	srcConn := src.Connector(c0)
	if srcConn == nil {
		return ErrNoSuchSrcConn
	}
	if srcConn.Role != RoleWrite && srcConn.Role != RoleSource {
		return ErrSrcNotWrite
	}
	if srcConn.Chan != dstConn.Chan {
		return ErrChannelMismatch
	}
	if srcConn.Format != dstConn.Format {
		return ErrFormatMismatch
	}
	dstConn.setPeer(m0, c0)
	return nil
}

func nodeAt(g *Graph, i int) *Node {
	if i < 0 || i >= len(g.Nodes) {
		return nil
	}
	return g.Nodes[i]
}
