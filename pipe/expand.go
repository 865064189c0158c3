package pipe

import "github.com/gogpu/rawpipe/token"

var kernelMain = token.MustNew("main")

// ExpandNodes is the node-expansion pass (§4.5): after ROI negotiation,
// clear the node list and walk the module graph post-order calling
// each module's create_nodes (or the default). Once every node exists,
// run the reference-counting pass that primes each write/source
// connector's RefCount for the allocation pass.
//
// Every reference module in this repository expands to exactly one
// node whose Connectors slice mirrors its module's Connectors index for
// index (the default expansion's own behaviour, and the one the ported
// demosaic/exposure callbacks follow too). linkNodeConnectors relies on
// that one-node-per-module, index-aligned convention to wire the node
// graph from the already-negotiated module graph; a module expanding
// into multiple nodes with a different connector layout would need its
// own linking logic, which no module implemented here requires.
func (g *Graph) ExpandNodes() error {
	g.Nodes = g.Nodes[:0]

	_, err := g.visitModules(nil, func(idx int) error {
		m := g.Modules[idx]
		m.nodeStart = len(g.Nodes)

		var err error
		if cb := m.Class.Callbacks.CreateNodes; cb != nil {
			err = cb(g, m)
		} else {
			err = defaultCreateNodes(g, idx)
		}
		if err != nil {
			return err
		}
		m.nodeEnd = len(g.Nodes)

		for ni := m.nodeStart; ni < m.nodeEnd; ni++ {
			g.linkNodeConnectors(idx, ni)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return g.countReferences()
}

// defaultCreateNodes emits one node mirroring the module's connectors
// (§4.2's default create_nodes), with kernel name "main" and dispatch
// extents computed from the module's unique write connector's ROI (or,
// for a module with no write connector such as a sink, its sink
// connector's ROI).
func defaultCreateNodes(g *Graph, moduleIdx int) error {
	m := g.Modules[moduleIdx]
	if len(g.Nodes) >= NodeCapacity {
		return ErrCapacityExceeded
	}

	n := &Node{
		ModuleIndex: moduleIdx,
		Name:        m.Instance,
		Kernel:      kernelMain,
		Connectors:  make([]Connector, len(m.Connectors)),
	}
	for i, c := range m.Connectors {
		n.Connectors[i] = Connector{
			Name: c.Name, Role: c.Role, Chan: c.Chan, Format: c.Format,
			Flags: c.Flags, ROI: c.ROI, link: unlinked,
		}
		switch c.Role {
		case RoleSource:
			n.IsSource = true
		case RoleSink:
			n.IsSink = true
		}
	}

	roi := dispatchROI(m)
	n.Wd, n.Ht, n.Dp = roi.Wd, roi.Ht, 1

	g.Nodes = append(g.Nodes, n)
	return nil
}

// dispatchROI picks the ROI that determines a default node's dispatch
// extents: the module's unique write connector if it has one, else its
// first connector (covers source/sink modules, whose single connector
// carries the relevant dimensions).
func dispatchROI(m *Module) ROI {
	if oi := m.uniqueWriteConnector(); oi >= 0 {
		return m.Connectors[oi].ROI
	}
	if len(m.Connectors) > 0 {
		return m.Connectors[0].ROI
	}
	return ROI{}
}

// linkNodeConnectors wires node (the ni'th node, belonging to module
// moduleIdx) into the node graph by mirroring the already-negotiated
// module-graph linkage: for each read/sink connector shared at the same
// index between module and node, find the peer module's node (its
// nodeStart, under the one-node-per-module convention) and connect.
func (g *Graph) linkNodeConnectors(moduleIdx, ni int) {
	m := g.Modules[moduleIdx]
	n := g.Nodes[ni]
	for ci := range n.Connectors {
		if ci >= len(m.Connectors) {
			break
		}
		mc := &m.Connectors[ci]
		if (mc.Role != RoleRead && mc.Role != RoleSink) || !mc.Linked() {
			continue
		}
		peerModIdx, peerConn := mc.Peer()
		peerNodeIdx := g.Modules[peerModIdx].nodeStart // one node per module
		_ = g.connectNode(peerNodeIdx, peerConn, ni, ci)
	}
}

// countReferences is the reference-counting pass (§4.5): walk the node
// graph pre-order, and for every read/sink connector, increment the
// upstream write/source connector's RefCount. A write connector starts
// at 1, counting its own producing node's hold on the image in
// addition to every downstream reader's, so freeInputs's producer-free
// plus one-free-per-reader exactly drains it to zero. A source
// connector starts one higher, at 2: besides that same producing-node
// and per-reader drain, its image must still be resident after the
// pipeline has run once, ready to be re-used as the input to the next
// run's staging upload, so its count never reaches zero on its own.
func (g *Graph) countReferences() error {
	for ni := range g.Nodes {
		for ci := range g.Nodes[ni].Connectors {
			c := &g.Nodes[ni].Connectors[ci]
			switch c.Role {
			case RoleSource:
				c.RefCount = 2
			case RoleWrite:
				c.RefCount = 1
			default:
				c.RefCount = 0
			}
		}
	}

	_, err := g.visitNodes(func(n *Node) error {
		for ci := range n.Connectors {
			c := &n.Connectors[ci]
			if (c.Role != RoleRead && c.Role != RoleSink) || !c.Linked() {
				continue
			}
			peerIdx, peerConn := c.Peer()
			g.Nodes[peerIdx].Connectors[peerConn].RefCount++
		}
		return nil
	}, nil)
	return err
}
