package pipe

import "github.com/gogpu/rawpipe/token"

// connInput and connOutput are the conventional connector names
// reference modules use for their single read/write port. The
// negotiator looks up "input" by name (§4.4 step 1) but otherwise only
// cares about role, not name.
var (
	connInput  = token.MustNew("input")
	connOutput = token.MustNew("output")
)

// NegotiateROI runs the two-pass ROI algorithm (§4.4): forward
// modify_roi_out in post-order, then reverse modify_roi_in in
// pre-order. Both passes traverse the module graph from the first sink
// module found.
func (g *Graph) NegotiateROI() error {
	if err := g.roiOutPass(); err != nil {
		return err
	}
	return g.roiInPass()
}

// roiOutPass is pass 1 (§4.4): for each module in post-order, inherit
// image metadata through its unique "input" connector, synchronise
// every read connector's ROI with its upstream, then invoke
// modify_roi_out (or the default).
func (g *Graph) roiOutPass() error {
	_, err := g.visitModules(nil, func(idx int) error {
		m := g.Modules[idx]

		if ii := m.ConnectorByName(connInput); ii >= 0 {
			in := &m.Connectors[ii]
			if in.Linked() {
				peerIdx, _ := in.Peer()
				m.Img = g.Modules[peerIdx].Img
			}
		}

		for ci := range m.Connectors {
			c := &m.Connectors[ci]
			if (c.Role != RoleRead && c.Role != RoleSink) || !c.Linked() {
				continue
			}
			peerIdx, peerConn := c.Peer()
			c.ROI = g.Modules[peerIdx].Connectors[peerConn].ROI
		}

		if cb := m.Class.Callbacks.ModifyROIOut; cb != nil {
			return cb(g, m)
		}
		defaultModifyROIOut(m)
		return nil
	})
	return err
}

// defaultModifyROIOut copies the "input" connector's full dimensions
// onto every write connector (§4.2). Source modules have no "input"
// connector and must set their output's full dimensions themselves via
// a custom callback.
func defaultModifyROIOut(m *Module) {
	ii := m.ConnectorByName(connInput)
	if ii < 0 {
		return
	}
	in := &m.Connectors[ii]
	for ci := range m.Connectors {
		c := &m.Connectors[ci]
		if c.Role != RoleWrite {
			continue
		}
		c.ROI.FullWd = in.ROI.FullWd
		c.ROI.FullHt = in.ROI.FullHt
	}
}

// roiInPass is pass 2 (§4.4): pre-order, each module's read connectors
// are given a demand ROI (via the module's callback or the default),
// then that demand is copied back onto the upstream write connector
// before the walk descends into it. This is the mechanism by which a
// sink's full-frame request propagates upstream one hop per visit.
func (g *Graph) roiInPass() error {
	_, err := g.visitModules(func(idx int) error {
		m := g.Modules[idx]

		var err error
		if cb := m.Class.Callbacks.ModifyROIIn; cb != nil {
			err = cb(g, m)
		} else {
			defaultModifyROIIn(m)
		}
		if err != nil {
			return err
		}

		for ci := range m.Connectors {
			c := &m.Connectors[ci]
			if (c.Role != RoleRead && c.Role != RoleSink) || !c.Linked() {
				continue
			}
			peerIdx, peerConn := c.Peer()
			g.Modules[peerIdx].Connectors[peerConn].ROI = c.ROI
		}
		return nil
	}, nil)
	return err
}

// defaultModifyROIIn implements §4.4 pass 2 step 1: the module's sink
// connector (if any) receives a full-frame request, and every read
// connector adopts the module's unique write connector's ROI (which, by
// the time this module is visited, already carries the downstream
// demand propagated by the previous pre-order step).
func defaultModifyROIIn(m *Module) {
	for ci := range m.Connectors {
		c := &m.Connectors[ci]
		if c.Role == RoleSink {
			c.ROI.Wd = c.ROI.FullWd
			c.ROI.Ht = c.ROI.FullHt
			c.ROI.Scale = 1
			break
		}
	}

	oi := m.uniqueWriteConnector()
	if oi < 0 {
		return
	}
	outROI := m.Connectors[oi].ROI
	for ci := range m.Connectors {
		c := &m.Connectors[ci]
		if c.Role == RoleRead {
			c.ROI = outROI
		}
	}
}
