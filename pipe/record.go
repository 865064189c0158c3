package pipe

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/rawpipe/internal/gpu"
)

// Record builds one primary command buffer for the whole graph
// (§4.7): a post-order walk over the node graph, skipping every node
// whose owning module index is below skipBelowModule (the run driver's
// dirty-prefix threshold, §9 open question a). Returns the encoder
// ready for Graph.Device.Submit and the number of timestamp queries
// written into the query pool (two per recorded node).
func (g *Graph) Record(skipBelowModule int) (gpu.CommandEncoder, int, error) {
	enc := g.Device.BeginCommandBuffer()
	g.queryCount = 0

	_, err := g.visitNodes(nil, func(n *Node) error {
		if n.ModuleIndex < skipBelowModule {
			return nil
		}
		return g.recordNode(enc, n)
	})
	if err != nil {
		return nil, 0, err
	}
	return enc, int(g.queryCount), nil
}

// recordNode emits one node's slice of the command buffer (§4.7 steps
// 1-10).
func (g *Graph) recordNode(enc gpu.CommandEncoder, n *Node) error {
	for i := range n.Connectors {
		c := &n.Connectors[i]
		switch c.Role {
		case RoleRead, RoleSink:
			enc.TransitionImageLayout(c.Image, gpu.LayoutUndefined, gpu.LayoutShaderReadOnlyOptimal)
		case RoleWrite, RoleSource:
			enc.TransitionImageLayout(c.Image, gpu.LayoutUndefined, gpu.LayoutGeneral)
		}
	}

	if n.IsSink {
		if ci := n.ConnectorByName(connInput); ci >= 0 {
			in := &n.Connectors[ci]
			enc.CopyImageToBuffer(in.Image, in.Staging)
		} else {
			for i := range n.Connectors {
				c := &n.Connectors[i]
				if c.Role == RoleSink {
					enc.CopyImageToBuffer(c.Image, c.Staging)
					break
				}
			}
		}
	}

	if n.IsSource {
		for i := range n.Connectors {
			c := &n.Connectors[i]
			if c.Role != RoleSource {
				continue
			}
			enc.TransitionImageLayout(c.Image, gpu.LayoutGeneral, gpu.LayoutTransferDstOptimal)
			enc.CopyBufferToImage(c.Staging, c.Image)
			enc.TransitionImageLayout(c.Image, gpu.LayoutTransferDstOptimal, gpu.LayoutGeneral)
		}
	}

	g.emitTimestamp(enc)

	if !n.IsSink && !n.IsSource {
		enc.BindPipeline(n.Pipeline)
		enc.BindGroup(0, g.UniformBindGroup)
		enc.BindGroup(1, n.BindGroup)

		if len(n.PushConstants) > 0 {
			enc.PushConstants(n.PushConstants)
		}

		m := g.Modules[n.ModuleIndex]
		if cb := m.Class.Callbacks.CommitParams; cb != nil {
			if err := cb(g, m); err != nil {
				return err
			}
		}

		payload := g.buildUniformPayload(n)
		enc.WriteBuffer(g.UniformBuffer, 0, payload)

		x, y, z := n.DispatchGroups()
		enc.Dispatch(x, y, z)
	}

	g.emitTimestamp(enc)
	return nil
}

func (g *Graph) emitTimestamp(enc gpu.CommandEncoder) {
	enc.WriteTimestamp(g.QueryPool, g.queryCount)
	g.queryCount++
}

// buildUniformPayload concatenates each connector's ROI (padded to a
// 16-byte stride) followed by the owning module's committed parameters,
// or raw parameters if commit_params is absent (§4.7 step 8, §6.4).
func (g *Graph) buildUniformPayload(n *Node) []byte {
	m := g.Modules[n.ModuleIndex]

	buf := make([]byte, 0, len(n.Connectors)*roiSlotSize+len(m.Committed))
	for i := range n.Connectors {
		buf = appendROI(buf, n.Connectors[i].ROI)
	}

	params := m.Committed
	if params == nil {
		params = m.Params
	}
	return append(buf, params...)
}

func appendROI(buf []byte, roi ROI) []byte {
	var slot [roiSlotSize]byte
	binary.LittleEndian.PutUint32(slot[0:4], roi.FullWd)
	binary.LittleEndian.PutUint32(slot[4:8], roi.FullHt)
	binary.LittleEndian.PutUint32(slot[8:12], roi.Wd)
	binary.LittleEndian.PutUint32(slot[12:16], roi.Ht)
	binary.LittleEndian.PutUint32(slot[16:20], roi.X)
	binary.LittleEndian.PutUint32(slot[20:24], roi.Y)
	binary.LittleEndian.PutUint32(slot[24:28], math.Float32bits(roi.Scale))
	return append(buf, slot[:]...)
}
